// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultAPIURL = "http://localhost:8000"

// apiClient 对 API 服务的薄封装
type apiClient struct {
	http *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *apiClient {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// apiError 非 2xx 响应；Detail 来自响应体 {"detail": ...}
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Detail == "" {
		body.Detail = resp.String()
	}
	return &apiError{Status: resp.StatusCode(), Detail: body.Detail}
}

type uploadResponse struct {
	Filename      string `json:"filename"`
	ExtractedText string `json:"extracted_text"`
	ObjectURL     string `json:"object_url"`
}

func (c *apiClient) upload(filename string, data []byte) (*uploadResponse, error) {
	var out uploadResponse
	resp, err := c.http.R().
		SetMultipartField("file", filename, "application/pdf", bytes.NewReader(data)).
		SetResult(&out).
		Post("/upload")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

type askRequest struct {
	ExtractedText string     `json:"extracted_text"`
	Question      string     `json:"question"`
	PreviousConvo [][]string `json:"previous_convo"`
}

func (c *apiClient) ask(req askRequest) (string, error) {
	if req.PreviousConvo == nil {
		req.PreviousConvo = [][]string{}
	}
	var out struct {
		Answer string `json:"answer"`
	}
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/ask")
	if err != nil {
		return "", err
	}
	if err := checkResponse(resp); err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (c *apiClient) health() (map[string]interface{}, error) {
	var out, unavailable map[string]interface{}
	resp, err := c.http.R().
		SetResult(&out).
		SetError(&unavailable).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	// 503 时响应体仍包含 pool_state，一并返回
	if resp.StatusCode() == http.StatusServiceUnavailable && unavailable != nil {
		return unavailable, &apiError{Status: resp.StatusCode(), Detail: fmt.Sprintf("pool %v", unavailable["pool_state"])}
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) listDocuments(offset, limit int) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.http.R().
		SetQueryParam("offset", strconv.Itoa(offset)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/documents")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
