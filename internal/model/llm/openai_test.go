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

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompletionServer(t *testing.T, status int, body string, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_FirstChoice(t *testing.T) {
	var req chatRequest
	srv := newCompletionServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"42"}},{"message":{"content":"43"}}]}`, &req)
	c, err := NewClient("groq", "llama-3.2-90b-text-preview", "gsk_test", srv.URL, time.Second)
	require.NoError(t, err)

	got, err := c.ChatWithContext(context.Background(), []Message{{Role: "user", Content: "Question: ?"}},
		GenerateOptions{Temperature: 1, MaxTokens: 1024, TopP: 1})
	require.NoError(t, err)
	assert.Equal(t, "42", got)
	assert.Equal(t, "llama-3.2-90b-text-preview", req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.False(t, req.Stream)
	require.Len(t, req.Messages, 1)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK, `{"choices":[]}`, nil)
	c, err := NewClient("groq", "m", "gsk_test", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.ChatWithContext(context.Background(), nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrNoCompletion)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := newCompletionServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, nil)
	c, err := NewClient("groq", "m", "gsk_test", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.ChatWithContext(context.Background(), nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrRateLimited)

	srv = newCompletionServer(t, http.StatusInternalServerError, `boom`, nil)
	c, err = NewClient("groq", "m", "gsk_test", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.ChatWithContext(context.Background(), nil, GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("groq", "m", "", "", 0)
	assert.Error(t, err)
	_, err = NewClient("unknown", "m", "k", "", 0)
	assert.Error(t, err)

	c, err := NewClient("", "m", "k", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "groq", c.Provider())
	assert.Equal(t, "m", c.Model())
}

type countingClient struct {
	ch chan struct{}
}

func (c *countingClient) ChatWithContext(ctx context.Context, _ []Message, _ GenerateOptions) (string, error) {
	<-c.ch
	return "ok", nil
}
func (c *countingClient) Model() string    { return "m" }
func (c *countingClient) Provider() string { return "stub" }

func TestRateLimitedClient_ConcurrencyBound(t *testing.T) {
	limiter := NewRateLimiter(LimitConfig{MaxConcurrent: 2})
	inner := &countingClient{ch: make(chan struct{})}
	c := NewRateLimitedClient(inner, limiter)

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, _ = c.ChatWithContext(context.Background(), nil, GenerateOptions{})
			done <- struct{}{}
		}()
	}
	assert.Eventually(t, func() bool { return limiter.InFlight() == 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ChatWithContext(ctx, nil, GenerateOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(inner.ch)
	for i := 0; i < 3; i++ {
		<-done
	}
	assert.Equal(t, 0, limiter.InFlight())
}

func TestNewRateLimitedClient_NilLimiter(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, Client(inner), NewRateLimitedClient(inner, NewRateLimiter(LimitConfig{})))
}
