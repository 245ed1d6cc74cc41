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

package ingest

import (
	"log/slog"
	"time"
)

// Step 管线步骤
type Step string

const (
	StepValidate    Step = "validate"
	StepExtract     Step = "extract"
	StepStoreObject Step = "store_object"
	StepPersist     Step = "persist"
)

// StepResult 单步结果
type StepResult struct {
	Step     Step          `json:"step"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Report 一次入库的步骤日志。对象写入成功而元数据写入失败时，ObjectKey 即孤儿对象
type Report struct {
	Steps     []StepResult `json:"steps"`
	ObjectKey string       `json:"object_key,omitempty"`
	ObjectURL string       `json:"object_url,omitempty"`
}

func (r *Report) record(step Step, start time.Time, err error) {
	res := StepResult{Step: step, OK: err == nil, Duration: time.Since(start)}
	if err != nil {
		res.Err = err.Error()
	}
	r.Steps = append(r.Steps, res)
}

// Completed 步骤是否已成功执行
func (r *Report) Completed(step Step) bool {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.OK
		}
	}
	return false
}

// Orphaned 对象已写入但没有对应的元数据行
func (r *Report) Orphaned() bool {
	return r.Completed(StepStoreObject) && !r.Completed(StepPersist)
}

// LogValue 实现 slog.LogValuer
func (r *Report) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.Steps))
	for _, s := range r.Steps {
		v := "ok"
		if !s.OK {
			v = "failed: " + s.Err
		}
		attrs = append(attrs, slog.String(string(s.Step), v+" ("+s.Duration.Round(time.Microsecond).String()+")"))
	}
	return slog.GroupValue(attrs...)
}
