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

// Package reconcile 扫描对象存储中没有对应元数据行的孤儿对象
package reconcile

import (
	"context"
	"fmt"
	"time"

	"planet-ai/internal/storage/object"
	"planet-ai/pkg/log"
)

// MetadataLookup 按对象地址查元数据行，metadata.Store 满足该接口
type MetadataLookup interface {
	HasObjectURL(ctx context.Context, url string) (bool, error)
}

// Options 扫描参数
type Options struct {
	Prefix string
	// Grace 小于该年龄的对象跳过，避免与正在进行的入库竞争
	Grace time.Duration
	// Delete 为 true 时删除孤儿对象
	Delete bool
	// Now 为空时使用 time.Now
	Now func() time.Time
}

// Orphan 一个孤儿对象
type Orphan struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `json:"deleted"`
}

// Result 扫描结果
type Result struct {
	Scanned int      `json:"scanned"`
	Skipped int      `json:"skipped"` // 处于宽限期内
	Orphans []Orphan `json:"orphans"`
	Failed  int      `json:"failed"` // 查询或删除失败
}

// FindOrphans 列出前缀下的对象，逐个检查是否存在引用它的元数据行。
// 单个对象查询或删除失败只计数并记录日志，不中断扫描
func FindOrphans(ctx context.Context, objects object.Store, docs MetadataLookup, opts Options, logger *log.Logger) (*Result, error) {
	if objects == nil || docs == nil {
		return nil, fmt.Errorf("reconcile: 需要同时配置对象存储与元数据存储")
	}
	if logger == nil {
		logger = log.Nop()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	infos, err := objects.List(ctx, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list objects: %w", err)
	}

	res := &Result{Orphans: []Orphan{}}
	cutoff := now().Add(-opts.Grace)
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		if info.CreatedAt.After(cutoff) {
			res.Skipped++
			continue
		}
		ok, err := docs.HasObjectURL(ctx, info.URL)
		if err != nil {
			res.Failed++
			logger.Warn("查询元数据失败", "key", info.Key, "error", err)
			continue
		}
		if ok {
			continue
		}

		orphan := Orphan{Key: info.Key, URL: info.URL, Size: info.Size, CreatedAt: info.CreatedAt}
		if opts.Delete {
			if err := objects.Delete(ctx, info.Key); err != nil {
				res.Failed++
				logger.Warn("删除孤儿对象失败", "key", info.Key, "error", err)
			} else {
				orphan.Deleted = true
			}
		}
		logger.Info("发现孤儿对象", "key", info.Key, "deleted", orphan.Deleted)
		res.Orphans = append(res.Orphans, orphan)
	}
	return res, nil
}
