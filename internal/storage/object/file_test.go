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

package object

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planet-ai/pkg/config"
)

func TestDeriveKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC)
	k1 := DeriveKey("uploads/", "report.pdf", now)
	k2 := DeriveKey("uploads", "report.pdf", now)

	assert.True(t, strings.HasPrefix(k1, "uploads/2026/03/07/"), k1)
	assert.True(t, strings.HasSuffix(k1, "-report.pdf"), k1)
	assert.NotEqual(t, k1, k2)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"doc.pdf":            "doc.pdf",
		"../../etc/passwd":   "passwd",
		`C:\Users\me\my.pdf`: "my.pdf",
		"":                   "document.pdf",
		"..":                 "document.pdf",
		"a b&c.pdf":          "a_b_c.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
	assert.Equal(t, "_____.pdf", SanitizeFilename("年度 报告.pdf"))
	assert.Len(t, SanitizeFilename(strings.Repeat("x", 300)+".pdf"), maxKeyFilenameLen)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(context.Background(), config.ObjectConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStore(context.Background(), config.ObjectConfig{Type: "memory", Bucket: "x"})
	require.NoError(t, err)
	assert.Equal(t, "memory://x/k", s.URL("k"))

	_, err = NewStore(context.Background(), config.ObjectConfig{Type: "gcs"})
	assert.Error(t, err)

	_, err = NewStore(context.Background(), config.ObjectConfig{Type: "s3"})
	assert.Error(t, err)
}
