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

package reconcile

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planet-ai/internal/storage/metadata"
	"planet-ai/internal/storage/object"
)

func seed(t *testing.T) (*object.MemoryStore, *metadata.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	objs := object.NewMemoryStore("b")
	docs := metadata.NewMemoryStore()
	for _, key := range []string{"uploads/kept.pdf", "uploads/orphan.pdf", "other/x.pdf"} {
		_, err := objs.Put(ctx, key, bytes.NewReader([]byte("%PDF")), 4, nil)
		require.NoError(t, err)
	}
	url := objs.URL("uploads/kept.pdf")
	require.NoError(t, docs.Insert(ctx, &metadata.Document{Filename: "kept.pdf", ObjectURL: &url}))
	return objs, docs
}

func later() time.Time { return time.Now().Add(2 * time.Hour) }

func TestFindOrphans_ReportsOnly(t *testing.T) {
	objs, docs := seed(t)
	res, err := FindOrphans(context.Background(), objs, docs, Options{Prefix: "uploads/", Grace: time.Hour, Now: later}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	require.Len(t, res.Orphans, 1)
	assert.Equal(t, "uploads/orphan.pdf", res.Orphans[0].Key)
	assert.False(t, res.Orphans[0].Deleted)

	ok, _ := objs.Exists(context.Background(), "uploads/orphan.pdf")
	assert.True(t, ok)
}

func TestFindOrphans_Delete(t *testing.T) {
	objs, docs := seed(t)
	res, err := FindOrphans(context.Background(), objs, docs, Options{Prefix: "uploads/", Grace: time.Hour, Delete: true, Now: later}, nil)
	require.NoError(t, err)
	require.Len(t, res.Orphans, 1)
	assert.True(t, res.Orphans[0].Deleted)

	ok, _ := objs.Exists(context.Background(), "uploads/orphan.pdf")
	assert.False(t, ok)
	ok, _ = objs.Exists(context.Background(), "uploads/kept.pdf")
	assert.True(t, ok)
}

func TestFindOrphans_GracePeriod(t *testing.T) {
	objs, docs := seed(t)
	res, err := FindOrphans(context.Background(), objs, docs, Options{Prefix: "uploads/", Grace: time.Hour}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, res.Orphans)
}

type failingLookup struct{}

func (failingLookup) HasObjectURL(ctx context.Context, url string) (bool, error) {
	return false, errors.New("pool: acquire timeout")
}

func TestFindOrphans_LookupFailureIsNotOrphan(t *testing.T) {
	objs, _ := seed(t)
	res, err := FindOrphans(context.Background(), objs, failingLookup{}, Options{Now: later}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Failed)
	assert.Empty(t, res.Orphans)
}

func TestFindOrphans_RequiresStores(t *testing.T) {
	_, err := FindOrphans(context.Background(), nil, metadata.NewMemoryStore(), Options{}, nil)
	assert.Error(t, err)
}
