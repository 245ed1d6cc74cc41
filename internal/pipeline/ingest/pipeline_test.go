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
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planet-ai/internal/storage/metadata"
	"planet-ai/internal/storage/object"
	"planet-ai/internal/storage/pool"
	pkgerrors "planet-ai/pkg/errors"
)

type stubExtractor struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

// stubObjects 记录 Put 调用，其余方法委托给内存实现
type stubObjects struct {
	*object.MemoryStore
	url   string
	err   error
	calls atomic.Int32
	keys  []string
	mu    sync.Mutex
	delay time.Duration
	ctxOK atomic.Bool
}

func newStubObjects(url string, err error) *stubObjects {
	return &stubObjects{MemoryStore: object.NewMemoryStore("test"), url: url, err: err}
}

func (s *stubObjects) Put(ctx context.Context, key string, data io.Reader, size int64, md map[string]string) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.ctxOK.Store(ctx.Err() == nil)
	if s.err != nil {
		return "", s.err
	}
	if _, err := s.MemoryStore.Put(ctx, key, data, size, md); err != nil {
		return "", err
	}
	return s.url, nil
}

type stubDocs struct {
	*metadata.MemoryStore
	err     error
	calls   atomic.Int32
	lastDoc metadata.Document
	ctxOK   atomic.Bool
	mu      sync.Mutex
}

func newStubDocs(err error) *stubDocs {
	return &stubDocs{MemoryStore: metadata.NewMemoryStore(), err: err}
}

func (s *stubDocs) Insert(ctx context.Context, doc *metadata.Document) error {
	s.calls.Add(1)
	s.ctxOK.Store(ctx.Err() == nil)
	if s.err != nil {
		return s.err
	}
	if err := s.MemoryStore.Insert(ctx, doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastDoc = *doc
	s.mu.Unlock()
	return nil
}

func pdfBytes(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n)
}

func TestIngest_UnsupportedType(t *testing.T) {
	ex, objs, docs := &stubExtractor{text: "t"}, newStubObjects("u", nil), newStubDocs(nil)
	p := New(ex, docs, WithObjectStore(objs, "", 0))

	for _, ct := range []string{"text/plain", "application/pdf; charset=binary", "", "APPLICATION/PDF"} {
		_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(10), Filename: "a.pdf", ContentType: ct})
		require.Error(t, err, ct)
		assert.ErrorIs(t, err, ErrUnsupportedType)
		assert.Equal(t, pkgerrors.ClassClient, pkgerrors.ClassOf(err))
	}
	assert.Zero(t, ex.calls.Load())
	assert.Zero(t, objs.calls.Load())
	assert.Zero(t, docs.calls.Load())
}

func TestIngest_TooLarge(t *testing.T) {
	ex, objs, docs := &stubExtractor{text: "t"}, newStubObjects("u", nil), newStubDocs(nil)
	p := New(ex, docs, WithObjectStore(objs, "", 0))

	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(MaxFileSize + 1), Filename: "big.pdf", ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, pkgerrors.ClassClient, pkgerrors.ClassOf(err))
	assert.Zero(t, ex.calls.Load())
	assert.Zero(t, objs.calls.Load())
	assert.Zero(t, docs.calls.Load())

	// 恰好等于上限可以通过
	_, err = p.Ingest(context.Background(), Upload{Data: pdfBytes(MaxFileSize), Filename: "edge.pdf", ContentType: PDFContentType})
	require.NoError(t, err)
}

func TestIngest_TooLarge_CustomLimit(t *testing.T) {
	ex := &stubExtractor{}
	p := New(ex, newStubDocs(nil), withMaxFileSize(8))
	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(9), ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, ex.calls.Load())
}

func TestIngest_ExtractionFailed(t *testing.T) {
	cause := errors.New("malformed xref table")
	ex, objs, docs := &stubExtractor{err: cause}, newStubObjects("u", nil), newStubDocs(nil)
	p := New(ex, docs, WithObjectStore(objs, "", 0))

	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(100), Filename: "bad.pdf", ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, pkgerrors.ClassInternal, pkgerrors.ClassOf(err))

	var ierr *IngestError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, StepExtract, ierr.Stage)
	assert.Equal(t, int32(1), ex.calls.Load())
	assert.Zero(t, objs.calls.Load())
	assert.Zero(t, docs.calls.Load())
}

func TestIngest_StorageFailed(t *testing.T) {
	ex, objs, docs := &stubExtractor{text: "t"}, newStubObjects("", errors.New("503 backend error")), newStubDocs(nil)
	p := New(ex, docs, WithObjectStore(objs, "", 0))

	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(100), Filename: "a.pdf", ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrStorageFailed)
	assert.Equal(t, int32(1), objs.calls.Load())
	assert.Zero(t, docs.calls.Load())
	n, _ := docs.Count(context.Background())
	assert.Zero(t, n)
}

func TestIngest_PersistFailedLeavesOrphan(t *testing.T) {
	ex, objs, docs := &stubExtractor{text: "t"}, newStubObjects("https://store/a.pdf", nil), newStubDocs(errors.New("relation does not exist"))
	p := New(ex, docs, WithObjectStore(objs, "", 0))

	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(100), Filename: "a.pdf", ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrPersistFailed)

	var ierr *IngestError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.Report.Orphaned())
	require.Len(t, objs.keys, 1)
	ok, err := objs.Exists(context.Background(), objs.keys[0])
	require.NoError(t, err)
	assert.True(t, ok, "stored object must remain after persistence failure")
	assert.Equal(t, objs.keys[0], ierr.Report.ObjectKey)
}

func TestIngest_PoolErrorsStayMatchable(t *testing.T) {
	docs := newStubDocs(pool.ErrTimeout)
	p := New(&stubExtractor{text: "t"}, docs)

	_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(10), Filename: "a.pdf", ContentType: PDFContentType})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.ErrorIs(t, err, pool.ErrTimeout)
	assert.Equal(t, pkgerrors.ClassUnavailable, pkgerrors.ClassOf(err))
}

func TestIngest_EndToEnd(t *testing.T) {
	ex, objs, docs := &stubExtractor{text: "hello world"}, newStubObjects("https://store/doc-1.pdf", nil), newStubDocs(nil)
	p := New(ex, docs, WithObjectStore(objs, "uploads", time.Second))

	res, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(10240), Filename: "doc.pdf", ContentType: PDFContentType})
	require.NoError(t, err)

	doc := res.Document
	assert.Equal(t, "doc.pdf", doc.Filename)
	assert.Equal(t, int64(10240), doc.Filesize)
	assert.Equal(t, "hello world", doc.ExtractedText)
	require.NotNil(t, doc.ObjectURL)
	assert.Equal(t, "https://store/doc-1.pdf", *doc.ObjectURL)
	assert.False(t, doc.UploadedAt.IsZero())
	assert.NotZero(t, doc.ID)

	assert.Equal(t, int32(1), docs.calls.Load())
	require.Len(t, objs.keys, 1)
	assert.Regexp(t, `^uploads/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}-doc\.pdf$`, objs.keys[0])

	steps := make([]Step, 0, len(res.Report.Steps))
	for _, s := range res.Report.Steps {
		assert.True(t, s.OK)
		steps = append(steps, s.Step)
	}
	assert.Equal(t, []Step{StepValidate, StepExtract, StepStoreObject, StepPersist}, steps)
}

func TestIngest_WithoutObjectStore(t *testing.T) {
	docs := newStubDocs(nil)
	res, err := New(&stubExtractor{text: ""}, docs).Ingest(context.Background(),
		Upload{Data: pdfBytes(10), Filename: "empty.pdf", ContentType: PDFContentType})
	require.NoError(t, err)
	assert.Nil(t, res.Document.ObjectURL)
	assert.Equal(t, "", res.Document.ExtractedText)
	assert.False(t, res.Report.Completed(StepStoreObject))
}

func TestIngest_CallerCancelDoesNotInterruptWrites(t *testing.T) {
	objs := newStubObjects("https://store/x.pdf", nil)
	objs.delay = 30 * time.Millisecond
	docs := newStubDocs(nil)
	p := New(&stubExtractor{text: "t"}, docs, WithObjectStore(objs, "", time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := p.Ingest(ctx, Upload{Data: pdfBytes(10), Filename: "x.pdf", ContentType: PDFContentType})
	require.NoError(t, err)
	assert.True(t, objs.ctxOK.Load())
	assert.True(t, docs.ctxOK.Load())
	assert.Equal(t, int32(1), docs.calls.Load())
}

func TestIngest_ConcurrentSameFilename(t *testing.T) {
	objs := newStubObjects("u", nil)
	docs := newStubDocs(nil)
	p := New(&stubExtractor{text: "t"}, docs, WithObjectStore(objs, "", 0))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Ingest(context.Background(), Upload{Data: pdfBytes(10), Filename: "same.pdf", ContentType: PDFContentType})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, k := range objs.keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	n, _ := docs.Count(context.Background())
	assert.Equal(t, int64(16), n)
}

func TestNewExtractor(t *testing.T) {
	e, err := NewExtractor("")
	require.NoError(t, err)
	assert.IsType(t, UniPDFExtractor{}, e)
	e, err = NewExtractor("ledongthuc")
	require.NoError(t, err)
	assert.IsType(t, LedongthucExtractor{}, e)
	_, err = NewExtractor("tika")
	assert.Error(t, err)
}

func TestExtractors_EmptyAndGarbage(t *testing.T) {
	for _, e := range []Extractor{UniPDFExtractor{}, LedongthucExtractor{}} {
		_, err := e.Extract(context.Background(), nil)
		assert.ErrorIs(t, err, errEmptyPDF)
		_, err = e.Extract(context.Background(), []byte{})
		assert.ErrorIs(t, err, errEmptyPDF)

		_, err = e.Extract(context.Background(), []byte("definitely not a pdf"))
		assert.Error(t, err)
	}
}

func TestIngest_EmptyPDFPersistsNothing(t *testing.T) {
	for _, e := range []Extractor{UniPDFExtractor{}, LedongthucExtractor{}} {
		objs, docs := object.NewMemoryStore("test"), metadata.NewMemoryStore()
		p := New(e, docs, WithObjectStore(objs, "", 0))

		res, err := p.Ingest(context.Background(), Upload{Data: []byte{}, Filename: "empty.pdf", ContentType: PDFContentType})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrExtractionFailed)

		n, err := docs.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		keys, err := objs.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	}
}
