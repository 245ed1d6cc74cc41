package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		if fh.Header.Get("Content-Type") != "application/pdf" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"File must be a PDF"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"filename":       fh.Filename,
			"extracted_text": string(data),
			"object_url":     "",
		})
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.ExtractedText == "" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"No response, try again"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "about " + req.ExtractedText})
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable","pool_state":"uninitialized","timestamp":1}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	a.ErrWriter = io.Discard
	err := a.Run(append([]string{"planet"}, args...))
	return out.String(), err
}

func TestUploadCommand(t *testing.T) {
	srv := fakeAPI(t)
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	out, err := run(t, "--api-url", srv.URL, "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"filename": "paper.pdf"`)
	assert.Contains(t, out, `"extracted_text": "%PDF-1.4"`)
}

func TestUploadCommand_RequiresPath(t *testing.T) {
	_, err := run(t, "upload")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, "--api-url", srv.URL, "ask", "--text", "planets", "-q", "what?")
	require.NoError(t, err)
	assert.Equal(t, "about planets\n", out)

	_, err = run(t, "--api-url", srv.URL, "ask", "-q", "what?")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "No response, try again", apiErr.Detail)
}

func TestHealthCommand_Unavailable(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, "--api-url", srv.URL, "health")
	assert.Error(t, err)
	assert.Contains(t, out, `"pool_state": "uninitialized"`)
}

func TestReconcileCommand_MemoryStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  metadata:
    type: memory
  object:
    type: memory
log:
  level: error
`), 0o600))

	out, err := run(t, "--config", path, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, `"scanned": 0`)
}

func TestReconcileCommand_RequiresObjectStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  metadata:
    type: memory
log:
  level: error
`), 0o600))

	_, err := run(t, "--config", path, "reconcile")
	assert.Error(t, err)
}
