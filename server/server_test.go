package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"x2tsvc/config"
	"x2tsvc/services"
)

// fakeS3 is an in-memory path-style S3 backend.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) put(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
}

func (f *fakeS3) get(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	return data, ok
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path[1:]

	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		data, ok := f.objects[path]
		f.mu.Unlock()
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, path)
			return
		}
		w.Write(data)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.mu.Lock()
		f.objects[path] = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type errorBody struct {
	Reason  *string `json:"reason"`
	X2TCode *int    `json:"x2t_code"`
	Message string  `json:"message"`
}

// newTestServer stands up the full stack with an in-memory S3 and a shell
// script standing in for x2t.
func newTestServer(t *testing.T, store *fakeS3, x2tScript string) (*httptest.Server, *services.Janitor) {
	t.Helper()

	s3Srv := httptest.NewServer(store)
	t.Cleanup(s3Srv.Close)

	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "x2t"), []byte(x2tScript), 0755); err != nil {
		t.Fatalf("failed to write fake x2t: %v", err)
	}

	cfg := &config.Config{
		X2TPath:            binDir,
		FontsPath:          "/opt/fonts",
		TempDir:            t.TempDir(),
		ConversionTimeout:  30 * time.Second,
		IntegrityReadLimit: 32 * 1024,
		S3Region:           "ap-southeast-2",
		AWSS3AccessKey:     "test",
		AWSS3SecretKey:     "test",
		S3Endpoint:         s3Srv.URL,
		S3UsePathStyle:     true,
	}

	janitor := services.NewJanitor()
	pipeline := services.NewPipeline(
		cfg,
		services.NewS3Service(cfg),
		services.NewX2TService(cfg.X2TPath, cfg.FontsPath),
		janitor,
		nil,
	)

	srv := httptest.NewServer(New(pipeline).Handler())
	t.Cleanup(srv.Close)
	return srv, janitor
}

func postConvert(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+"/convert", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /convert failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestConvertEndpoint_Success(t *testing.T) {
	t.Parallel()

	store := newFakeS3()
	store.put("docs", "report.docx", []byte("PK\x03\x04 docx bytes"))

	srv, janitor := newTestServer(t, store, `#!/bin/sh
out=$(sed -n 's:.*<m_sFileTo>\(.*\)</m_sFileTo>.*:\1:p' "$1")
printf '%%PDF-1.4 converted' > "$out"
exit 0
`)

	resp := postConvert(t, srv, `{
		"source_bucket": "docs", "source_key": "report.docx",
		"dest_bucket": "out", "dest_key": "report.pdf"
	}`)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}

	stored, ok := store.get("out", "report.pdf")
	if !ok {
		t.Fatal("destination object not written")
	}
	if !bytes.Equal(stored, []byte("%PDF-1.4 converted")) {
		t.Errorf("destination bytes differ from converter output: %q", stored)
	}

	janitor.Wait()
}

func TestConvertEndpoint_EncryptedFile(t *testing.T) {
	t.Parallel()

	store := newFakeS3()
	store.put("docs", "secret.docx", []byte{0x00, 0xde, 0xad, 0xbe, 0xef})

	srv, janitor := newTestServer(t, store, `#!/bin/sh
echo "terminate called after throwing an instance of 'std::out_of_range'" >&2
exit 91
`)

	resp := postConvert(t, srv, `{
		"source_bucket": "docs", "source_key": "secret.docx",
		"dest_bucket": "out", "dest_key": "secret.pdf"
	}`)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Reason == nil || *body.Reason != "FILE_LIKELY_ENCRYPTED" {
		t.Errorf("expected reason FILE_LIKELY_ENCRYPTED, got %v", body.Reason)
	}
	if body.X2TCode == nil || *body.X2TCode != 91 {
		t.Errorf("expected x2t_code 91, got %v", body.X2TCode)
	}
	if body.Message != "file is encrypted" {
		t.Errorf("expected message %q, got %q", "file is encrypted", body.Message)
	}

	janitor.Wait()
}

func TestConvertEndpoint_MissingKey(t *testing.T) {
	t.Parallel()

	marker := filepath.Join(t.TempDir(), "invoked")
	srv, janitor := newTestServer(t, newFakeS3(), "#!/bin/sh\ntouch "+marker+"\nexit 0\n")

	resp := postConvert(t, srv, `{
		"source_bucket": "docs", "source_key": "absent.docx",
		"dest_bucket": "out", "dest_key": "absent.pdf"
	}`)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Reason == nil || *body.Reason != "NO_SUCH_KEY" {
		t.Errorf("expected reason NO_SUCH_KEY, got %v", body.Reason)
	}
	if body.X2TCode != nil {
		t.Errorf("expected null x2t_code, got %v", *body.X2TCode)
	}
	if body.Message != "key not found in source bucket" {
		t.Errorf("unexpected message: %q", body.Message)
	}

	janitor.Wait()
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("converter was invoked for a missing source key")
	}
}

func TestConvertEndpoint_BadRequests(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newFakeS3(), "#!/bin/sh\nexit 0\n")

	resp := postConvert(t, srv, `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON: expected 400, got %d", resp.StatusCode)
	}

	resp = postConvert(t, srv, `{"source_bucket": "docs"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing fields: expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newFakeS3(), "#!/bin/sh\nexit 0\n")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
