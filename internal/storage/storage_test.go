package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sendrec/clipdeck/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestStorage(t *testing.T, endpoint string) *storage.Storage {
	t.Helper()
	s, err := storage.New(context.Background(), storage.Config{
		Endpoint:  endpoint,
		Bucket:    "clips",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("expected no error creating storage client, got: %v", err)
	}
	return s
}

func TestNewStorageRequiresConfig(t *testing.T) {
	newTestStorage(t, "http://localhost:9000")
}

func TestPutObjectUsesPathStyle(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	s := newTestStorage(t, srv.URL)

	body := "row_name,team\nTry,Red\n"
	if err := s.PutObject(context.Background(), "exports/abc.csv", strings.NewReader(body), int64(len(body)), "text/csv"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Method != http.MethodPut {
		t.Errorf("expected PUT, got %s", reqs[0].Method)
	}
	if reqs[0].Path != "/clips/exports/abc.csv" {
		t.Errorf("expected path /clips/exports/abc.csv, got %s", reqs[0].Path)
	}
	if !strings.Contains(reqs[0].Body, "Try,Red") {
		t.Errorf("expected body to contain upload, got %q", reqs[0].Body)
	}
}

func TestPutObjectNilStorage(t *testing.T) {
	var s *storage.Storage
	if err := s.PutObject(context.Background(), "k", strings.NewReader(""), 0, "text/csv"); err == nil {
		t.Fatal("expected error from nil storage")
	}
}

func TestDeleteObject(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusNoContent)
	s := newTestStorage(t, srv.URL)

	if err := s.DeleteObject(context.Background(), "exports/abc.csv"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	reqs := requests()
	if len(reqs) != 1 || reqs[0].Method != http.MethodDelete || reqs[0].Path != "/clips/exports/abc.csv" {
		t.Errorf("unexpected requests: %+v", reqs)
	}
}

func TestPresignDownloadUsesPublicEndpoint(t *testing.T) {
	s, err := storage.New(context.Background(), storage.Config{
		Endpoint:       "http://minio:9000",
		PublicEndpoint: "https://files.example.com",
		Bucket:         "clips",
		AccessKey:      "test",
		SecretKey:      "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw, err := s.PresignDownload(context.Background(), "exports/abc.csv", `clips "final".csv`, time.Hour)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "files.example.com" {
		t.Errorf("expected public endpoint host, got %s", u.Host)
	}
	if u.Path != "/clips/exports/abc.csv" {
		t.Errorf("expected path /clips/exports/abc.csv, got %s", u.Path)
	}
	disposition := u.Query().Get("response-content-disposition")
	if disposition != `attachment; filename="clips _final_.csv"` {
		t.Errorf("unexpected disposition %q", disposition)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Endpoint: "http://localhost:9000"})
	if err == nil {
		t.Fatal("expected error without a bucket name")
	}
}

func TestEnsureBucketSkipsCreateWhenPresent(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	s := newTestStorage(t, srv.URL)

	if err := s.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	reqs := requests()
	if len(reqs) != 1 || reqs[0].Method != http.MethodHead {
		t.Errorf("expected a single HEAD request, got %+v", reqs)
	}
}

func TestExpireObjectsSendsLifecycleRule(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	s := newTestStorage(t, srv.URL)

	if err := s.ExpireObjects(context.Background(), "exports/", 3); err != nil {
		t.Fatalf("ExpireObjects: %v", err)
	}
	reqs := requests()
	if len(reqs) != 1 || reqs[0].Method != http.MethodPut || reqs[0].Path != "/clips" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	for _, want := range []string{"<Prefix>exports/</Prefix>", "<Days>3</Days>", "<Status>Enabled</Status>"} {
		if !strings.Contains(reqs[0].Body, want) {
			t.Errorf("lifecycle body missing %s: %s", want, reqs[0].Body)
		}
	}
}
