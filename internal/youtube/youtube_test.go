package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/option"
)

func TestOEmbedResolverReturnsTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("unexpected url param %q", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("expected format=json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Round 5 vs Leinster","author_name":"Club"}`))
	}))
	defer srv.Close()

	o := &OEmbedResolver{Endpoint: srv.URL, Client: srv.Client()}
	title, err := o.Title(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "Round 5 vs Leinster" {
		t.Errorf("expected title, got %q", title)
	}
}

func TestOEmbedResolverNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	o := &OEmbedResolver{Endpoint: srv.URL, Client: srv.Client()}
	if _, err := o.Title(context.Background(), "missing"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestOEmbedResolverServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := &OEmbedResolver{Endpoint: srv.URL, Client: srv.Client()}
	_, err := o.Title(context.Background(), "abc")
	if err == nil || errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected generic error, got %v", err)
	}
}

func TestAPIResolverRequiresKey(t *testing.T) {
	if _, err := NewAPIResolver(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestAPIResolverReturnsSnippetTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/v3/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "abc123" {
			t.Errorf("expected id=abc123, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"abc123","snippet":{"title":"Six Nations final"}}]}`))
	}))
	defer srv.Close()

	a, err := NewAPIResolver(context.Background(), "key",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewAPIResolver: %v", err)
	}
	title, err := a.Title(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "Six Nations final" {
		t.Errorf("expected snippet title, got %q", title)
	}
}

func TestAPIResolverNoItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	a, err := NewAPIResolver(context.Background(), "key",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewAPIResolver: %v", err)
	}
	if _, err := a.Title(context.Background(), "gone"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

type stubResolver struct {
	title string
	err   error
	calls atomic.Int32
}

func (s *stubResolver) Title(ctx context.Context, videoID string) (string, error) {
	s.calls.Add(1)
	return s.title, s.err
}

func TestChainFallsBack(t *testing.T) {
	first := &stubResolver{err: errors.New("quota exceeded")}
	second := &stubResolver{title: "Fallback title"}

	title, err := Chain{first, second}.Title(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if title != "Fallback title" {
		t.Errorf("expected fallback title, got %q", title)
	}
	if first.calls.Load() != 1 || second.calls.Load() != 1 {
		t.Errorf("expected each resolver called once")
	}
}

func TestChainAllFail(t *testing.T) {
	_, err := Chain{&stubResolver{err: ErrVideoNotFound}, &stubResolver{err: errors.New("boom")}}.Title(context.Background(), "abc")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected joined error to contain ErrVideoNotFound, got %v", err)
	}
}

func TestEmptyChain(t *testing.T) {
	if _, err := (Chain{}).Title(context.Background(), "abc"); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestCacheMemoizesUntilExpiry(t *testing.T) {
	next := &stubResolver{title: "Cached"}
	c := NewCache(next, time.Minute, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for range 3 {
		if title, err := c.Title(context.Background(), "abc"); err != nil || title != "Cached" {
			t.Fatalf("Title: %q, %v", title, err)
		}
	}
	if next.calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Title(context.Background(), "abc"); err != nil {
		t.Fatalf("Title: %v", err)
	}
	if next.calls.Load() != 2 {
		t.Errorf("expected refresh after expiry, got %d calls", next.calls.Load())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	next := &stubResolver{err: ErrVideoNotFound}
	c := NewCache(next, time.Minute, 0)

	_, _ = c.Title(context.Background(), "abc")
	_, _ = c.Title(context.Background(), "abc")
	if next.calls.Load() != 2 {
		t.Errorf("expected failures to reach upstream each time, got %d", next.calls.Load())
	}
}

func TestCacheIsBounded(t *testing.T) {
	next := &stubResolver{title: "Clip"}
	c := NewCache(next, time.Hour, 100)

	for i := range 1000 {
		if _, err := c.Title(context.Background(), fmt.Sprintf("video%04d", i)); err != nil {
			t.Fatalf("Title: %v", err)
		}
	}
	if c.Len() != 100 {
		t.Fatalf("expected the cache to hold 100 titles, got %d", c.Len())
	}

	// The oldest ids were evicted and go upstream again.
	before := next.calls.Load()
	_, _ = c.Title(context.Background(), "video0000")
	_, _ = c.Title(context.Background(), "video0999")
	if got := next.calls.Load() - before; got != 1 {
		t.Errorf("expected only the evicted id to be fetched again, got %d upstream calls", got)
	}
}

func TestCacheSweepDropsExpired(t *testing.T) {
	next := &stubResolver{title: "Clip"}
	c := NewCache(next, time.Minute, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := range 10 {
		_, _ = c.Title(context.Background(), fmt.Sprintf("old%d", i))
	}
	now = now.Add(2 * time.Minute)
	_, _ = c.Title(context.Background(), "fresh")

	if removed := c.Sweep(); removed != 10 {
		t.Errorf("expected 10 expired titles removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected only the fresh title to remain, got %d", c.Len())
	}
}

func TestCacheStartSweeperStopsOnCancel(t *testing.T) {
	c := NewCache(&stubResolver{title: "Clip"}, time.Minute, 0)
	ctx, cancel := context.WithCancel(context.Background())
	c.StartSweeper(ctx, time.Millisecond)
	cancel()
	time.Sleep(5 * time.Millisecond)
}
