package clips

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/sendrec/clipdeck/internal/playlist"
)

type stubTitles struct {
	title string
	err   error
}

func (s stubTitles) Title(ctx context.Context, videoID string) (string, error) {
	return s.title, s.err
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		params playlist.PlayerParams
		want   string
	}{
		{
			playlist.PlayerParams{VideoID: "XNaqqZNJUMc", StartSeconds: 10, Autoplay: true},
			"https://www.youtube.com/embed/XNaqqZNJUMc?start=10&autoplay=1&rel=0",
		},
		{
			playlist.PlayerParams{VideoID: "abc", StartSeconds: 0},
			"https://www.youtube.com/embed/abc?start=0&autoplay=0&rel=0",
		},
	}
	for _, tt := range tests {
		if got := EmbedURL(tt.params); got != tt.want {
			t.Errorf("EmbedURL(%+v) = %q, want %q", tt.params, got, tt.want)
		}
	}
}

func TestPlayerPageNothingPlaying(t *testing.T) {
	c := newTestClient(t, newHandler())
	rec := c.do(http.MethodGet, "/player", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("expected html, got %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Nothing is playing") {
		t.Error("expected nothing-playing message")
	}
}

func TestPlayerPageRendersEmbed(t *testing.T) {
	h := newHandler()
	h.SetTitleResolver(stubTitles{title: "Round 5 <highlights>"})
	c := newTestClient(t, h)
	up := c.mustUpload(twoTeams, testVideoURL)
	c.doJSON(http.MethodPut, "/api/selection", refsFor(up.Records...))
	c.do(http.MethodPost, "/api/playback/start", nil, "")

	rec := c.do(http.MethodGet, "/player", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "https://www.youtube.com/embed/XNaqqZNJUMc?start=10&amp;autoplay=1&amp;rel=0") {
		t.Errorf("expected embed src in body")
	}
	if !strings.Contains(body, `nonce="test-nonce"`) {
		t.Error("expected nonce on inline script and style")
	}
	if !strings.Contains(body, "Round 5 &lt;highlights&gt;") {
		t.Error("expected escaped video title")
	}
	if !strings.Contains(body, "1 / 2") {
		t.Error("expected playlist position")
	}
	if !strings.Contains(body, `data-action="prev" disabled`) {
		t.Error("expected previous button disabled on first clip")
	}
}

func TestPlayerPageUnplayableClip(t *testing.T) {
	c := newTestClient(t, newHandler())
	up := c.mustUpload(twoTeams, "")
	c.doJSON(http.MethodPut, "/api/selection", refsFor(up.Records[0]))
	c.do(http.MethodPost, "/api/playback/start", nil, "")

	rec := c.do(http.MethodGet, "/player", nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestVideoTitle(t *testing.T) {
	tests := []struct {
		name      string
		resolver  *stubTitles
		url       string
		wantCode  int
		wantTitle string
	}{
		{"resolved", &stubTitles{title: "Final"}, testVideoURL, http.StatusOK, "Final"},
		{"lookup fails", &stubTitles{err: errors.New("quota")}, testVideoURL, http.StatusOK, "Untitled"},
		{"no resolver", nil, "https://youtu.be/XNaqqZNJUMc", http.StatusOK, "Untitled"},
		{"bad url", nil, "https://vimeo.com/123", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler()
			if tt.resolver != nil {
				h.SetTitleResolver(*tt.resolver)
			}
			c := newTestClient(t, h)
			rec := c.do(http.MethodGet, "/api/video/title?url="+url.QueryEscape(tt.url), nil, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantTitle == "" {
				return
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["title"] != tt.wantTitle || body["videoId"] != "XNaqqZNJUMc" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}
