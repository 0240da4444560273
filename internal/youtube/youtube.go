// Package youtube looks up video titles for the clip player header.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

var ErrVideoNotFound = errors.New("youtube: video not found")

// TitleResolver returns the human title of a video.
type TitleResolver interface {
	Title(ctx context.Context, videoID string) (string, error)
}

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// OEmbedResolver reads titles from the public oEmbed endpoint. It needs no key.
type OEmbedResolver struct {
	Endpoint string
	Client   *http.Client
}

func NewOEmbedResolver() *OEmbedResolver {
	return &OEmbedResolver{
		Endpoint: defaultOEmbedEndpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (o *OEmbedResolver) Title(ctx context.Context, videoID string) (string, error) {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build oembed request: %w", err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oembed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusBadRequest:
		return "", ErrVideoNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("oembed returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode oembed response: %w", err)
	}
	if payload.Title == "" {
		return "", ErrVideoNotFound
	}
	return payload.Title, nil
}

// APIResolver reads titles through the YouTube Data API v3.
type APIResolver struct {
	service *yt.Service
}

func NewAPIResolver(ctx context.Context, apiKey string, opts ...option.ClientOption) (*APIResolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &APIResolver{service: service}, nil
}

func (a *APIResolver) Title(ctx context.Context, videoID string) (string, error) {
	resp, err := a.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list video %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", ErrVideoNotFound
	}
	return resp.Items[0].Snippet.Title, nil
}

// Chain tries each resolver in order and returns the first title found.
type Chain []TitleResolver

func (c Chain) Title(ctx context.Context, videoID string) (string, error) {
	var errs []error
	for _, r := range c {
		title, err := r.Title(ctx, videoID)
		if err == nil {
			return title, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Debug("youtube: title resolver failed", "resolver", fmt.Sprintf("%T", r), "video_id", videoID, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrVideoNotFound
	}
	return "", errors.Join(errs...)
}

type cachedTitle struct {
	title   string
	expires time.Time
}

// DefaultCacheSize bounds a Cache built with a non-positive size.
const DefaultCacheSize = 2048

// Cache memoizes titles from an underlying resolver. Failures are not cached.
// At most maxEntries titles are held; the least recently used goes first.
type Cache struct {
	next    TitleResolver
	ttl     time.Duration
	now     func() time.Time
	entries *lru.Cache[string, cachedTitle]
}

func NewCache(next TitleResolver, ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	entries, err := lru.New[string, cachedTitle](maxEntries)
	if err != nil {
		panic(err)
	}
	return &Cache{next: next, ttl: ttl, now: time.Now, entries: entries}
}

func (c *Cache) Title(ctx context.Context, videoID string) (string, error) {
	if e, ok := c.entries.Get(videoID); ok {
		if c.now().Before(e.expires) {
			return e.title, nil
		}
		c.entries.Remove(videoID)
	}

	title, err := c.next.Title(ctx, videoID)
	if err != nil {
		return "", err
	}
	c.entries.Add(videoID, cachedTitle{title: title, expires: c.now().Add(c.ttl)})
	return title, nil
}

func (c *Cache) Len() int { return c.entries.Len() }

// Sweep drops expired titles and reports how many it removed.
func (c *Cache) Sweep() int {
	now := c.now()
	removed := 0
	for _, id := range c.entries.Keys() {
		if e, ok := c.entries.Peek(id); ok && !now.Before(e.expires) {
			c.entries.Remove(id)
			removed++
		}
	}
	return removed
}

func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					slog.Debug("youtube: swept expired titles", "count", n)
				}
			}
		}
	}()
}
