package server

import (
	"context"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sendrec/clipdeck/internal/auth"
	"github.com/sendrec/clipdeck/internal/clips"
	"github.com/sendrec/clipdeck/internal/database"
	"github.com/sendrec/clipdeck/internal/docs"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/plans"
	"github.com/sendrec/clipdeck/internal/ratelimit"
	"github.com/sendrec/clipdeck/internal/session"
	"github.com/sendrec/clipdeck/internal/validate"
	"github.com/sendrec/clipdeck/internal/youtube"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                    database.DBTX
	Pinger                Pinger
	Storage               clips.ObjectStorage
	SessionIdle           time.Duration
	WebFS                 fs.FS
	JWTSecret             string
	AllowedUsers          []string
	BaseURL               string
	MaxUploadBytes        int64
	MaxRows               int
	MaxSelection          int
	ShareExpiry           time.Duration
	S3PublicEndpoint      string
	AllowedFrameAncestors string
	EnableDocs            bool
	TitleResolver         youtube.TitleResolver
	// Logger receives access logs. Defaults to slog.Default().
	Logger *slog.Logger
}

type Server struct {
	router       chi.Router
	pinger       Pinger
	authHandler  *auth.Handler
	clipsHandler *clips.Handler
	sessions     *session.Store
	limiters     []*ratelimit.Limiter
	titles       youtube.TitleResolver
	webFS        fs.FS
	enableDocs   bool
	limits       limitsResponse
	secure       bool
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		StorageEndpoint:       cfg.S3PublicEndpoint,
		AllowedFrameAncestors: cfg.AllowedFrameAncestors,
	}))

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = plans.Default.MaxUploadBytes
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = plans.Default.MaxRows
	}
	if cfg.MaxSelection <= 0 {
		cfg.MaxSelection = plans.Default.MaxSelectionRequests
	}
	if cfg.ShareExpiry <= 0 {
		cfg.ShareExpiry = time.Duration(plans.Default.ShareExpiryHours) * time.Hour
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = time.Duration(plans.Default.SessionIdleMinutes) * time.Minute
	}
	sessions := session.NewStore(cfg.SessionIdle)

	s := &Server{
		router:     r,
		pinger:     cfg.Pinger,
		sessions:   sessions,
		titles:     cfg.TitleResolver,
		webFS:      cfg.WebFS,
		enableDocs: cfg.EnableDocs,
		secure:     strings.HasPrefix(baseURL, "https://"),
	}

	s.clipsHandler = clips.NewHandler(strings.TrimSuffix(baseURL, "/"), cfg.MaxUploadBytes, cfg.MaxRows, cfg.MaxSelection)
	if cfg.TitleResolver != nil {
		s.clipsHandler.SetTitleResolver(cfg.TitleResolver)
	}

	if cfg.DB != nil {
		jwtSecret := cfg.JWTSecret
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}
		s.authHandler = auth.NewHandler(cfg.DB, jwtSecret, cfg.AllowedUsers)
		if cfg.Storage != nil {
			s.clipsHandler.SetShares(cfg.DB, cfg.Storage, cfg.ShareExpiry)
		}
	}

	s.limits = limitsResponse{
		Fields:             validate.FieldLimits(),
		MaxUploadBytes:     cfg.MaxUploadBytes,
		MaxRows:            cfg.MaxRows,
		MaxSelection:       cfg.MaxSelection,
		SessionIdleMinutes: int(cfg.SessionIdle / time.Minute),
		SharesEnabled:      s.clipsHandler.SharesEnabled(),
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartMaintenance runs the background sweepers until ctx is done.
func (s *Server) StartMaintenance(ctx context.Context, sessionSweep time.Duration) {
	session.StartExpiryLoop(ctx, s.sessions, sessionSweep)
	for _, l := range s.limiters {
		l.StartSweeper(ctx, 10*time.Minute)
	}
	if c, ok := s.titles.(titleSweeper); ok {
		c.StartSweeper(ctx, 10*time.Minute)
	}
}

// titleSweeper is implemented by resolvers that cache, such as youtube.Cache.
type titleSweeper interface {
	StartSweeper(ctx context.Context, interval time.Duration)
}

func (s *Server) newLimiter(requestsPerSecond float64, burst int) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(requestsPerSecond, burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	s.router.Get("/api/sample.csv", s.clipsHandler.SampleCSV)

	if s.enableDocs {
		s.router.Get("/api/docs", docs.HandleDocs)
		s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)
	}

	if s.authHandler != nil {
		authLimiter := s.newLimiter(1, 10)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Use(s.authHandler.Middleware)
			r.Get("/me", s.authHandler.Me)
		})
	}

	clipLimiter := s.newLimiter(10, 40)
	s.router.Group(func(r chi.Router) {
		r.Use(clipLimiter.Middleware)
		r.Use(s.sessions.Middleware(s.secure))
		if s.authHandler != nil {
			r.Use(s.authHandler.Middleware)
			r.Use(s.authHandler.RequireSubscription)
		}

		r.Post("/api/dataset", s.clipsHandler.Upload)
		r.Get("/api/dataset", s.clipsHandler.GetDataset)
		r.Patch("/api/dataset/rows/{key}", s.clipsHandler.EditRow)

		r.Put("/api/filters", s.clipsHandler.SetFilters)
		r.Get("/api/summary", s.clipsHandler.Summary)

		r.Put("/api/selection", s.clipsHandler.SetSelection)
		r.Delete("/api/selection", s.clipsHandler.ClearSelection)
		r.Get("/api/selection/export", s.clipsHandler.Export)
		r.Post("/api/selection/export/share", s.clipsHandler.ShareExport)

		r.Get("/api/playback", s.clipsHandler.PlaybackStatus)
		r.Post("/api/playback/start", s.clipsHandler.StartPlayback)
		r.Post("/api/playback/next", s.clipsHandler.NextClip)
		r.Post("/api/playback/prev", s.clipsHandler.PrevClip)
		r.Post("/api/playback/stop", s.clipsHandler.StopPlayback)
		r.Post("/api/playback/jump", s.clipsHandler.JumpTo)

		r.Get("/api/video/title", s.clipsHandler.VideoTitle)
	})

	// The player is opened by navigation, which carries the session cookie
	// but no bearer token. It only renders what the session already holds.
	s.router.With(s.sessions.Middleware(s.secure)).Get("/player", s.clipsHandler.PlayerPage)

	if s.clipsHandler.SharesEnabled() {
		downloadLimiter := s.newLimiter(2, 10)
		s.router.With(downloadLimiter.Middleware).Get("/exports/{token}", s.clipsHandler.DownloadShared)
	}

	if s.webFS != nil {
		s.router.NotFound(clientApp(s.webFS))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type limitsResponse struct {
	Fields             map[string]int `json:"fields"`
	MaxUploadBytes     int64          `json:"maxUploadBytes"`
	MaxRows            int            `json:"maxRows"`
	MaxSelection       int            `json:"maxSelection"`
	SessionIdleMinutes int            `json:"sessionIdleMinutes"`
	SharesEnabled      bool           `json:"sharesEnabled"`
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.limits)
}
