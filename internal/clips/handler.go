package clips

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sendrec/clipdeck/internal/database"
	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/plans"
	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/sendrec/clipdeck/internal/session"
	"github.com/sendrec/clipdeck/internal/youtube"
)

type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignDownload(ctx context.Context, key string, filename string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type Handler struct {
	db             database.DBTX
	storage        ObjectStorage
	titles         youtube.TitleResolver
	baseURL        string
	maxUploadBytes int64
	maxRows        int
	maxSelection   int
	shareExpiry    time.Duration
	now            func() time.Time
}

// NewHandler builds the clip handlers. A maxUploadBytes of zero or less
// means the default plan limit.
func NewHandler(baseURL string, maxUploadBytes int64, maxRows int, maxSelection int) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = plans.Default.MaxUploadBytes
	}
	return &Handler{
		baseURL:        baseURL,
		maxUploadBytes: maxUploadBytes,
		maxRows:        maxRows,
		maxSelection:   maxSelection,
		shareExpiry:    72 * time.Hour,
		now:            time.Now,
	}
}

// SetShares enables shared exports. Both db and storage are required.
func (h *Handler) SetShares(db database.DBTX, s ObjectStorage, expiry time.Duration) {
	h.db = db
	h.storage = s
	if expiry > 0 {
		h.shareExpiry = expiry
	}
}

func (h *Handler) SetTitleResolver(r youtube.TitleResolver) {
	h.titles = r
}

func (h *Handler) SharesEnabled() bool {
	return h.db != nil && h.storage != nil
}

func currentSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := session.FromContext(r.Context())
	if sess == nil {
		httputil.WriteError(w, http.StatusInternalServerError, "session unavailable")
	}
	return sess
}

// writeStateError maps controller errors to HTTP responses.
func writeStateError(w http.ResponseWriter, err error) {
	var notFound *playlist.RecordNotFoundError
	var invalidEdit *dataset.InvalidEditError
	switch {
	case errors.As(err, &notFound):
		httputil.WriteError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalidEdit):
		httputil.WriteError(w, http.StatusBadRequest, invalidEdit.Error())
	case errors.Is(err, dataset.ErrUnknownKey):
		httputil.WriteError(w, http.StatusNotFound, "row not found")
	case errors.Is(err, playlist.ErrEmptySelection):
		httputil.WriteError(w, http.StatusConflict, "select at least one clip first")
	case errors.Is(err, playlist.ErrNoDataset):
		httputil.WriteError(w, http.StatusConflict, "upload a file first")
	case errors.Is(err, playlist.ErrNotPlaying):
		httputil.WriteError(w, http.StatusConflict, "playback is not active")
	case errors.Is(err, playlist.ErrUnknownEntry):
		httputil.WriteError(w, http.StatusNotFound, "clip is not in the playlist")
	default:
		slog.Error("clips: unexpected state error", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// ExportPrefix is the object key prefix of shared exports.
const ExportPrefix = "exports/"

func exportFileKey(token string) string {
	return fmt.Sprintf("%s%s.csv", ExportPrefix, token)
}
