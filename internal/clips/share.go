package clips

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/auth"
	"github.com/sendrec/clipdeck/internal/database"
	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/playlist"
)

type shareResponse struct {
	Token     string    `json:"token"`
	ShareURL  string    `json:"shareUrl"`
	ClipCount int       `json:"clipCount"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareExport uploads the current selection as CSV and returns a link that
// stays valid until the export expires.
func (h *Handler) ShareExport(w http.ResponseWriter, r *http.Request) {
	if !h.SharesEnabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "shared exports are not configured")
		return
	}
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	records := sess.State().SelectedRecords()
	if len(records) == 0 {
		writeStateError(w, playlist.ErrEmptySelection)
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, records); err != nil {
		slog.Error("clips: failed to build shared export", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	token := uuid.NewString()
	key := exportFileKey(token)
	if err := h.storage.PutObject(r.Context(), key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv; charset=utf-8"); err != nil {
		slog.Error("clips: failed to upload shared export", "key", key, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store export")
		return
	}

	expiresAt := h.now().Add(h.shareExpiry).UTC()
	userID := auth.UserIDFromContext(r.Context())
	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO clip_exports (token, user_id, object_key, clip_count, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		token, userID, key, len(records), expiresAt,
	); err != nil {
		slog.Error("clips: failed to record shared export", "token", token, "error", err)
		if delErr := h.storage.DeleteObject(r.Context(), key); delErr != nil {
			slog.Error("clips: failed to remove unrecorded export", "key", key, "error", delErr)
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store export")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, shareResponse{
		Token:     token,
		ShareURL:  h.baseURL + "/exports/" + token,
		ClipCount: len(records),
		ExpiresAt: expiresAt,
	})
}

// DownloadShared redirects a share link to a short-lived presigned download.
func (h *Handler) DownloadShared(w http.ResponseWriter, r *http.Request) {
	if !h.SharesEnabled() {
		httputil.WriteError(w, http.StatusNotFound, "export not found")
		return
	}
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "export not found")
		return
	}

	var objectKey string
	var expiresAt time.Time
	err = h.db.QueryRow(r.Context(),
		`SELECT object_key, expires_at FROM clip_exports WHERE token = $1`,
		token.String(),
	).Scan(&objectKey, &expiresAt)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "export not found")
		return
	}
	if h.now().After(expiresAt) {
		httputil.WriteError(w, http.StatusGone, "link expired")
		return
	}

	downloadURL, err := h.storage.PresignDownload(r.Context(), objectKey, "clips.csv", 15*time.Minute)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}
	http.Redirect(w, r, downloadURL, http.StatusFound)
}

func deleteWithRetry(ctx context.Context, storage ObjectStorage, key string, maxAttempts int) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = storage.DeleteObject(ctx, key)
		if lastErr == nil {
			return nil
		}
		slog.Error("storage: delete attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "key", key, "error", lastErr)
	}
	return fmt.Errorf("all %d delete attempts failed for %s: %w", maxAttempts, key, lastErr)
}

// PurgeExpiredExports removes expired shared exports from storage and the
// database, at most 50 per call.
func PurgeExpiredExports(ctx context.Context, db database.DBTX, storage ObjectStorage) {
	rows, err := db.Query(ctx,
		`SELECT token, object_key FROM clip_exports
		 WHERE expires_at < now()
		 LIMIT 50`)
	if err != nil {
		slog.Error("cleanup: failed to query expired exports", "error", err)
		return
	}

	type expired struct{ token, key string }
	var batch []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.token, &e.key); err != nil {
			slog.Error("cleanup: failed to scan export", "error", err)
			continue
		}
		batch = append(batch, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("cleanup: row iteration error", "error", err)
	}
	rows.Close()

	for _, e := range batch {
		if err := deleteWithRetry(ctx, storage, e.key, 3); err != nil {
			slog.Error("cleanup: failed to delete export", "key", e.key, "error", err)
			continue
		}
		if _, err := db.Exec(ctx, `DELETE FROM clip_exports WHERE token = $1`, e.token); err != nil {
			slog.Error("cleanup: failed to remove export record", "token", e.token, "error", err)
		}
	}
	if len(batch) > 0 {
		slog.Info("cleanup: purged expired exports", "count", len(batch))
	}
}

func StartCleanupLoop(ctx context.Context, db database.DBTX, storage ObjectStorage, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("cleanup: shutting down")
				return
			case <-ticker.C:
				PurgeExpiredExports(ctx, db, storage)
			}
		}
	}()
}
