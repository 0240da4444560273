package clips

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/sendrec/clipdeck/internal/session"
)

type currentClip struct {
	Player playlist.PlayerParams `json:"player"`
	Record dataset.ClipRecord    `json:"record"`
}

type playbackStatus struct {
	Phase    playlist.Phase     `json:"phase"`
	Playing  bool               `json:"playing"`
	Cursor   int                `json:"cursor"`
	Total    int                `json:"total"`
	Finished bool               `json:"finished"`
	Current  *currentClip       `json:"current,omitempty"`
	Playlist playlist.Selection `json:"playlist"`
	Error    string             `json:"error,omitempty"`
}

// respondPlayback resolves the clip under the cursor and writes the status.
// An entry that no longer matches any record stops playback and is reported
// as 404. A clip without a video id keeps playback running so the user can
// skip it.
func respondPlayback(w http.ResponseWriter, sess *session.Session, st playlist.State) {
	status := playbackStatus{
		Phase:    st.Phase(),
		Playing:  st.Playing,
		Cursor:   int(st.Cursor),
		Total:    len(st.Selection),
		Playlist: nonNilSelection(st.Selection),
	}
	if !st.Playing {
		httputil.WriteJSON(w, http.StatusOK, status)
		return
	}
	status.Finished = int(st.Cursor) == len(st.Selection)-1

	params, rec, err := st.Current()
	var notFound *playlist.RecordNotFoundError
	switch {
	case err == nil:
		status.Current = &currentClip{Player: params, Record: rec}
		httputil.WriteJSON(w, http.StatusOK, status)
	case errors.Is(err, playlist.ErrNotPlayable):
		status.Current = &currentClip{Record: rec}
		status.Error = "this clip has no video; add a YouTube URL"
		httputil.WriteJSON(w, http.StatusOK, status)
	case errors.As(err, &notFound), errors.Is(err, playlist.ErrCursorOutOfRange):
		slog.Warn("clips: stopping playback", "session", sess.ID, "error", err)
		stopped, _ := sess.Apply(playlist.Stop{})
		status = playbackStatus{
			Phase:    stopped.Phase(),
			Total:    len(stopped.Selection),
			Playlist: nonNilSelection(stopped.Selection),
			Error:    err.Error(),
		}
		code := http.StatusNotFound
		if errors.Is(err, playlist.ErrCursorOutOfRange) {
			code = http.StatusOK
		}
		httputil.WriteJSON(w, code, status)
	default:
		writeStateError(w, err)
	}
}

func (h *Handler) playbackEvent(ev playlist.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := currentSession(w, r)
		if sess == nil {
			return
		}
		st, err := sess.Apply(ev)
		if err != nil {
			writeStateError(w, err)
			return
		}
		respondPlayback(w, sess, st)
	}
}

func (h *Handler) StartPlayback(w http.ResponseWriter, r *http.Request) {
	h.playbackEvent(playlist.Start{})(w, r)
}

func (h *Handler) NextClip(w http.ResponseWriter, r *http.Request) {
	h.playbackEvent(playlist.Next{})(w, r)
}

func (h *Handler) PrevClip(w http.ResponseWriter, r *http.Request) {
	h.playbackEvent(playlist.Prev{})(w, r)
}

func (h *Handler) StopPlayback(w http.ResponseWriter, r *http.Request) {
	h.playbackEvent(playlist.Stop{})(w, r)
}

type jumpRequest struct {
	Index *int   `json:"index"`
	Key   string `json:"key"`
}

// JumpTo moves the cursor to a playlist entry given by key or index.
func (h *Handler) JumpTo(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	var req jumpRequest
	if !httputil.DecodeJSON(w, r, 4096, &req) {
		return
	}

	var jump playlist.Jump
	switch {
	case req.Key != "":
		key, err := uuid.Parse(req.Key)
		if err != nil || key == uuid.Nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid clip key")
			return
		}
		jump.Key = key
	case req.Index != nil:
		jump.Index = *req.Index
	default:
		httputil.WriteError(w, http.StatusBadRequest, "index or key is required")
		return
	}

	st, err := sess.Apply(jump)
	if err != nil {
		writeStateError(w, err)
		return
	}
	respondPlayback(w, sess, st)
}

func (h *Handler) PlaybackStatus(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	respondPlayback(w, sess, sess.State())
}
