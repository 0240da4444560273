package clips

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/playlist"
)

// EmbedURL is the YouTube iframe source for one clip.
func EmbedURL(p playlist.PlayerParams) string {
	autoplay := 0
	if p.Autoplay {
		autoplay = 1
	}
	return fmt.Sprintf("https://www.youtube.com/embed/%s?start=%d&autoplay=%d&rel=0",
		url.PathEscape(p.VideoID), p.StartSeconds, autoplay)
}

type playerPageData struct {
	Title    string
	RowName  string
	Team     string
	EmbedURL string
	Position int
	Total    int
	First    bool
	Last     bool
	Nonce    string
}

type playerMessageData struct {
	Message string
	Nonce   string
}

var playerPageTemplate = template.Must(template.New("player").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.RowName}} - {{.Title}}</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; overflow: hidden; background: #0f172a; }
        .container { display: flex; flex-direction: column; width: 100%; height: 100%; }
        .video-wrapper { flex: 1; min-height: 0; background: #000; }
        iframe { width: 100%; height: 100%; border: 0; }
        .footer {
            display: flex;
            align-items: center;
            justify-content: space-between;
            padding: 8px 12px;
            background: #1e293b;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            font-size: 13px;
        }
        .footer-title { white-space: nowrap; overflow: hidden; text-overflow: ellipsis; margin-right: 12px; }
        .footer button {
            background: #334155;
            color: #e2e8f0;
            border: none;
            border-radius: 4px;
            padding: 4px 10px;
            margin-left: 6px;
            cursor: pointer;
        }
        .footer button:disabled { opacity: 0.4; cursor: not-allowed; }
    </style>
</head>
<body>
    <div class="container">
        <div class="video-wrapper">
            <iframe src="{{.EmbedURL}}" allow="autoplay; encrypted-media; fullscreen" allowfullscreen></iframe>
        </div>
        <div class="footer">
            <span class="footer-title">{{.RowName}} ({{.Team}}) &middot; {{.Title}}</span>
            <span>
                <span>{{.Position}} / {{.Total}}</span>
                <button type="button" data-action="prev"{{if .First}} disabled{{end}}>Previous</button>
                <button type="button" data-action="next"{{if .Last}} disabled{{end}}>Next</button>
                <button type="button" data-action="stop">Stop</button>
            </span>
        </div>
    </div>
    <script nonce="{{.Nonce}}">
        document.querySelectorAll('button[data-action]').forEach(function(btn) {
            btn.addEventListener('click', function() {
                fetch('/api/playback/' + btn.dataset.action, {method: 'POST', credentials: 'same-origin'})
                    .then(function() { window.location.reload(); });
            });
        });
    </script>
</body>
</html>`))

var playerMessageTemplate = template.Must(template.New("player-message").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Clip player</title>
    <style nonce="{{.Nonce}}">
        body {
            background: #0f172a;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            align-items: center;
            justify-content: center;
            height: 100vh;
            margin: 0;
        }
    </style>
</head>
<body>
    <p>{{.Message}}</p>
</body>
</html>`))

func renderPlayerMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := playerMessageTemplate.Execute(w, playerMessageData{
		Message: message,
		Nonce:   httputil.NonceFromContext(r.Context()),
	}); err != nil {
		slog.Error("clips: failed to render player message", "error", err)
	}
}

// PlayerPage renders the embed for the clip under the session's cursor.
func (h *Handler) PlayerPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	st := sess.State()
	if !st.Playing {
		renderPlayerMessage(w, r, http.StatusNotFound, "Nothing is playing. Select clips and press Play.")
		return
	}

	params, rec, err := st.Current()
	if err != nil {
		var notFound *playlist.RecordNotFoundError
		switch {
		case errors.Is(err, playlist.ErrNotPlayable):
			renderPlayerMessage(w, r, http.StatusUnprocessableEntity, "This clip has no video. Add a YouTube URL to the file or the upload form.")
		case errors.As(err, &notFound):
			_, _ = sess.Apply(playlist.Stop{})
			renderPlayerMessage(w, r, http.StatusNotFound, notFound.Error())
		default:
			_, _ = sess.Apply(playlist.Stop{})
			renderPlayerMessage(w, r, http.StatusNotFound, "Nothing is playing. Select clips and press Play.")
		}
		return
	}

	data := playerPageData{
		Title:    h.videoTitle(r.Context(), params.VideoID),
		RowName:  rec.RowName,
		Team:     rec.Team,
		EmbedURL: EmbedURL(params),
		Position: int(st.Cursor) + 1,
		Total:    len(st.Selection),
		First:    st.Cursor == 0,
		Last:     int(st.Cursor) == len(st.Selection)-1,
		Nonce:    httputil.NonceFromContext(r.Context()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := playerPageTemplate.Execute(w, data); err != nil {
		slog.Error("clips: failed to render player page", "error", err)
	}
}

const untitledVideo = "Untitled"

func (h *Handler) videoTitle(ctx context.Context, videoID string) string {
	if h.titles == nil {
		return untitledVideo
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	title, err := h.titles.Title(ctx, videoID)
	if err != nil {
		slog.Warn("clips: title lookup failed", "video_id", videoID, "error", err)
		return untitledVideo
	}
	return title
}

// VideoTitle resolves the title for a YouTube URL given in the url query parameter.
func (h *Handler) VideoTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := dataset.ExtractVideoID(r.URL.Query().Get("url"))
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "invalid YouTube URL")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"videoId": id,
		"title":   h.videoTitle(r.Context(), id),
	})
}
