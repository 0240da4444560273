package clips

import (
	"log/slog"
	"net/http"

	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/playlist"
)

type selectionResponse struct {
	Filters   playlist.FilterState `json:"filters"`
	View      []dataset.ClipRecord `json:"view"`
	Selection playlist.Selection   `json:"selection"`
	Phase     playlist.Phase       `json:"phase"`
	Playing   bool                 `json:"playing"`
	Cursor    int                  `json:"cursor"`
}

func newSelectionResponse(st playlist.State) selectionResponse {
	return selectionResponse{
		Filters:   st.Filters,
		View:      nonNilRecords(st.View()),
		Selection: nonNilSelection(st.Selection),
		Phase:     st.Phase(),
		Playing:   st.Playing,
		Cursor:    int(st.Cursor),
	}
}

func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	var fs playlist.FilterState
	if !httputil.DecodeJSON(w, r, 256*1024, &fs) {
		return
	}
	st, err := sess.Apply(playlist.SetFilters{Filters: fs})
	if err != nil {
		writeStateError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSelectionResponse(st))
}

// Summary counts events and results per team over the filtered view.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	st := sess.State()
	if st.Dataset == nil {
		httputil.WriteError(w, http.StatusNotFound, "no dataset loaded")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlist.Summarize(st.View()))
}

type selectionRequest struct {
	Rows []playlist.SelectionRef `json:"rows"`
}

func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	var req selectionRequest
	if !httputil.DecodeJSON(w, r, 1024*1024, &req) {
		return
	}
	if h.maxSelection > 0 && len(req.Rows) > h.maxSelection {
		httputil.WriteError(w, http.StatusBadRequest, "too many rows selected")
		return
	}
	st, err := sess.Apply(playlist.Select{Refs: req.Rows})
	if err != nil {
		writeStateError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSelectionResponse(st))
}

func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	st, _ := sess.Apply(playlist.Clear{})
	httputil.WriteJSON(w, http.StatusOK, newSelectionResponse(st))
}

// Export streams the selected clips, in playlist order, as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	records := sess.State().SelectedRecords()
	if len(records) == 0 {
		writeStateError(w, playlist.ErrEmptySelection)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="clips.csv"`)
	if err := dataset.WriteCSV(w, records); err != nil {
		slog.Error("clips: failed to write export", "error", err)
	}
}
