package clips

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/httputil"
	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/sendrec/clipdeck/internal/validate"
)

type datasetResponse struct {
	Records      []dataset.ClipRecord    `json:"records"`
	View         []dataset.ClipRecord    `json:"view"`
	Teams        []string                `json:"teams"`
	Events       []string                `json:"events"`
	ExtraColumns []string                `json:"extraColumns"`
	Columns      []playlist.ColumnOption `json:"columns"`
	Filters      playlist.FilterState    `json:"filters"`
	Selection    playlist.Selection      `json:"selection"`
	Warnings     []dataset.Warning       `json:"warnings,omitempty"`
	DroppedRows  int                     `json:"droppedRows"`
}

func newDatasetResponse(st playlist.State) datasetResponse {
	return datasetResponse{
		Records:      nonNilRecords(st.Dataset.Records()),
		View:         nonNilRecords(st.View()),
		Teams:        nonNilStrings(st.Dataset.Teams()),
		Events:       nonNilStrings(st.Dataset.Events()),
		ExtraColumns: nonNilStrings(st.Dataset.ExtraColumns()),
		Columns:      playlist.ColumnOptions(st.Dataset),
		Filters:      st.Filters,
		Selection:    nonNilSelection(st.Selection),
	}
}

type missingColumnsResponse struct {
	Error   string   `json:"error"`
	Columns []string `json:"columns"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}

	if h.maxUploadBytes > 0 && r.ContentLength > h.maxUploadBytes {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	globalURL := r.FormValue("url")
	if msg := validate.VideoURL(globalURL); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	ds, warnings, err := dataset.Normalizer{MaxRows: h.maxRows}.Normalize(file, globalURL)
	if err != nil {
		var missing *dataset.MissingColumnError
		var tooMany *dataset.TooManyRowsError
		switch {
		case errors.As(err, &missing):
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, missingColumnsResponse{Error: missing.Error(), Columns: missing.Columns})
		case errors.As(err, &tooMany):
			httputil.WriteError(w, http.StatusUnprocessableEntity, tooMany.Error())
		case errors.Is(err, dataset.ErrEmptyFile):
			httputil.WriteError(w, http.StatusUnprocessableEntity, "file is empty")
		default:
			httputil.WriteError(w, http.StatusUnprocessableEntity, "could not read file as a delimited table")
		}
		return
	}

	st, err := sess.Apply(playlist.Upload{Dataset: ds})
	if err != nil {
		writeStateError(w, err)
		return
	}

	resp := newDatasetResponse(st)
	resp.Warnings = warnings
	resp.DroppedRows = dataset.DroppedRows(warnings)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}
	st := sess.State()
	if st.Dataset == nil {
		httputil.WriteError(w, http.StatusNotFound, "no dataset loaded")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newDatasetResponse(st))
}

func (h *Handler) EditRow(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(w, r)
	if sess == nil {
		return
	}

	key, err := uuid.Parse(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid row key")
		return
	}

	var edit dataset.Edit
	if !httputil.DecodeJSON(w, r, 16*1024, &edit) {
		return
	}
	if msg := validateEdit(edit); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	st, err := sess.Apply(playlist.EditRecord{Key: key, Edit: edit})
	if err != nil {
		writeStateError(w, err)
		return
	}
	rec, _ := st.Dataset.Get(key)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"record":  rec,
		"filters": st.Filters,
		"teams":   nonNilStrings(st.Dataset.Teams()),
	})
}

func validateEdit(e dataset.Edit) string {
	if e.RowName != nil {
		if msg := validate.RowName(*e.RowName); msg != "" {
			return msg
		}
	}
	if e.Team != nil {
		if msg := validate.Team(*e.Team); msg != "" {
			return msg
		}
	}
	if e.Result != nil {
		if msg := validate.Result(*e.Result); msg != "" {
			return msg
		}
	}
	return ""
}

func (h *Handler) SampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sample.csv"`)
	_, _ = w.Write(dataset.SampleCSV)
}

func nonNilRecords(v []dataset.ClipRecord) []dataset.ClipRecord {
	if v == nil {
		return []dataset.ClipRecord{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilSelection(v playlist.Selection) playlist.Selection {
	if v == nil {
		return playlist.Selection{}
	}
	return v
}
