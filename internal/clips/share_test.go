package clips

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sendrec/clipdeck/internal/auth"
)

func (c *testClient) doAs(user auth.User, method, path string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func TestShareExportNotConfigured(t *testing.T) {
	c := newTestClient(t, newHandler())
	rec := c.do(http.MethodPost, "/api/selection/export/share", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestShareExportUploadsAndRecords(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	storage := &mockStorage{}
	h := newHandler()
	h.SetShares(mock, storage, 24*time.Hour)
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	c := newTestClient(t, h)
	up := c.mustUpload(twoTeams, testVideoURL)
	c.doJSON(http.MethodPut, "/api/selection", refsFor(up.Records...))

	mock.ExpectExec(`INSERT INTO clip_exports`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), 2, fixed.Add(24*time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := c.doAs(auth.User{ID: "user-1", Email: "coach@example.com"}, http.MethodPost, "/api/selection/export/share")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp shareResponse
	decodeBody(t, rec, &resp)

	if _, err := uuid.Parse(resp.Token); err != nil {
		t.Errorf("expected uuid token, got %q", resp.Token)
	}
	if resp.ShareURL != testBaseURL+"/exports/"+resp.Token {
		t.Errorf("unexpected share url %q", resp.ShareURL)
	}
	if resp.ClipCount != 2 {
		t.Errorf("expected 2 clips, got %d", resp.ClipCount)
	}

	data, ok := storage.puts[exportFileKey(resp.Token)]
	if !ok {
		t.Fatalf("expected object at %s, got %v", exportFileKey(resp.Token), storage.puts)
	}
	if !strings.HasPrefix(string(data), "\ufeffrow_name,team") {
		t.Errorf("expected CSV with BOM, got %q", data)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestShareExportRemovesObjectWhenInsertFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	storage := &mockStorage{}
	h := newHandler()
	h.SetShares(mock, storage, time.Hour)

	c := newTestClient(t, h)
	up := c.mustUpload(twoTeams, testVideoURL)
	c.doJSON(http.MethodPut, "/api/selection", refsFor(up.Records[0]))

	mock.ExpectExec(`INSERT INTO clip_exports`).
		WillReturnError(errors.New("connection reset"))

	rec := c.do(http.MethodPost, "/api/selection/export/share", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(storage.deleted) != 1 {
		t.Errorf("expected orphaned object to be deleted, got %v", storage.deleted)
	}
}

func TestShareExportStorageFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := newHandler()
	h.SetShares(mock, &mockStorage{putErr: errors.New("s3 down")}, time.Hour)

	c := newTestClient(t, h)
	up := c.mustUpload(twoTeams, testVideoURL)
	c.doJSON(http.MethodPut, "/api/selection", refsFor(up.Records[0]))

	rec := c.do(http.MethodPost, "/api/selection/export/share", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expected no database calls: %v", err)
	}
}

func TestShareExportEmptySelection(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := newHandler()
	h.SetShares(mock, &mockStorage{}, time.Hour)
	c := newTestClient(t, h)

	rec := c.do(http.MethodPost, "/api/selection/export/share", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDownloadShared(t *testing.T) {
	token := uuid.NewString()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		path      string
		setup     func(mock pgxmock.PgxPoolIface)
		wantCode  int
		wantRedir string
	}{
		{
			name: "valid link redirects",
			path: "/exports/" + token,
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT object_key, expires_at FROM clip_exports`).
					WithArgs(token).
					WillReturnRows(pgxmock.NewRows([]string{"object_key", "expires_at"}).
						AddRow("exports/"+token+".csv", now.Add(time.Hour)))
			},
			wantCode:  http.StatusFound,
			wantRedir: "https://files.example.com/exports/" + token + ".csv",
		},
		{
			name: "expired link",
			path: "/exports/" + token,
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT object_key, expires_at FROM clip_exports`).
					WithArgs(token).
					WillReturnRows(pgxmock.NewRows([]string{"object_key", "expires_at"}).
						AddRow("exports/"+token+".csv", now.Add(-time.Minute)))
			},
			wantCode: http.StatusGone,
		},
		{
			name: "unknown token",
			path: "/exports/" + token,
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT object_key, expires_at FROM clip_exports`).
					WithArgs(token).
					WillReturnError(errors.New("no rows in result set"))
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "malformed token",
			path:     "/exports/not-a-token",
			setup:    func(mock pgxmock.PgxPoolIface) {},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatal(err)
			}
			defer mock.Close()
			tt.setup(mock)

			storage := &mockStorage{}
			h := newHandler()
			h.SetShares(mock, storage, time.Hour)
			h.now = func() time.Time { return now }

			rec := newTestClient(t, h).do(http.MethodGet, tt.path, nil, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantRedir != "" {
				if loc := rec.Header().Get("Location"); loc != tt.wantRedir {
					t.Errorf("expected redirect to %q, got %q", tt.wantRedir, loc)
				}
				if storage.lastFilename != "clips.csv" {
					t.Errorf("expected download filename clips.csv, got %q", storage.lastFilename)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPurgeExpiredExports_DeletesObjectsAndRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	storage := &mockStorage{}

	mock.ExpectQuery(`SELECT token, object_key FROM clip_exports`).
		WillReturnRows(pgxmock.NewRows([]string{"token", "object_key"}).
			AddRow("tok-1", "exports/tok-1.csv").
			AddRow("tok-2", "exports/tok-2.csv"))
	mock.ExpectExec(`DELETE FROM clip_exports`).
		WithArgs("tok-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM clip_exports`).
		WithArgs("tok-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	PurgeExpiredExports(context.Background(), mock, storage)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
	if len(storage.deleted) != 2 {
		t.Errorf("expected 2 deletes, got %v", storage.deleted)
	}
}

func TestPurgeExpiredExports_NothingExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	storage := &mockStorage{}
	mock.ExpectQuery(`SELECT token, object_key FROM clip_exports`).
		WillReturnRows(pgxmock.NewRows([]string{"token", "object_key"}))

	PurgeExpiredExports(context.Background(), mock, storage)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
	if len(storage.deleted) != 0 {
		t.Errorf("expected no deletes, got %v", storage.deleted)
	}
}

func TestPurgeExpiredExports_QueryFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT token, object_key FROM clip_exports`).
		WillReturnError(errors.New("db down"))

	PurgeExpiredExports(context.Background(), mock, &mockStorage{})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStartCleanupLoop_StopsOnCancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	StartCleanupLoop(ctx, mock, &mockStorage{}, time.Hour)
	cancel()
	time.Sleep(10 * time.Millisecond)
}
