package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/repository"
	"github.com/malipravin2580/Data-Manager/internal/service"
)

// stubPerms отдает фиксированные уровни по пользователю на любой файл.
type stubPerms struct {
	levels map[int64][]domain.PermissionLevel
}

func (s *stubPerms) EffectiveLevels(_ context.Context, userID int64, _ string) ([]domain.PermissionLevel, error) {
	return s.levels[userID], nil
}

func (s *stubPerms) ListForFile(_ context.Context, _ string) ([]domain.FilePermission, error) {
	return nil, nil
}

func (s *stubPerms) GetByID(_ context.Context, _ int64) (*domain.FilePermission, error) {
	return nil, domain.ErrNotFound
}

func (s *stubPerms) UpsertTx(_ context.Context, _ sqlx.ExtContext, _ *domain.FilePermission) (*domain.PermissionLevel, error) {
	return nil, nil
}

func (s *stubPerms) DeleteTx(_ context.Context, _ sqlx.ExtContext, _ int64) error {
	return nil
}

func (s *stubPerms) InsertPermissionAuditTx(_ context.Context, _ sqlx.ExtContext, _ *domain.PermissionAuditLog) error {
	return nil
}

// stubLedger — журналы и граф происхождения в памяти.
type stubLedger struct {
	access []domain.FileAccessLog
}

func (s *stubLedger) InsertAccessLog(_ context.Context, entry *domain.FileAccessLog) error {
	s.access = append(s.access, *entry)
	return nil
}

func (s *stubLedger) EdgesByFile(_ context.Context, _ string) ([]domain.FileProvenance, error) {
	return nil, nil
}

func (s *stubLedger) EdgesBySource(_ context.Context, _ string) ([]domain.FileProvenance, error) {
	return nil, nil
}

func (s *stubLedger) EdgesByFiles(_ context.Context, _ []string) ([]domain.FileProvenance, error) {
	return nil, nil
}

func (s *stubLedger) EdgesBySources(_ context.Context, _ []string) ([]domain.FileProvenance, error) {
	return nil, nil
}

func (s *stubLedger) AccessHistory(_ context.Context, filePath string, limit int) ([]domain.FileAccessLog, error) {
	var out []domain.FileAccessLog
	for i := len(s.access) - 1; i >= 0 && len(out) < limit; i-- {
		if s.access[i].FilePath == filePath {
			out = append(out, s.access[i])
		}
	}
	return out, nil
}

func (s *stubLedger) PermissionAuditHistory(_ context.Context, _ string, _ int) ([]domain.PermissionAuditLog, error) {
	return nil, nil
}

func (s *stubLedger) PermissionAuditFeed(_ context.Context, _ repository.AuditFeedFilter) ([]domain.PermissionAuditLog, error) {
	return nil, nil
}

func newProvenanceRouter(perms *stubPerms, ledger *stubLedger) (http.Handler, *auth.Manager) {
	manager := auth.NewManager("0123456789abcdef0123456789abcdef", time.Minute, time.Hour)
	h := NewProvenanceHandler(
		service.NewProvenanceService(ledger),
		service.NewPermissionService(nil, perms, perms),
	)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(manager))
		r.Get("/provenance/lineage/*", h.Lineage)
		r.Get("/provenance/access/*", h.AccessHistory)
		r.Get("/provenance/audit/*", h.PermissionAuditHistory)
	})
	return r, manager
}

func doGet(t *testing.T, router http.Handler, manager *auth.Manager, userID int64, path string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := manager.IssueAccessToken(userID, "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAccessHistoryRequiresAdmin(t *testing.T) {
	perms := &stubPerms{levels: map[int64][]domain.PermissionLevel{
		7: {domain.PermissionView},
		8: {domain.PermissionAdmin},
	}}
	ledger := &stubLedger{access: []domain.FileAccessLog{
		{ID: 1, FilePath: "data.csv", UserID: 8, Action: "upload"},
	}}
	router, manager := newProvenanceRouter(perms, ledger)

	// view недостаточно для чтения журнала доступа
	rec := doGet(t, router, manager, 7, "/provenance/access/data.csv")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGet(t, router, manager, 8, "/provenance/access/data.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	var logs []domain.FileAccessLog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&logs))
	require.Len(t, logs, 1)
	require.Equal(t, "upload", logs[0].Action)
}

func TestAuditHistoryRequiresAdmin(t *testing.T) {
	perms := &stubPerms{levels: map[int64][]domain.PermissionLevel{
		7: {domain.PermissionEdit},
	}}
	router, manager := newProvenanceRouter(perms, &stubLedger{})

	rec := doGet(t, router, manager, 7, "/provenance/audit/data.csv")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLineageEndpointLogsView(t *testing.T) {
	perms := &stubPerms{levels: map[int64][]domain.PermissionLevel{
		7: {domain.PermissionView},
	}}
	ledger := &stubLedger{}
	router, manager := newProvenanceRouter(perms, ledger)

	rec := doGet(t, router, manager, 7, "/provenance/lineage/data.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ledger.access, 1)
	require.Equal(t, "lineage-view", ledger.access[0].Action)
	require.Equal(t, "data.csv", ledger.access[0].FilePath)
	require.Equal(t, int64(7), ledger.access[0].UserID)
}
