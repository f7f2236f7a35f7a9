// internal/api/handler_test.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-sync/internal/model"
)

// MockSyncService is a mock of the SyncService interface.
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncAccount(ctx context.Context, account string) (bool, string, int) {
	args := m.Called(ctx, account)
	return args.Bool(0), args.String(1), args.Int(2)
}
func (m *MockSyncService) Busy() bool {
	return m.Called().Bool(0)
}
func (m *MockSyncService) RepositoriesByLanguage(ctx context.Context, language string, limit int32) ([]model.Repository, error) {
	args := m.Called(ctx, language, limit)
	return args.Get(0).([]model.Repository), args.Error(1)
}
func (m *MockSyncService) AllLanguages(ctx context.Context) ([]model.LanguageStat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.LanguageStat), args.Error(1)
}
func (m *MockSyncService) LastSyncLog(ctx context.Context, account string) (*model.SyncLog, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncLog), args.Error(1)
}
func (m *MockSyncService) SyncHistory(ctx context.Context, account string, limit int32) ([]model.SyncLog, error) {
	args := m.Called(ctx, account, limit)
	return args.Get(0).([]model.SyncLog), args.Error(1)
}

func newTestRouter(svc SyncService) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewRouter(svc, "octocat", logger)
}

func TestGetRepositories(t *testing.T) {
	t.Run("passes the language filter and default limit", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("RepositoriesByLanguage", mock.Anything, "Python", int32(50)).
			Return([]model.Repository{{ID: 1, Name: "alpha"}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/repositories?language=Python", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var repos []model.Repository
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repos))
		require.Len(t, repos, 1)
		assert.Equal(t, "alpha", repos[0].Name)
		svc.AssertExpectations(t)
	})

	t.Run("rejects an out-of-range limit", func(t *testing.T) {
		svc := new(MockSyncService)

		req := httptest.NewRequest(http.MethodGet, "/v1/repositories?limit=500", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "RepositoriesByLanguage")
	})

	t.Run("serves an empty list instead of null", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("RepositoriesByLanguage", mock.Anything, "", int32(50)).
			Return([]model.Repository(nil), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/repositories", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestGetLanguages(t *testing.T) {
	svc := new(MockSyncService)
	svc.On("AllLanguages", mock.Anything).Return([]model.LanguageStat{
		{Language: "Go", RepositoryCount: 4, TotalBytes: 1200},
		{Language: "Python", RepositoryCount: 2, TotalBytes: 300},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats []model.LanguageStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "Go", stats[0].Language)
	assert.Equal(t, int64(4), stats[0].RepositoryCount)
}

func TestGetSyncStatus(t *testing.T) {
	t.Run("returns the last sync log", func(t *testing.T) {
		svc := new(MockSyncService)
		started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		svc.On("LastSyncLog", mock.Anything, "octocat").
			Return(&model.SyncLog{ID: 3, Account: "octocat", Status: model.StatusSuccess, StartedAt: started}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var syncLog model.SyncLog
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &syncLog))
		assert.Equal(t, model.StatusSuccess, syncLog.Status)
	})

	t.Run("404 when nothing has been recorded", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("LastSyncLog", mock.Anything, "octocat").Return(nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/sync/status", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetSyncHistory(t *testing.T) {
	t.Run("returns recent logs with the default limit", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("SyncHistory", mock.Anything, "octocat", int32(20)).Return([]model.SyncLog{
			{ID: 2, Account: "octocat", Status: model.StatusSuccess},
			{ID: 1, Account: "octocat", Status: model.StatusPartial},
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/v1/sync/history", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var logs []model.SyncLog
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
		require.Len(t, logs, 2)
		assert.Equal(t, int64(2), logs[0].ID)
	})

	t.Run("rejects a non-numeric limit", func(t *testing.T) {
		svc := new(MockSyncService)

		req := httptest.NewRequest(http.MethodGet, "/v1/sync/history?limit=abc", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "SyncHistory")
	})
}

func TestTriggerSync(t *testing.T) {
	t.Run("runs a pass and reports the outcome", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("Busy").Return(false).Once()
		svc.On("SyncAccount", mock.Anything, "octocat").Return(true, "successfully synced 5 repositories", 5).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(5), body["repositories_synced"])
		svc.AssertExpectations(t)
	})

	t.Run("refused while a pass is in flight", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("Busy").Return(true).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		svc.AssertNotCalled(t, "SyncAccount")
	})

	t.Run("failed pass maps to bad gateway", func(t *testing.T) {
		svc := new(MockSyncService)
		svc.On("Busy").Return(false).Once()
		svc.On("SyncAccount", mock.Anything, "octocat").
			Return(false, "GitHub connection validation failed", 0).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
