package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/guildmint/guildmint/internal/audit"
	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/guildconfig"
)

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepo) ListByGuild(ctx context.Context, guildID string, since time.Time, limit int) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, guildID, since, limit)
	entries, _ := args.Get(0).([]*domain.AuditEntry)
	return entries, args.Error(1)
}

func (m *mockAuditRepo) SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error) {
	args := m.Called(ctx, guildID, since)
	summary, _ := args.Get(0).(*domain.AuditSummary)
	return summary, args.Error(1)
}

type mockConfigRepo struct {
	mock.Mock
}

func (m *mockConfigRepo) FindOrCreate(ctx context.Context, guildID string, defaults *domain.GuildEconomyConfig) (*domain.GuildEconomyConfig, error) {
	args := m.Called(ctx, guildID, defaults)
	cfg, _ := args.Get(0).(*domain.GuildEconomyConfig)
	return cfg, args.Error(1)
}

func (m *mockConfigRepo) Save(ctx context.Context, cfg *domain.GuildEconomyConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *mockConfigRepo) DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64) (*domain.SectorChange, error) {
	args := m.Called(ctx, guildID, sector, amount)
	change, _ := args.Get(0).(*domain.SectorChange)
	return change, args.Error(1)
}

func (m *mockConfigRepo) ListGuildIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReportingEngine(auditRepo *mockAuditRepo, configRepo *mockConfigRepo) *Engine {
	log := testLogger()
	return &Engine{
		Audits:  audit.NewService(auditRepo, log),
		Configs: guildconfig.NewService(configRepo, nil, domain.GuildEconomyConfig{}, log),
		log:     log,
	}
}

func TestReportingHandler_AuditList(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	auditRepo.On("ListByGuild", mock.Anything, "g1", mock.Anything, 10).
		Return([]*domain.AuditEntry{
			{OperationType: domain.OpCoinflip, GuildID: "g1"},
			{OperationType: domain.OpTransfer, GuildID: "g1"},
		}, nil).Once()

	eng := newReportingEngine(auditRepo, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/audit?limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var entries []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
	auditRepo.AssertExpectations(t)
}

func TestReportingHandler_AuditListBadSince(t *testing.T) {
	eng := newReportingEngine(&mockAuditRepo{}, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/audit?since=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportingHandler_AuditListBadLimit(t *testing.T) {
	eng := newReportingEngine(&mockAuditRepo{}, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/audit?limit=-5", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportingHandler_AuditListExplicitSince(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	auditRepo := &mockAuditRepo{}
	auditRepo.On("ListByGuild", mock.Anything, "g1", since, 50).
		Return([]*domain.AuditEntry{}, nil).Once()

	eng := newReportingEngine(auditRepo, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/v1/guilds/g1/audit?since="+since.Format(time.RFC3339), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	auditRepo.AssertExpectations(t)
}

func TestReportingHandler_Summary(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	auditRepo.On("SummarizeRecent", mock.Anything, "g1", mock.Anything).
		Return(&domain.AuditSummary{
			Counts:        map[domain.OperationType]int{domain.OpDailyClaim: 12},
			NetByCurrency: map[string]int64{"coin": 900},
		}, nil).Once()

	eng := newReportingEngine(auditRepo, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "daily_claim")
}

func TestReportingHandler_GuildConfig(t *testing.T) {
	configRepo := &mockConfigRepo{}
	configRepo.On("FindOrCreate", mock.Anything, "g1", mock.Anything).
		Return(&domain.GuildEconomyConfig{GuildID: "g1", Version: 2}, nil).Once()

	eng := newReportingEngine(&mockAuditRepo{}, configRepo)

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/config", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "g1")
	configRepo.AssertExpectations(t)
}

func TestReportingHandler_StorageErrorMapsTo500(t *testing.T) {
	auditRepo := &mockAuditRepo{}
	auditRepo.On("ListByGuild", mock.Anything, "g1", mock.Anything, 50).
		Return(nil, errors.New("connection refused")).Once()

	eng := newReportingEngine(auditRepo, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/audit", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "STORAGE_ERROR")
}

func TestReportingHandler_UnknownRoute(t *testing.T) {
	eng := newReportingEngine(&mockAuditRepo{}, &mockConfigRepo{})

	rec := httptest.NewRecorder()
	eng.ReportingHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/guilds/g1/balances", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
