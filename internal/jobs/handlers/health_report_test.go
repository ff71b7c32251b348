package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/jobs"
)

type mockConfigSource struct {
	mock.Mock
}

func (m *mockConfigSource) GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error) {
	args := m.Called(ctx, guildID)
	cfg, _ := args.Get(0).(*domain.GuildEconomyConfig)
	return cfg, args.Error(1)
}

func (m *mockConfigSource) ListGuildIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockAuditSource struct {
	mock.Mock
}

func (m *mockAuditSource) SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error) {
	args := m.Called(ctx, guildID, since)
	summary, _ := args.Get(0).(*domain.AuditSummary)
	return summary, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reportConfig(guildID string, sectors map[domain.Sector]int64) *domain.GuildEconomyConfig {
	return &domain.GuildEconomyConfig{
		GuildID: guildID,
		Sectors: sectors,
		Thresholds: domain.Thresholds{
			Warning:  1000,
			Alert:    500,
			Critical: 100,
		},
	}
}

func emptySummary() *domain.AuditSummary {
	return &domain.AuditSummary{
		Counts:        map[domain.OperationType]int{},
		NetByCurrency: map[string]int64{},
	}
}

func TestGrade(t *testing.T) {
	thresholds := domain.Thresholds{Warning: 1000, Alert: 500, Critical: 100}

	testCases := []struct {
		name       string
		treasury   int64
		thresholds domain.Thresholds
		expected   string
	}{
		{"healthy", 5000, thresholds, "ok"},
		{"exactly warning", 1000, thresholds, "warning"},
		{"between alert and warning", 700, thresholds, "warning"},
		{"exactly alert", 500, thresholds, "alert"},
		{"exactly critical", 100, thresholds, "critical"},
		{"empty treasury", 0, thresholds, "critical"},
		{"zero thresholds disable grading", 0, domain.Thresholds{}, "ok"},
		{"only critical configured", 50, domain.Thresholds{Critical: 100}, "critical"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, grade(tc.treasury, tc.thresholds))
		})
	}
}

func TestProcessTask_ReportsNamedGuilds(t *testing.T) {
	configs := &mockConfigSource{}
	audits := &mockAuditSource{}

	configs.On("GetConfig", mock.Anything, "g1").
		Return(reportConfig("g1", map[domain.Sector]int64{domain.SectorWorks: 2000}), nil).Once()
	audits.On("SummarizeRecent", mock.Anything, "g1", mock.Anything).
		Return(emptySummary(), nil).Once()

	handler := NewGuildHealthReportHandler(configs, audits, testLogger())

	task, err := jobs.NewGuildHealthReportTask([]string{"g1"})
	assert.NoError(t, err)

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	configs.AssertNotCalled(t, "ListGuildIDs", mock.Anything)
	audits.AssertExpectations(t)
}

func TestProcessTask_EmptyPayloadCoversAllGuilds(t *testing.T) {
	configs := &mockConfigSource{}
	audits := &mockAuditSource{}

	configs.On("ListGuildIDs", mock.Anything).Return([]string{"g1", "g2"}, nil).Once()
	for _, guildID := range []string{"g1", "g2"} {
		configs.On("GetConfig", mock.Anything, guildID).
			Return(reportConfig(guildID, map[domain.Sector]int64{}), nil).Once()
		audits.On("SummarizeRecent", mock.Anything, guildID, mock.Anything).
			Return(emptySummary(), nil).Once()
	}

	handler := NewGuildHealthReportHandler(configs, audits, testLogger())

	task, err := jobs.NewGuildHealthReportTask(nil)
	assert.NoError(t, err)

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	configs.AssertExpectations(t)
	audits.AssertExpectations(t)
}

func TestProcessTask_OneFailedGuildDoesNotAbortRest(t *testing.T) {
	configs := &mockConfigSource{}
	audits := &mockAuditSource{}

	configs.On("GetConfig", mock.Anything, "g1").
		Return(nil, errors.New("config row corrupt")).Once()
	configs.On("GetConfig", mock.Anything, "g2").
		Return(reportConfig("g2", map[domain.Sector]int64{domain.SectorTax: 300}), nil).Once()
	audits.On("SummarizeRecent", mock.Anything, "g2", mock.Anything).
		Return(emptySummary(), nil).Once()

	handler := NewGuildHealthReportHandler(configs, audits, testLogger())

	task, err := jobs.NewGuildHealthReportTask([]string{"g1", "g2"})
	assert.NoError(t, err)

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	configs.AssertExpectations(t)
	audits.AssertExpectations(t)
}

func TestProcessTask_SummaryWindowIsLastDay(t *testing.T) {
	configs := &mockConfigSource{}
	audits := &mockAuditSource{}

	configs.On("GetConfig", mock.Anything, "g1").
		Return(reportConfig("g1", map[domain.Sector]int64{}), nil).Once()
	audits.On("SummarizeRecent", mock.Anything, "g1", mock.MatchedBy(func(since time.Time) bool {
		age := time.Since(since)
		return age > 23*time.Hour && age < 25*time.Hour
	})).Return(emptySummary(), nil).Once()

	handler := NewGuildHealthReportHandler(configs, audits, testLogger())

	task, err := jobs.NewGuildHealthReportTask([]string{"g1"})
	assert.NoError(t, err)

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	audits.AssertExpectations(t)
}
