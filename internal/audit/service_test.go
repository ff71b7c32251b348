package audit

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
	"github.com/guildmint/guildmint/internal/econerr"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecord_StampsCreatedAt(t *testing.T) {
	repo := &mockAuditRepo{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return !entry.CreatedAt.IsZero()
	})).Return(nil).Once()

	svc := NewService(repo, testLogger())

	err := svc.Record(context.Background(), &domain.AuditEntry{
		OperationType: domain.OpAdjust,
		GuildID:       "g1",
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecord_KeepsExplicitCreatedAt(t *testing.T) {
	repo := &mockAuditRepo{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.CreatedAt.Equal(at)
	})).Return(nil).Once()

	svc := NewService(repo, testLogger())

	err := svc.Record(context.Background(), &domain.AuditEntry{
		OperationType: domain.OpTransfer,
		GuildID:       "g1",
		CreatedAt:     at,
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecord_SurfacesAppendFailure(t *testing.T) {
	repo := &mockAuditRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	svc := NewService(repo, testLogger())

	err := svc.Record(context.Background(), &domain.AuditEntry{OperationType: domain.OpAdjust})

	assert.True(t, econerr.IsCode(err, econerr.CodeStorage))
}

func TestRecord_RejectsNilEntry(t *testing.T) {
	svc := NewService(&mockAuditRepo{}, testLogger())

	assert.Error(t, svc.Record(context.Background(), nil))
}

func TestRecent_DefaultsLimit(t *testing.T) {
	repo := &mockAuditRepo{}
	since := time.Now().Add(-time.Hour)
	repo.On("ListByGuild", mock.Anything, "g1", since, 50).
		Return([]*domain.AuditEntry{{OperationType: domain.OpCoinflip}}, nil).Once()

	svc := NewService(repo, testLogger())

	entries, err := svc.Recent(context.Background(), "g1", since, 0)

	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestSummarizeRecent_PassesThrough(t *testing.T) {
	repo := &mockAuditRepo{}
	since := time.Now().Add(-24 * time.Hour)
	repo.On("SummarizeRecent", mock.Anything, "g1", since).Return(&domain.AuditSummary{
		Counts:        map[domain.OperationType]int{domain.OpTransfer: 4},
		NetByCurrency: map[string]int64{"coin": -120},
	}, nil).Once()

	svc := NewService(repo, testLogger())

	summary, err := svc.SummarizeRecent(context.Background(), "g1", since)

	assert.NoError(t, err)
	assert.Equal(t, 4, summary.Counts[domain.OpTransfer])
	assert.Equal(t, int64(-120), summary.NetByCurrency["coin"])
}
