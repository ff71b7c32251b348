package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// defaultHealthReportSchedule runs the report at the top of every hour.
	defaultHealthReportSchedule = "0 * * * *"
	// defaultIdempotencyCleanupSchedule sweeps replay records four times a day.
	defaultIdempotencyCleanupSchedule = "30 */6 * * *"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler             *asynq.Scheduler
	healthReportSchedule       string
	idempotencyCleanupSchedule string
	log                        *slog.Logger
}

// NewScheduler builds the periodic task scheduler. Empty schedules fall back
// to the defaults above.
func NewScheduler(redisOpt asynq.RedisConnOpt, healthReportSchedule, idempotencyCleanupSchedule string, log *slog.Logger) Scheduler {
	if healthReportSchedule == "" {
		healthReportSchedule = defaultHealthReportSchedule
	}
	if idempotencyCleanupSchedule == "" {
		idempotencyCleanupSchedule = defaultIdempotencyCleanupSchedule
	}

	return &scheduler{
		asynqScheduler:             asynq.NewScheduler(redisOpt, nil),
		healthReportSchedule:       healthReportSchedule,
		idempotencyCleanupSchedule: idempotencyCleanupSchedule,
		log:                        log,
	}
}

func (s *scheduler) RegisterTasks() error {
	task, err := NewGuildHealthReportTask(nil)
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.healthReportSchedule, task); err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.idempotencyCleanupSchedule, NewIdempotencyCleanupTask()); err != nil {
		return err
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered periodic tasks",
			slog.String("health_report", s.healthReportSchedule),
			slog.String("idempotency_cleanup", s.idempotencyCleanupSchedule))
	}

	return nil
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
