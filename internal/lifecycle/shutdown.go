package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Shutdown fans registered teardown hooks out in parallel when the process
// stops. Hooks are independent of each other; ordering between them is not
// guaranteed.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log}
}

// Register adds a named teardown hook. Nil hooks are ignored.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
	s.mu.Unlock()
}

// Execute runs every registered hook concurrently and waits for all of them.
// Failures are collected per hook; the joined error names each hook that
// failed so the caller can log one line and exit.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown started", slog.Int("hooks", len(hooks)))

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for _, h := range hooks {
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()

			if err := h.fn(ctx); err != nil {
				s.log.Error("shutdown hook failed",
					slog.String("hook", h.name),
					slog.Any("error", err),
				)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				errMu.Unlock()
				return
			}
			s.log.Debug("shutdown hook done", slog.String("hook", h.name))
		}(h)
	}
	wg.Wait()

	s.log.Info("shutdown finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}
