// Package scheduler запускает периодические задачи по cron-выражению.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job — периодическая задача.
type Job func(ctx context.Context)

// Scheduler — обёртка над cron с часовым поясом и логированием.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

// New создаёт планировщик в часовом поясе tz (пусто — UTC).
func New(tz string, logger *zap.SugaredLogger) (*Scheduler, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", tz, err)
		}
		loc = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		loc:    loc,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Every регистрирует задачу name по стандартному 5-польному выражению expr.
// Пересекающиеся запуски одной задачи пропускаются.
func (s *Scheduler) Every(expr, name string, fn Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		start := time.Now()
		s.logger.Infow("Scheduled job started", "job", name)
		fn(s.ctx)
		s.logger.Infow("Scheduled job finished", "job", name, "duration", time.Since(start))
	}))
	id, err := s.cron.AddJob(expr, wrapped)
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, expr, err)
	}
	s.logger.Infow("Job scheduled", "job", name, "expr", expr, "tz", s.loc.String(), "next", s.cron.Entry(id).Schedule.Next(time.Now().In(s.loc)))
	return nil
}

// Next возвращает время ближайшего запуска среди всех задач.
func (s *Scheduler) Next() (time.Time, bool) {
	var next time.Time
	now := time.Now().In(s.loc)
	for _, e := range s.cron.Entries() {
		t := e.Schedule.Next(now)
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next, !next.IsZero()
}

// Location — часовой пояс расписания.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop останавливает планировщик, отменяет контекст задач и ждёт
// завершения уже идущих запусков либо отмены ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warnw("Scheduler stop: running jobs did not finish in time")
	}
}
