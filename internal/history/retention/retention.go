package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loykin/recipebook/internal/history"
	"github.com/loykin/recipebook/internal/metrics"
)

// DefaultSchedule runs the prune once a day at midnight.
const DefaultSchedule = "@daily"

const pruneTimeout = time.Minute

// Config bounds how long history events are kept.
type Config struct {
	// MaxAge is the retention window; events older than now-MaxAge are deleted.
	MaxAge time.Duration
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@daily" or "@every 1h".
	Schedule string
}

// ValidateSchedule reports whether spec is accepted by the scheduler.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Job periodically deletes old events from a history sink.
type Job struct {
	mu        sync.Mutex
	pruner    history.Pruner
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
	scheduler *cron.Cron
	entryID   cron.EntryID
	running   bool
	lastRun   time.Time
}

// New builds a retention job. It does not schedule anything until Start.
func New(p history.Pruner, c Config, log *slog.Logger) (*Job, error) {
	if p == nil {
		return nil, errors.New("retention: sink does not support pruning")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("retention: max age must be positive, got %s", c.MaxAge)
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if err := ValidateSchedule(c.Schedule); err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		pruner:    p,
		cfg:       c,
		log:       log.With("component", "retention"),
		now:       time.Now,
		scheduler: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// RunOnce deletes every event older than the retention window.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.cfg.MaxAge)
	n, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.AddHistoryPruned(n)
	j.mu.Lock()
	j.lastRun = j.now()
	j.mu.Unlock()
	j.log.Info("history pruned", "deleted", n, "before", cutoff)
	return n, nil
}

func (j *Job) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.Warn("history prune failed", "err", err)
	}
}

// Start schedules the prune.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return errors.New("retention: already started")
	}
	id, err := j.scheduler.AddFunc(j.cfg.Schedule, j.tick)
	if err != nil {
		return fmt.Errorf("retention: schedule %q: %w", j.cfg.Schedule, err)
	}
	j.entryID = id
	j.running = true
	j.scheduler.Start()
	j.log.Info("history retention scheduled", "schedule", j.cfg.Schedule, "max_age", j.cfg.MaxAge)
	return nil
}

// Stop unschedules the prune and waits for a running one to finish.
func (j *Job) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.scheduler.Remove(j.entryID)
	j.mu.Unlock()
	<-j.scheduler.Stop().Done()
}

// Next returns the next scheduled run, zero when not started.
func (j *Job) Next() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return time.Time{}
	}
	return j.scheduler.Entry(j.entryID).Next
}

// LastRun returns when the last successful prune finished.
func (j *Job) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}
