package stores

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper prunes old round traces on a cron schedule so diagnostic
// data does not grow without bound.
type RetentionSweeper struct {
	traces   TraceStore
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	logger   *log.Logger
}

// NewRetentionSweeper creates a sweeper deleting traces older than maxAge,
// running on the given cron schedule (e.g. "0 30 3 * * *" for 03:30 daily).
func NewRetentionSweeper(traces TraceStore, schedule string, maxAge time.Duration) (*RetentionSweeper, error) {
	if traces == nil {
		return nil, fmt.Errorf("trace store is nil")
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("maxAge must be positive, got %v", maxAge)
	}
	return &RetentionSweeper{
		traces:   traces,
		maxAge:   maxAge,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   log.New(os.Stdout, "[retention] ", log.LstdFlags),
	}, nil
}

// Start registers the sweep job and starts the scheduler.
func (s *RetentionSweeper) Start() error {
	entryID, err := s.cron.AddFunc(s.schedule, s.Sweep)
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.logger.Printf("Trace retention sweeper started (schedule: %s, max age: %v)", s.schedule, s.maxAge)
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes traces older than the retention window. Safe to call directly.
func (s *RetentionSweeper) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	removed, err := s.traces.DeleteTracesBefore(cutoff)
	if err != nil {
		s.logger.Printf("Trace sweep failed: %v", err)
		return
	}
	if removed > 0 {
		s.logger.Printf("Pruned %d traces older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
