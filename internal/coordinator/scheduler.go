package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "vulcancal/internal/log"
)

// refreshTimeout bounds one scheduled refresh.
const refreshTimeout = 2 * time.Minute

// Scheduler triggers refreshes on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	co   *Coordinator
	ctx  context.Context
	wg   sync.WaitGroup
}

// NewScheduler parses spec (standard five-field cron syntax) in the
// coordinator's location. Overlapping runs are skipped.
func NewScheduler(ctx context.Context, co *Coordinator, spec string) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(co.Location()),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		co:  co,
		ctx: ctx,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs one refresh right away and then follows the schedule.
func (s *Scheduler) Start() {
	s.spawn()
	s.cron.Start()
}

// Trigger runs an out-of-schedule refresh in the background.
func (s *Scheduler) Trigger() {
	s.spawn()
}

// Stop halts the schedule and waits for running refreshes to finish,
// including those started by Start and Trigger.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Next is the time of the next scheduled refresh.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) spawn() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()
	// Errors are recorded in Status and logged by Refresh.
	_ = s.co.Refresh(ctx)
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
