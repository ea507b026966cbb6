// Package scheduler runs the automated content run on a daily cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/faisworld/fais-web-sub000/internal/logger"
)

// Job is the work run on each tick.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner with a single replaceable entry.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	expr     string
	location *time.Location
	log      zerolog.Logger
}

// New creates a Scheduler in the given IANA timezone. Overlapping ticks are
// skipped while a previous run is still going.
func New(timezone string) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	log := logger.Component("scheduler")
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{cron: c, location: loc, log: log}, nil
}

// Schedule registers job at spec, replacing any previous entry. spec is either
// a daily time in HH:MM form or a standard five-field cron expression.
func (s *Scheduler) Schedule(ctx context.Context, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr, err := Expression(spec)
	if err != nil {
		return err
	}

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	id, err := s.cron.AddFunc(expr, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}
	s.entryID = id
	s.expr = expr

	s.log.Info().Str("cron", expr).Str("timezone", s.location.String()).Msg("Automated run scheduled")
	return nil
}

// Next returns the next activation time, or zero when nothing is scheduled
// or the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	s.log.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// Expression converts an HH:MM daily time into a cron expression. Anything
// else is validated as a five-field cron expression and returned unchanged.
func Expression(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if hour, minute, ok := parseClock(spec); ok {
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if strings.Contains(spec, ":") {
		return "", fmt.Errorf("invalid time %q: must be HH:MM with hour 0-23 and minute 0-59", spec)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return spec, nil
}

func parseClock(s string) (int, int, bool) {
	h, m, found := strings.Cut(s, ":")
	if !found || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
