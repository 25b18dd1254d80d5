package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"newsletter-agent/logger"
)

// Scheduler runs newsletter generation on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	expr     string
	location *time.Location
	log      *zap.Logger
}

// New creates a Scheduler in the given timezone. A run that is still going
// when the next tick fires causes that tick to be skipped.
func New(timezone string, log *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	log = logger.OrNop(log)
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:     c,
		location: loc,
		log:      log,
	}, nil
}

// Schedule registers task at when, either a daily HH:MM time or a standard
// five-field cron expression. A previous schedule is replaced.
func (s *Scheduler) Schedule(when string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr, err := Expression(when)
	if err != nil {
		return err
	}

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}

	entryID, err := s.cron.AddFunc(expr, task)
	if err != nil {
		return fmt.Errorf("adding cron entry: %w", err)
	}

	s.entryID = entryID
	s.expr = expr
	s.log.Info("newsletter scheduled",
		zap.String("when", when),
		zap.String("cron", expr),
		zap.String("timezone", s.location.String()))
	return nil
}

// Next returns the next activation time, or the zero time if nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	sched, err := cron.ParseStandard(s.expr)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now().In(s.location))
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Expression converts when into a cron expression. HH:MM becomes a daily
// schedule; anything else must parse as a standard cron expression.
func Expression(when string) (string, error) {
	when = strings.TrimSpace(when)
	if when == "" {
		return "", fmt.Errorf("empty schedule")
	}

	if !strings.ContainsAny(when, " \t") && !strings.HasPrefix(when, "@") {
		hour, minute, err := parseTime(when)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}

	if _, err := cron.ParseStandard(when); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", when, err)
	}
	return when, nil
}

// parseTime extracts hour and minute from HH:MM format.
func parseTime(t string) (int, int, error) {
	if len(t) != 5 || t[2] != ':' {
		return 0, 0, fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return 0, 0, fmt.Errorf("invalid time format %q: must be HH:MM", t)
		}
	}

	hour := (int(t[0]-'0') * 10) + int(t[1]-'0')
	minute := (int(t[3]-'0') * 10) + int(t[4]-'0')

	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: hour 0-23, minute 0-59", t)
	}

	return hour, minute, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
