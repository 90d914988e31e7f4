// Package service contains the background jobs of the API
package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes cron's own logs through zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.s.Debugw(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}

type Scheduler struct {
	c *cron.Cron
}

// NewScheduler runs jobs in UTC. A job that is still running when its next
// tick comes is skipped, a panicking job is recovered and logged.
func NewScheduler() *Scheduler {
	l := cronLogger{s: zap.L().Sugar()}

	return &Scheduler{
		c: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

// Add schedules job under a cron spec like "0 1 * * *" or "@hourly"
func (s *Scheduler) Add(name, spec string, job func()) error {
	if _, err := s.c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s, %w", name, err)
	}

	zap.L().Debug("Scheduled job", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
