// Package scheduler runs periodic housekeeping tasks aligned to wall-clock boundaries.
package scheduler

import (
	"context"
	"time"

	"coachdesk/internal/logger"
)

// AlignedScheduler fires a task at every Interval boundary plus Offset
// (e.g. each full minute + 2s), until its context is cancelled.
type AlignedScheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, name string, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Name:     name,
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// SetClock replaces the time source used to compute the next run.
func (s *AlignedScheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Start blocks, invoking task with the scheduled wake time.
func (s *AlignedScheduler) Start(task func(time.Time)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("scheduler %s: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	logger.Debugf("scheduler %s: started interval=%s offset=%s run_immediately=%v", s.Name, s.Interval, s.Offset, s.RunImmediately)

	if s.RunImmediately {
		task(s.nowFn())
	}
	for {
		now := s.nowFn()
		wakeAt, wait := s.NextRun(now)
		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Debugf("scheduler %s: ctx done, exit", s.Name)
			return
		case <-timer.C:
		}
		task(wakeAt)
	}
}

// NextRun returns the next wake time strictly after now and the wait until it.
func (s *AlignedScheduler) NextRun(now time.Time) (wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	wakeAt = now.Truncate(s.Interval).Add(s.Offset)
	for !wakeAt.After(now) {
		wakeAt = wakeAt.Add(s.Interval)
	}
	return wakeAt, wakeAt.Sub(now)
}
