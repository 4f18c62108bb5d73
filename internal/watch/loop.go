package watch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	logx "contentwatch/pkg/logx"
)

// JobStats is what /status reports for one job.
type JobStats struct {
	Name      string
	Runs      int
	LastCycle string
	LastStart time.Time
	LastTook  time.Duration
	Last      Result
	LastErr   string

	TotalChanged int
	TotalSent    int
	TotalFailed  int
}

// Loop drives the registered jobs one after another, then sleeps until the
// schedule's next time measured from the end of the cycle. Cycles never
// overlap and missed ticks are not caught up.
type Loop struct {
	log  logx.Logger
	jobs []Job

	mu      sync.Mutex
	sched   cron.Schedule
	stats   map[string]*JobStats
	nextRun time.Time
	cycles  int

	resched chan struct{}
	now     func() time.Time
}

func NewLoop(sched cron.Schedule, log logx.Logger, jobs ...Job) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{
		log:     log,
		jobs:    jobs,
		sched:   sched,
		stats:   map[string]*JobStats{},
		resched: make(chan struct{}, 1),
		now:     time.Now,
	}
	for _, j := range jobs {
		l.stats[j.Name()] = &JobStats{Name: j.Name()}
	}
	return l
}

// SetSchedule replaces the schedule. A pending sleep is recomputed from the
// end of the last cycle.
func (l *Loop) SetSchedule(s cron.Schedule) {
	if s == nil {
		return
	}
	l.mu.Lock()
	l.sched = s
	l.mu.Unlock()
	select {
	case l.resched <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled. The first cycle starts immediately.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunOnce(ctx)
		if err := l.sleep(ctx, l.now()); err != nil {
			return err
		}
	}
}

func (l *Loop) sleep(ctx context.Context, end time.Time) error {
	for {
		t := time.NewTimer(l.scheduleNext(end))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-l.resched:
			t.Stop()
			l.log.Info("schedule changed, recomputing next run")
		case <-t.C:
			return nil
		}
	}
}

func (l *Loop) scheduleNext(end time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.sched.Next(end)
	if next.IsZero() {
		// Schedules that never fire again fall back to a minute.
		next = end.Add(time.Minute)
	}
	l.nextRun = next
	wait := next.Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	return wait
}

// RunOnce runs one cycle of every job.
func (l *Loop) RunOnce(ctx context.Context) {
	l.mu.Lock()
	l.cycles++
	l.mu.Unlock()

	for _, j := range l.jobs {
		if ctx.Err() != nil {
			return
		}
		l.runJob(ctx, j)
	}
}

func (l *Loop) runJob(ctx context.Context, j Job) {
	id := uuid.NewString()[:8]
	log := l.log.With(logx.Job(j.Name()), logx.Cycle(id))
	start := l.now()

	res, err := func() (res Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("cycle panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return j.Run(ctx, log)
	}()
	took := l.now().Sub(start)

	if err != nil {
		log.Error("cycle failed", logx.Duration("took", took), logx.Err(err))
	} else if res.Changed > 0 {
		log.Info("cycle done",
			logx.Int("fetched", res.Fetched),
			logx.Int("endpoints", res.Endpoints),
			logx.Int("changed", res.Changed),
			logx.Int("sent", res.Delivery.Sent),
			logx.Int("failed", res.Delivery.Failed),
			logx.Duration("took", took),
		)
	} else {
		log.Debug("cycle done, nothing changed", logx.Int("fetched", res.Fetched), logx.Duration("took", took))
	}

	l.mu.Lock()
	st := l.stats[j.Name()]
	if st == nil {
		st = &JobStats{Name: j.Name()}
		l.stats[j.Name()] = st
	}
	st.Runs++
	st.LastCycle = id
	st.LastStart = start
	st.LastTook = took
	st.Last = res
	st.LastErr = ""
	if err != nil {
		st.LastErr = err.Error()
	}
	st.TotalChanged += res.Changed
	st.TotalSent += res.Delivery.Sent
	st.TotalFailed += res.Delivery.Failed
	l.mu.Unlock()
}

// Stats returns a copy of the per-job statistics in registration order.
func (l *Loop) Stats() (jobs []JobStats, cycles int, nextRun time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, j := range l.jobs {
		if st := l.stats[j.Name()]; st != nil {
			jobs = append(jobs, *st)
		}
	}
	return jobs, l.cycles, l.nextRun
}
