package ratelimit

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultSweepEvery is how often the janitor purges stale entries.
const DefaultSweepEvery = 5 * time.Minute

type Sweeper interface {
	Sweep(now time.Time) int
}

// Janitor periodically sweeps a store. Only the first Start runs a loop;
// cancel its ctx to stop it.
type Janitor struct {
	target Sweeper
	every  time.Duration
	now    func() time.Time
	logger log.FieldLogger
	start  sync.Once
	done   chan struct{}
}

func NewJanitor(target Sweeper, every time.Duration, logger log.FieldLogger) *Janitor {
	if every <= 0 {
		every = DefaultSweepEvery
	}
	return &Janitor{
		target: target,
		every:  every,
		now:    time.Now,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// RunOnce sweeps immediately.
func (j *Janitor) RunOnce() int {
	n := j.target.Sweep(j.now())
	if n > 0 {
		j.logger.WithField("removed", n).Debug("rate limit entries swept")
	}
	return n
}

func (j *Janitor) Start(ctx context.Context) {
	j.start.Do(func() { j.run(ctx) })
}

func (j *Janitor) run(ctx context.Context) {
	t := time.NewTicker(j.every)
	go func() {
		defer close(j.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				j.RunOnce()
			}
		}
	}()
}

// Done is closed once a started janitor has exited.
func (j *Janitor) Done() <-chan struct{} { return j.done }
