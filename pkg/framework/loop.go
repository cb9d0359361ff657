package framework

import (
	"context"
	"log"
	"time"

	"github.com/golang/glog"
)

// Loop is a single-threaded cooperative scheduler. Each iteration
// runs all controllers ordered by priority level. Blocking is only
// allowed in controllers which bound it (e.g. polling input for one
// time slice).
type Loop struct {
	Clock Clock

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	running bool
	last    time.Duration
	started bool
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Duration
	delta         time.Duration
	priorityLevel int
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Clock: NewSystemClock()}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	return l
}

// AddRunnable adds Runnable implementions which run in background
// as long as the loop is running.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns when stopped, on the first fatal
// error of a controller or a background Runnable, or when ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(ctx).Go(l.runners...)
	defer func() {
		runner.Stop()
		if err := runner.Wait(); err != nil {
			glog.Warningf("background services: %v", err)
		}
	}()

	l.running = true
	for l.running {
		select {
		case <-runner.Done():
			if err := runner.Err(); err != nil {
				return err
			}
			return ctx.Err()
		default:
		}
		if err := l.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail() {
	if err := l.Run(context.TODO()); err != nil {
		log.Fatalln(err)
	}
}

// Step runs exactly one iteration. A fatal controller error aborts
// the iteration and is returned.
func (l *Loop) Step(ctx context.Context) error {
	if l.Clock == nil {
		l.Clock = NewSystemClock()
	}
	now := l.Clock.Now()
	if !l.started {
		l.last, l.started = now, true
	}
	iter := &loopIteration{Loop: l, ctx: ctx, time: now, delta: now - l.last}
	l.last = now
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		if err := runControllers(iter, l.controllers[i]); err != nil {
			l.running = false
			return err
		}
	}
	return nil
}

// Stop implements LoopControl.
func (l *Loop) Stop() {
	l.running = false
}

// Running implements LoopControl.
func (l *Loop) Running() bool {
	return l.running
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Duration {
	return t.time
}

func (t *loopIteration) Delta() time.Duration {
	return t.delta
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func runControllers(iter *loopIteration, ctls []Controller) error {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			if IsFatal(err) {
				return err
			}
			glog.Errorf("controller error: %v", err)
		}
	}
	return nil
}
