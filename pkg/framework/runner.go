package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name used in logs and errors.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs background services (broker clients, telemetry
// publishers) next to the control loop. A fatal error from one of them
// cancels all the others.
type Runner struct {
	Context context.Context

	cancel context.CancelFunc
	names  []string
	wg     sync.WaitGroup
	exitCh chan struct{}

	errLock sync.Mutex
	errs    AggregatedError
	fatal   error
}

// NewRunner creates a runner under a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner cancelled together with ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{exitCh: make(chan struct{})}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the runner on SIGINT or SIGTERM. A second signal
// makes Wait give up on services which are still running.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		sig = <-sigCh
		glog.Errorf("%v again: force exit", sig)
		close(r.exitCh)
	}()
	return r
}

// Go starts runnables in background.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := strconv.Itoa(len(r.names))
		if named, ok := runnable.(Named); ok {
			name = named.Name()
		}
		r.names = append(r.names, name)
		r.wg.Add(1)
		go r.run(name, runnable)
	}
	return r
}

func (r *Runner) run(name string, runnable Runnable) {
	defer r.wg.Done()
	glog.V(4).Infof("service %s started", name)
	err := runnable.Run(r.Context)
	glog.V(4).Infof("service %s stopped: %v", name, err)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	err = fmt.Errorf("%s: %w", name, err)
	r.errLock.Lock()
	r.errs.Add(err)
	if IsFatal(err) && r.fatal == nil {
		r.fatal = err
	}
	r.errLock.Unlock()
	if IsFatal(err) {
		glog.Errorf("service %v", err)
		r.cancel()
	}
}

// Stop cancels all services.
func (r *Runner) Stop() {
	r.cancel()
}

// Done is closed when the runner is stopped, by Stop, by the parent
// context or by a fatal service error.
func (r *Runner) Done() <-chan struct{} {
	return r.Context.Done()
}

// Err returns the first fatal service error.
func (r *Runner) Err() error {
	r.errLock.Lock()
	defer r.errLock.Unlock()
	return r.fatal
}

// Wait waits until all services stop and aggregates their errors.
func (r *Runner) Wait() error {
	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-r.exitCh:
		return errors.New("forced exit")
	}
	r.errLock.Lock()
	defer r.errLock.Unlock()
	return r.errs.Aggregate()
}
