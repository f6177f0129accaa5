package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Runner.Wait when stop is requested twice.
var ErrForcedExit = errors.New("forced exit")

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// NameOf returns the name of v if it's Named, otherwise fallback.
func NameOf(v interface{}, fallback string) string {
	if named, ok := v.(Named); ok {
		return named.Name()
	}
	return fallback
}

type runResult struct {
	name string
	err  error
}

// Runner runs multiple Runnables and collect errors.
type Runner struct {
	Context context.Context
	Runners []Runnable

	resultCh chan runResult
	exitCh   chan struct{}
	cancel   context.CancelFunc
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a specified context.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{
		resultCh: make(chan runResult, 1),
		exitCh:   make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals handles CtrlC and SIGTERM from the system.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Stop cancels the context of all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Go spawns Runnables with the runner's context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	return r.GoWith(r.Context, runners...)
}

// GoWith spawns Runnables with a specified context.
func (r *Runner) GoWith(ctx context.Context, runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := NameOf(runner, strconv.Itoa(len(r.Runners)))
		r.Runners = append(r.Runners, runner)
		glog.V(4).Infof("start Runner[%s]", name)
		go func(runner Runnable, name string) {
			err := runner.Run(ctx)
			glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
			r.resultCh <- runResult{name: name, err: err}
		}(runner, name)
	}
	return r
}

// Wait waits until all Runnables stop and aggregates errors.
// The first failure cancels the others.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for range r.Runners {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case res := <-r.resultCh:
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				glog.Errorf("%s: %v", res.name, res.err)
				errs.Add(fmt.Errorf("%s: %w", res.name, res.err))
				r.cancel()
			}
		}
	}
	r.cancel()
	return errs.Aggregate()
}

// RunWithContextCancel runs a func which doesn't accept a context.
// onCancel is called only when the context is canceled, and it must
// unblock fn.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		if onCancel != nil {
			onCancel()
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// RunWithContext is simplified form with no cancel callback.
func RunWithContext(ctx context.Context, fn func() error) error {
	return RunWithContextCancel(ctx, nil, fn)
}

// RunWithContextCloser closes closer either on cancel or on exit of fn.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var closed bool
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}
