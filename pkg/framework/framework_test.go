package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.Nil(t, errs.Add(nil, nil).Aggregate())
	e1, e2 := errors.New("e1"), errors.New("e2")
	err := errs.Add(e1).Aggregate()
	require.Error(t, err)
	assert.Equal(t, "e1", err.Error())
	err = errs.Add(e2).Aggregate()
	assert.Equal(t, "Multiple errors:\ne1\ne2", err.Error())
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestRunnerStopsOthersOnError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner()
	r.Go(
		NamedRun("failing", RunFunc(func(ctx context.Context) error { return boom })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	err := r.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing: boom")
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "x", NameOf(NamedRun("x", nil), "y"))
	assert.Equal(t, "y", NameOf(42, "y"))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	var closed int32
	blockCh := make(chan struct{})
	closer := closerFunc(func() error {
		if atomic.AddInt32(&closed, 1) == 1 {
			close(blockCh)
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-blockCh
		return errors.New("closed")
	})
	assert.Equal(t, context.Canceled, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))

	closed = 0
	blockCh = make(chan struct{})
	err = RunWithContextCloser(context.Background(), closer, func() error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&closed))
}

func TestLoopTicks(t *testing.T) {
	tickCh := make(chan time.Time, 4)
	l := NewLoop(time.Hour)
	l.Add(TickFunc(func(ctx context.Context, now time.Time) error {
		tickCh <- now
		return errors.New("ignored")
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	l.TriggerNext()
	select {
	case <-tickCh:
	case <-time.After(time.Second):
		t.Fatal("tick expected")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
}
