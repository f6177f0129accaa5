package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is used when Loop.Interval is not set.
const DefaultInterval = time.Second

// Loop runs Tickers at a fixed interval.
type Loop struct {
	Interval time.Duration

	tickers []Ticker
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration) *Loop {
	return &Loop{Interval: interval, wakeUpCh: make(chan struct{}, 1)}
}

// Add registers tickers to the loop.
func (l *Loop) Add(tickers ...Ticker) *Loop {
	l.lock.Lock()
	l.tickers = append(l.tickers, tickers...)
	l.lock.Unlock()
	return l
}

// TriggerNext wakes up the loop for an extra iteration.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			l.runIteration(ctx, now)
		case <-l.wakeUpCh:
			l.runIteration(ctx, time.Now())
		}
	}
}

func (l *Loop) runIteration(ctx context.Context, now time.Time) {
	l.lock.Lock()
	tickers := l.tickers
	l.lock.Unlock()
	for _, t := range tickers {
		if err := t.Tick(ctx, now); err != nil {
			glog.Errorf("tick error: %v", err)
		}
	}
}
