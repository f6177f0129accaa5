package motherboard

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/rove.go/pkg/framework"
)

// DefaultTestInterval is the period of TestGenerator.
const DefaultTestInterval = 5 * time.Second

// TestArmCommand is a base station command moving every robotic arm
// joint with a distinct value, handy to verify the arm wiring.
var TestArmCommand = []byte{
	8,                                      // robotic_arm command id
	8,                                      // struct id
	0,                                      // reset
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, // joints
}

// TestGenerator injects a base station command periodically.
type TestGenerator struct {
	Board    *Board
	Command  []byte
	Interval time.Duration
}

// Name implements Named.
func (g *TestGenerator) Name() string {
	return "test-generator"
}

// Tick implements Ticker.
func (g *TestGenerator) Tick(ctx context.Context, now time.Time) error {
	cmd := g.Command
	if cmd == nil {
		cmd = TestArmCommand
	}
	err := g.Board.HandleBaseStation(ctx, cmd)
	if errors.Is(err, ErrNotConnected) {
		glog.V(2).Infof("test command skipped: %v", err)
		return nil
	}
	return err
}

// Run implements Runnable.
func (g *TestGenerator) Run(ctx context.Context) error {
	interval := g.Interval
	if interval <= 0 {
		interval = DefaultTestInterval
	}
	return fx.NewLoop(interval).Add(g).Run(ctx)
}
