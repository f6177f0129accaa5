package env

import (
	"fmt"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/rove.go/pkg/framework"
	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/serial"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
	"github.com/robotalks/rove.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/rove.go/pkg/l1/comm/tcp"
	"github.com/robotalks/rove.go/pkg/monitor"
	"github.com/robotalks/rove.go/pkg/motherboard"
	"github.com/robotalks/rove.go/pkg/store"
)

var openPort = serial.Open

// Env is the assembled bridge.
type Env struct {
	Config  *Config
	Board   *motherboard.Board
	Metrics *monitor.Metrics
	Hub     *monitor.Hub
	Monitor *monitor.Server
	Store   *store.Store
	Bridge  *mqtt.Bridge
	TCP     *tcp.Server
	TestGen *motherboard.TestGenerator

	closers []io.Closer
}

// NewBoard builds the board with serial links opened.
func (c *Config) NewBoard(observer xfer.LinkObserver) (*motherboard.Board, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	board := motherboard.New(reg)
	for _, lc := range c.Links {
		if err := c.attachLink(board, lc, observer); err != nil {
			board.Close()
			return nil, err
		}
	}
	return board, nil
}

func (c *Config) attachLink(board *motherboard.Board, lc LinkConfig, observer xfer.LinkObserver) error {
	d, err := board.Registry.Lookup(lc.Device)
	if err != nil {
		return fmt.Errorf("link %s: %w", lc.LinkName(), err)
	}
	port, err := openPort(lc.Serial())
	if err != nil {
		return fmt.Errorf("link %s: %w", lc.LinkName(), err)
	}
	link, err := xfer.NewLink(lc.LinkName(), port, d.Size)
	if err == nil {
		link.FastResync, link.Observer = c.FastResync, observer
		err = board.Attach(lc.Device, link)
	}
	if err != nil {
		port.Close()
		return fmt.Errorf("link %s: %w", lc.LinkName(), err)
	}
	return nil
}

// NewEnv assembles all components enabled in the config.
func (c *Config) NewEnv() (*Env, error) {
	interval, err := c.TestInterval()
	if err != nil {
		return nil, err
	}
	env := &Env{
		Config:  c,
		Metrics: monitor.NewMetrics(),
		Hub:     monitor.NewHub(),
	}
	board, err := c.NewBoard(env.Metrics)
	if err != nil {
		return nil, err
	}
	env.Board = board
	board.AddSink(env.Metrics, env.Hub)

	if c.Store != "" {
		if env.Store, err = store.Open(c.StorePath()); err != nil {
			board.Close()
			return nil, err
		}
		env.closers = append(env.closers, env.Store)
		board.AddSink(env.Store)
	}
	if c.MQTTURL != "" {
		if env.Bridge, err = mqtt.NewBridge(c.MQTTURL, c.ID, board.Registry.Descriptors()); err != nil {
			board.Close()
			env.Close()
			return nil, fmt.Errorf("create MQTT bridge error: %w", err)
		}
		env.Bridge.Commands = board
		board.AddSink(env.Bridge)
	}
	if c.Listen != "" {
		d, err := board.Registry.Lookup(device.TCPCommand)
		if err != nil {
			board.Close()
			env.Close()
			return nil, err
		}
		env.TCP = &tcp.Server{
			Addr:     c.Listen,
			Size:     d.Size,
			Handler:  board.BaseStationHandler(),
			Observer: env.Metrics,
			Echo:     c.Echo,
		}
	}
	if c.Monitor != "" {
		env.Monitor = &monitor.Server{Addr: c.Monitor, Metrics: env.Metrics, Hub: env.Hub}
	}
	if c.Test.Enabled {
		env.TestGen = &motherboard.TestGenerator{Board: board, Interval: interval}
	}
	return env, nil
}

// Runnables returns the enabled components.
func (e *Env) Runnables() []fx.Runnable {
	runnables := []fx.Runnable{e.Board}
	if e.Bridge != nil {
		runnables = append(runnables, e.Bridge)
	}
	if e.TCP != nil {
		runnables = append(runnables, e.TCP)
	}
	if e.Monitor != nil {
		runnables = append(runnables, e.Monitor)
	}
	if e.TestGen != nil {
		runnables = append(runnables, e.TestGen)
	}
	return runnables
}

// Close releases resources not owned by runnables.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, c := range e.closers {
		errs.Add(c.Close())
	}
	e.closers = nil
	if errs.Aggregate() != nil {
		glog.Errorf("close env: %v", errs.Aggregate())
	}
	return errs.Aggregate()
}
