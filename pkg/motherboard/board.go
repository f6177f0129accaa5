// Package motherboard routes records between the base station, the
// device links and telemetry sinks.
package motherboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/rove.go/pkg/framework"
	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
)

var (
	// ErrNotConnected indicates no link is bound to the device kind.
	ErrNotConnected = errors.New("device not connected")
	// ErrUnknownCommand indicates the base station command id is not mapped.
	ErrUnknownCommand = errors.New("unknown command")
)

// TelemetrySink receives records reported by devices.
type TelemetrySink interface {
	HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error
}

// TelemetryFunc is the func form of TelemetrySink.
type TelemetryFunc func(ctx context.Context, kind device.Kind, record []byte) error

// HandleTelemetry implements TelemetrySink.
func (f TelemetryFunc) HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error {
	return f(ctx, kind, record)
}

// Board binds device links to record kinds.
type Board struct {
	Registry *device.Registry

	lock  sync.RWMutex
	links map[device.Kind][]*xfer.Link
	sinks []TelemetrySink
}

// New creates a Board over the registry.
func New(registry *device.Registry) *Board {
	return &Board{
		Registry: registry,
		links:    make(map[device.Kind][]*xfer.Link),
	}
}

// Attach binds a link to a device kind. Records received on the link
// are reported as telemetry of kind.
func (b *Board) Attach(kind device.Kind, link *xfer.Link) error {
	d, err := b.Registry.Lookup(kind)
	if err != nil {
		return err
	}
	if link.Size() != d.Size {
		return fmt.Errorf("link %s: %w", link.Name(), &xfer.SizeError{Want: d.Size, Got: link.Size()})
	}
	link.Handler = xfer.HandleRecordFunc(func(ctx context.Context, record []byte) {
		b.publish(ctx, kind, record)
	})
	b.lock.Lock()
	b.links[kind] = append(b.links[kind], link)
	b.lock.Unlock()
	glog.Infof("%s: attached as %s", link.Name(), kind)
	return nil
}

// AddSink registers telemetry sinks.
func (b *Board) AddSink(sinks ...TelemetrySink) *Board {
	b.lock.Lock()
	b.sinks = append(b.sinks, sinks...)
	b.lock.Unlock()
	return b
}

// Links returns links bound to kind.
func (b *Board) Links(kind device.Kind) []*xfer.Link {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return append([]*xfer.Link(nil), b.links[kind]...)
}

// SendCommand sends the record on every link bound to kind.
func (b *Board) SendCommand(kind device.Kind, record []byte) error {
	d, err := b.Registry.Lookup(kind)
	if err != nil {
		return err
	}
	if len(record) != d.Size {
		return &xfer.SizeError{Want: d.Size, Got: len(record)}
	}
	links := b.Links(kind)
	if len(links) == 0 {
		return fmt.Errorf("%w: %s", ErrNotConnected, kind)
	}
	var errs fx.AggregatedError
	for _, link := range links {
		if err := link.Send(record); err != nil {
			errs.Add(fmt.Errorf("%s: %w", link.Name(), err))
		}
	}
	return errs.Aggregate()
}

// HandleBaseStation decodes a base station command [id][value...] and
// sends value to the device selected by id.
func (b *Board) HandleBaseStation(ctx context.Context, record []byte) error {
	if len(record) == 0 {
		return &xfer.SizeError{Want: 1, Got: 0}
	}
	d, err := b.Registry.ByID(record[0])
	if err != nil {
		return fmt.Errorf("%w: %d", ErrUnknownCommand, record[0])
	}
	value := record[1:]
	if len(value) < d.Size {
		return &xfer.SizeError{Want: d.Size, Got: len(value)}
	}
	return b.SendCommand(d.Kind, value[:d.Size])
}

// BaseStationHandler adapts HandleBaseStation for record links.
func (b *Board) BaseStationHandler() xfer.RecordHandler {
	return xfer.HandleRecordFunc(func(ctx context.Context, record []byte) {
		if err := b.HandleBaseStation(ctx, record); err != nil {
			glog.Warningf("base station command % x: %v", record, err)
		}
	})
}

func (b *Board) publish(ctx context.Context, kind device.Kind, record []byte) {
	b.lock.RLock()
	sinks := b.sinks
	b.lock.RUnlock()
	for _, sink := range sinks {
		if err := sink.HandleTelemetry(ctx, kind, record); err != nil {
			glog.Warningf("%s telemetry: %s: %v", kind, fx.NameOf(sink, "sink"), err)
		}
	}
}

// Name implements Named.
func (b *Board) Name() string {
	return "motherboard"
}

// Run implements Runnable. It runs all attached links until ctx is done
// or any link fails. Links over closable streams are closed on return.
func (b *Board) Run(ctx context.Context) error {
	runner := fx.NewRunnerWith(ctx)
	b.lock.RLock()
	for _, links := range b.links {
		for _, link := range links {
			link := link
			runner.Go(fx.NamedRun(link.Name(), fx.RunFunc(func(ctx context.Context) error {
				return runLink(ctx, link)
			})))
		}
	}
	b.lock.RUnlock()
	if len(runner.Runners) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := runner.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runLink(ctx context.Context, link *xfer.Link) error {
	closer, ok := link.ReadWriter.(io.Closer)
	if !ok {
		return link.Run(ctx)
	}
	return fx.RunWithContextCloser(ctx, closer, func() error {
		return link.Run(ctx)
	})
}

// Close closes the streams of all attached links. Run closes them on
// return, so Close is only needed when the board never runs.
func (b *Board) Close() error {
	var errs fx.AggregatedError
	b.lock.RLock()
	defer b.lock.RUnlock()
	for _, links := range b.links {
		for _, link := range links {
			if closer, ok := link.ReadWriter.(io.Closer); ok {
				errs.Add(closer.Close())
			}
		}
	}
	return errs.Aggregate()
}
