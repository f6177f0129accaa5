package xfer

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
)

// RecordHandler is called when a record is received.
type RecordHandler interface {
	HandleRecord(context.Context, []byte)
}

// HandleRecordFunc is func type of RecordHandler.
type HandleRecordFunc func(context.Context, []byte)

// HandleRecord implements RecordHandler.
func (f HandleRecordFunc) HandleRecord(ctx context.Context, record []byte) {
	f(ctx, record)
}

// FrameErrorNotifier is called when a frame is rejected.
type FrameErrorNotifier interface {
	FrameError(context.Context, error)
}

// FrameErrorFunc is func type of FrameErrorNotifier.
type FrameErrorFunc func(context.Context, error)

// FrameError implements FrameErrorNotifier.
func (f FrameErrorFunc) FrameError(ctx context.Context, err error) {
	f(ctx, err)
}

// LinkObserver collects per-link statistics.
type LinkObserver interface {
	RecordReceived(link string)
	RecordSent(link string)
	FrameRejected(link string, status Status)
}

// DefaultReadSize is the default size of a single Read on the stream.
const DefaultReadSize = 256

// Link sends and receives records of one size over a byte stream.
type Link struct {
	ReadWriter io.ReadWriter
	Handler    RecordHandler
	Notifier   FrameErrorNotifier
	Observer   LinkObserver
	FastResync bool
	ReadSize   int

	name     string
	encoder  *Encoder
	decoder  *Decoder
	recvBuf  Buffer
	sendLock sync.Mutex
}

// NewLink creates a Link for records of size bytes.
func NewLink(name string, rw io.ReadWriter, size int) (*Link, error) {
	enc, err := NewEncoder(size)
	if err != nil {
		return nil, err
	}
	dec, err := NewDecoder(size)
	if err != nil {
		return nil, err
	}
	return &Link{
		ReadWriter: rw,
		ReadSize:   DefaultReadSize,
		name:       name,
		encoder:    enc,
		decoder:    dec,
	}, nil
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return l.name
}

// Size returns the record size of the link.
func (l *Link) Size() int {
	return l.decoder.Size()
}

// Send encodes and writes one record.
func (l *Link) Send(record []byte) error {
	frame, err := l.encoder.Frame(record)
	if err != nil {
		return err
	}
	l.sendLock.Lock()
	defer l.sendLock.Unlock()
	if _, err = l.ReadWriter.Write(frame); err != nil {
		return err
	}
	if o := l.Observer; o != nil {
		o.RecordSent(l.name)
	}
	return nil
}

// Run receives records until the stream fails or ctx is done.
// Rejected frames never stop the link.
func (l *Link) Run(ctx context.Context) error {
	l.decoder.FastResync = l.FastResync
	l.decoder.Reset()
	l.recvBuf.Reset()

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			l.recvBuf.Write(chunk)
			l.drain(ctx)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	size := l.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)
	for {
		n, err := l.ReadWriter.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (l *Link) drain(ctx context.Context) {
	for {
		r := l.decoder.Feed(&l.recvBuf)
		switch r.Status {
		case NeedMoreData:
			return
		case FrameReady:
			record := make([]byte, len(r.Record))
			copy(record, r.Record)
			glog.V(2).Infof("%s: RCV % x", l.name, record)
			if o := l.Observer; o != nil {
				o.RecordReceived(l.name)
			}
			if h := l.Handler; h != nil {
				h.HandleRecord(ctx, record)
			}
		default:
			glog.V(2).Infof("%s: frame rejected: %v", l.name, r.Err)
			if o := l.Observer; o != nil {
				o.FrameRejected(l.name, r.Status)
			}
			if n := l.Notifier; n != nil {
				n.FrameError(ctx, r.Err)
			}
		}
	}
}
