// Package tcp carries struct transfer frames over TCP, the way base
// station talks to the motherboard.
package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/robotalks/rove.go/pkg/framework"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
)

// DefaultAddr is the base station listening address.
const DefaultAddr = ":4500"

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Conn is a struct transfer link over a TCP connection.
type Conn struct {
	*xfer.Link
	conn net.Conn
}

// NewConn wraps a connection with a link for records of size bytes.
func NewConn(conn net.Conn, size int) (*Conn, error) {
	link, err := xfer.NewLink("tcp/"+uuid.New().String(), conn, size)
	if err != nil {
		return nil, err
	}
	return &Conn{Link: link, conn: conn}, nil
}

// Dial connects to addr.
func Dial(addr string, size int) (*Conn, error) {
	if !xfer.ValidSize(size) {
		return nil, xfer.ErrInvalidSize
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := NewConn(conn, size)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Run receives records until the peer disconnects or ctx is done.
// The connection is closed on return. A clean disconnect returns nil.
func (c *Conn) Run(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, c.conn, func() error {
		return c.Link.Run(ctx)
	})
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// echoConn writes every received chunk back to the peer.
type echoConn struct {
	net.Conn
}

func (c *echoConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		if _, werr := c.Conn.Write(p[:n]); werr != nil && err == nil {
			err = werr
		}
	}
	return n, err
}

// Server accepts connections, each with its own link and decoder.
type Server struct {
	Addr     string
	Size     int
	Handler  xfer.RecordHandler
	Notifier xfer.FrameErrorNotifier
	Observer xfer.LinkObserver
	// Echo sends received bytes back to the base station as they arrive.
	Echo bool

	listener net.Listener
	conns    map[*Conn]struct{}
	lock     sync.Mutex
	wg       sync.WaitGroup
}

// Listen starts listening. Run calls it if not yet listening.
func (s *Server) Listen() error {
	if !xfer.ValidSize(s.Size) {
		return xfer.ErrInvalidSize
	}
	addr := s.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// ListenAddr returns the actual listening address.
func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Name implements Named.
func (s *Server) Name() string {
	return "tcp-server"
}

// NumConns returns the number of active connections.
func (s *Server) NumConns() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.conns)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	glog.Infof("listening on %s", s.listener.Addr())
	connCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()
	return fx.RunWithContextCloser(ctx, s.listener, func() error {
		var delay time.Duration
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Temporary() {
					if delay *= 2; delay == 0 {
						delay = minAcceptDelay
					} else if delay > maxAcceptDelay {
						delay = maxAcceptDelay
					}
					glog.Warningf("accept error: %v; retrying in %v", err, delay)
					select {
					case <-time.After(delay):
						continue
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return err
			}
			delay = 0
			if s.Echo {
				conn = &echoConn{Conn: conn}
			}
			c, err := NewConn(conn, s.Size)
			if err != nil {
				conn.Close()
				return err
			}
			c.Handler, c.Notifier, c.Observer = s.Handler, s.Notifier, s.Observer
			s.serve(connCtx, c)
		}
	})
}

func (s *Server) serve(ctx context.Context, c *Conn) {
	s.lock.Lock()
	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}
	s.conns[c] = struct{}{}
	s.lock.Unlock()

	glog.Infof("%s: accepted from %s", c.Name(), c.RemoteAddr())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			glog.Warningf("%s: %v", c.Name(), err)
		}
		glog.Infof("%s: closed", c.Name())
		s.lock.Lock()
		delete(s.conns, c)
		s.lock.Unlock()
	}()
}
