package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/rove.go/pkg/framework"
)

// DefaultAddr is the default listening address of Server.
const DefaultAddr = ":9108"

// Server serves /metrics and /records.
type Server struct {
	Addr    string
	Metrics *Metrics
	Hub     *Hub

	listener net.Listener
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Handler builds the HTTP routes.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	if s.Hub != nil {
		r.GET("/records", gin.WrapH(s.Hub.Handler()))
	}
	return r
}

// Listen starts listening. Run calls it if not yet listening.
func (s *Server) Listen() error {
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
	return "monitor"
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	srv := &http.Server{Handler: s.Handler()}
	glog.Infof("monitor listening on %s", s.listener.Addr())
	err := fx.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
		return srv.Serve(s.listener)
	})
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
