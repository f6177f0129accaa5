package monitor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l0/xfer"
	"github.com/robotalks/rove.go/pkg/l1/msgs"
)

func TestMetricsObserveLinks(t *testing.T) {
	m := NewMetrics()
	m.RecordReceived("uart1")
	m.RecordReceived("uart1")
	m.RecordSent("uart2")
	m.FrameRejected("uart1", xfer.ChecksumMismatch)
	m.FrameRejected("uart1", xfer.SizeMismatch)
	m.FrameRejected("uart1", xfer.SizeMismatch)
	require.NoError(t, m.HandleTelemetry(context.TODO(), device.GPS, []byte{1}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("uart1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("uart2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("uart1", "checksum-mismatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejected.WithLabelValues("uart1", "size-mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.telemetry.WithLabelValues("gps")))
}

func startServer(t *testing.T) (*Server, func()) {
	s := &Server{Addr: "127.0.0.1:0", Metrics: NewMetrics(), Hub: NewHub()}
	require.NoError(t, s.Listen())
	ctx, cancel := context.WithCancel(context.TODO())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("monitor not stopped")
		}
	}
}

func TestServeMetrics(t *testing.T) {
	s, stop := startServer(t)
	defer stop()
	s.Metrics.RecordReceived("tcp/x")

	resp, err := http.Get("http://" + s.ListenAddr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `rove_link_records_received_total{link="tcp/x"} 1`))
}

func TestServerRoutes(t *testing.T) {
	testCases := []struct {
		name   string
		server *Server
		method string
		path   string
		status int
	}{
		{"metrics", &Server{Metrics: NewMetrics()}, http.MethodGet, "/metrics", http.StatusOK},
		{"metrics post", &Server{Metrics: NewMetrics()}, http.MethodPost, "/metrics", http.StatusNotFound},
		{"no metrics", &Server{Hub: NewHub()}, http.MethodGet, "/metrics", http.StatusNotFound},
		{"unknown", &Server{Metrics: NewMetrics(), Hub: NewHub()}, http.MethodGet, "/status", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.server.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestStreamRecords(t *testing.T) {
	s, stop := startServer(t)
	defer stop()

	addr := s.ListenAddr().String()
	conn, err := websocket.Dial("ws://"+addr+"/records", "", "http://"+addr)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub.NumClients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Hub.HandleTelemetry(context.TODO(), device.Test, []byte{1, 2, 3, 4}))

	var env []byte
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, websocket.Message.Receive(conn, &env))
	kind, record, err := msgs.Unwrap(env)
	require.NoError(t, err)
	assert.Equal(t, device.Test, kind)
	assert.Equal(t, []byte{1, 2, 3, 4}, record)

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub.NumClients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := &Hub{QueueSize: 1}
	ch := h.subscribe()
	require.NoError(t, h.HandleTelemetry(context.TODO(), device.Test, []byte{1}))
	require.NoError(t, h.HandleTelemetry(context.TODO(), device.Test, []byte{2}))
	require.Len(t, ch, 1)
	h.unsubscribe(ch)
	assert.Equal(t, 0, h.NumClients())
}
