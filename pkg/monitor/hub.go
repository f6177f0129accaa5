package monitor

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rove.go/pkg/l0/device"
	"github.com/robotalks/rove.go/pkg/l1/msgs"
)

// DefaultClientQueue is the number of envelopes buffered per client.
const DefaultClientQueue = 64

// Hub fans telemetry envelopes out to websocket clients.
// Slow clients drop envelopes instead of blocking telemetry.
type Hub struct {
	QueueSize int

	lock    sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{QueueSize: DefaultClientQueue}
}

// Name implements Named.
func (h *Hub) Name() string {
	return "hub"
}

// NumClients returns the number of connected clients.
func (h *Hub) NumClients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// HandleTelemetry implements motherboard.TelemetrySink.
func (h *Hub) HandleTelemetry(ctx context.Context, kind device.Kind, record []byte) error {
	env, err := msgs.Wrap(kind, record)
	if err != nil {
		return err
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- env:
		default:
			glog.V(2).Infof("hub: client queue full, %s dropped", kind)
		}
	}
	return nil
}

// Handler returns the websocket handler streaming envelopes as
// binary messages.
func (h *Hub) Handler() websocket.Handler {
	return h.serve
}

func (h *Hub) subscribe() chan []byte {
	size := h.QueueSize
	if size <= 0 {
		size = DefaultClientQueue
	}
	ch := make(chan []byte, size)
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[chan []byte]struct{})
	}
	h.clients[ch] = struct{}{}
	h.lock.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.lock.Lock()
	delete(h.clients, ch)
	h.lock.Unlock()
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()
	ch := h.subscribe()
	defer h.unsubscribe(ch)
	glog.Infof("hub: client %s connected", conn.Request().RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case env := <-ch:
			if err := websocket.Message.Send(conn, env); err != nil {
				glog.V(2).Infof("hub: send error: %v", err)
				return
			}
		case <-closed:
			glog.Infof("hub: client %s disconnected", conn.Request().RemoteAddr)
			return
		}
	}
}
