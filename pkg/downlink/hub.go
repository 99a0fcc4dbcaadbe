package downlink

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/avionics.go/pkg/storage"
)

const hubClientBacklog = 16

// Hub streams flushed blocks to WebSocket clients as binary messages.
// A client not keeping up loses blocks instead of slowing the writer.
type Hub struct {
	lock    sync.Mutex
	clients map[*hubClient]struct{}
	dropped uint64
}

type hubClient struct {
	ch chan []byte
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Handler returns the http.Handler accepting WebSocket clients.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Dropped returns the number of blocks not delivered to slow clients.
func (h *Hub) Dropped() uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.dropped
}

// WriteBlock implements storage.Sink.
func (h *Hub) WriteBlock(block *storage.Block) error {
	data := block.Marshal()
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- data:
		default:
			h.dropped++
		}
	}
	return nil
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()
	c := &hubClient{ch: make(chan []byte, hubClientBacklog)}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.clients, c)
		h.lock.Unlock()
	}()
	glog.V(1).Infof("hub: client %s connected", conn.Request().RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
	}()
	for {
		select {
		case <-closed:
			glog.V(1).Infof("hub: client %s disconnected", conn.Request().RemoteAddr)
			return
		case data := <-c.ch:
			if err := websocket.Message.Send(conn, data); err != nil {
				return
			}
		}
	}
}
