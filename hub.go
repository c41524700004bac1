package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"web/gridcluster/cluster"
)

const (
	writeWait   = 10 * time.Second
	sendBufSize = 16
)

// ChangeMessage is pushed to websocket clients after every published pass
// and every clear.
type ChangeMessage struct {
	Type      string  `json:"type"`
	Status    string  `json:"status,omitempty"`
	SideWidth float64 `json:"sideWidth"`
	Records   int     `json:"records"`
	Points    int     `json:"points"`
	Time      int64   `json:"time"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans change messages out to connected websocket clients. Slow clients
// drop messages rather than stalling the clustering caller.
type Hub struct {
	log      *logrus.Entry
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*wsClient),
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg ChangeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal change message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.WithField("client", c.id).Warn("websocket client too slow, dropping message")
		}
	}
}

// Listener adapts Source change events to broadcasts. Per-record events are
// not forwarded.
func (h *Hub) Listener(source *cluster.Source) func(cluster.Change) {
	return func(c cluster.Change) {
		msg := ChangeMessage{
			SideWidth: source.CurrentSideWidth(),
			Points:    len(source.Points()),
			Time:      time.Now().UnixMilli(),
		}
		switch c.Type {
		case cluster.ChangeCleared:
			msg.Type = "cleared"
		case cluster.ChangePublished:
			msg.Type = "published"
			msg.Records = len(c.Records)
		default:
			return
		}
		h.Broadcast(msg)
	}
}

// ServeHTTP upgrades the request and keeps the client registered until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &wsClient{id: uuid.New().String(), conn: conn, send: make(chan []byte, sendBufSize)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.WithField("client", c.id).Info("websocket client connected")

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Drain client messages until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	close(done)
	conn.Close()
	h.log.WithField("client", c.id).Info("websocket client disconnected")
}

func (h *Hub) writeLoop(c *wsClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.WithError(err).WithField("client", c.id).Warn("websocket write failed")
				c.conn.Close()
				return
			}
		}
	}
}
