// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte
}

// WSHub is the plain-websocket delivery leg for deployments without a NATS
// broker. Each client subscribes to one or more rooms over its single
// connection via a JSON {"subscribe": "<room>"} control message; the hub
// writes every payload published to a room to each subscriber's send
// channel, and a dedicated writer goroutine per connection drains it, so a
// slow client backs up its own channel rather than blocking PublishRoom.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*wsConn]map[string]struct{}
	rooms   map[string]map[*wsConn]struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*wsConn]map[string]struct{}),
		rooms:   make(map[string]map[*wsConn]struct{}),
	}
}

// PublishRoom implements Sink.
func (h *WSHub) PublishRoom(room string, payload []byte) error {
	h.mu.RLock()
	subs := h.rooms[room]
	targets := make([]*wsConn, 0, len(subs))
	for c := range subs {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			modbuslog.Warnf("broadcaster: websocket client send buffer full for room %q, dropping", room)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and serves the connection until it
// disconnects. Intended to be mounted at the broadcaster's websocket
// endpoint (e.g. "/ws").
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		modbuslog.Warnf("broadcaster: websocket upgrade failed: %v", err)
		return
	}

	c := &wsConn{conn: conn, send: make(chan []byte, 32)}
	h.register(c)
	defer h.unregister(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *WSHub) register(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = make(map[string]struct{})
}

func (h *WSHub) unregister(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.clients[c] {
		delete(h.rooms[room], c)
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

func (h *WSHub) subscribe(c *wsConn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c][room] = struct{}{}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*wsConn]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

type subscribeMessage struct {
	Subscribe string `json:"subscribe"`
}

func (h *WSHub) readPump(c *wsConn) {
	for {
		var msg subscribeMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Subscribe != "" {
			h.subscribe(c, msg.Subscribe)
		}
	}
}

func (h *WSHub) writePump(c *wsConn) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
