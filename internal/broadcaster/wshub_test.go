// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSHubDeliversOnlyToSubscribedRoom(t *testing.T) {
	h := NewWSHub()
	c := &wsConn{send: make(chan []byte, 4)}
	h.register(c)
	h.subscribe(c, "dashboard_device_1")

	require.NoError(t, h.PublishRoom("dashboard_device_1", []byte("a")))
	require.NoError(t, h.PublishRoom("dashboard_device_2", []byte("b")))

	select {
	case msg := <-c.send:
		assert.Equal(t, "a", string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected message on subscribed room")
	}

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message from unsubscribed room: %s", msg)
	default:
	}
}

func TestWSHubUnregisterClosesSendChannel(t *testing.T) {
	h := NewWSHub()
	c := &wsConn{send: make(chan []byte, 1)}
	h.register(c)
	h.subscribe(c, "room")

	// The test connection has no underlying websocket for unregister to
	// close, so this repeats unregister's map and channel teardown inline.
	h.mu.Lock()
	delete(h.clients, c)
	for room := range h.rooms {
		delete(h.rooms[room], c)
	}
	close(c.send)
	h.mu.Unlock()

	_, open := <-c.send
	assert.False(t, open)

	require.NoError(t, h.PublishRoom("room", []byte("x")))
}

func TestWSHubDropsWhenSendBufferFull(t *testing.T) {
	h := NewWSHub()
	c := &wsConn{send: make(chan []byte, 1)}
	h.register(c)
	h.subscribe(c, "room")

	require.NoError(t, h.PublishRoom("room", []byte("1")))
	require.NoError(t, h.PublishRoom("room", []byte("2"))) // buffer full, dropped not blocked

	msg := <-c.send
	assert.Equal(t, "1", string(msg))
}
