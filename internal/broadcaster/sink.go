// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

// Sink is one delivery leg for outgoing room messages. Both the NATS
// publisher and the websocket hub implement it, and a Broadcaster can be
// given any number of them: spec §4.10's two rooms (dashboard_device_<id>,
// subdashboard_<id>) plus alarm_event all go through the same interface.
type Sink interface {
	PublishRoom(room string, payload []byte) error
}

// multiSink fans one publish out to every underlying Sink. A leg that
// errors does not stop delivery to the remaining legs; the first error is
// returned to the caller once every leg has been tried.
type multiSink struct {
	sinks []Sink
}

// NewMultiSink combines any number of delivery legs (NATS, the websocket
// hub) into the single Sink a Broadcaster is constructed with.
func NewMultiSink(sinks ...Sink) Sink {
	nonNil := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	return &multiSink{sinks: nonNil}
}

func (m *multiSink) PublishRoom(room string, payload []byte) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.PublishRoom(room, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
