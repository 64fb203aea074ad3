// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broadcaster

import (
	"strings"

	"github.com/modbusd/modbusd/internal/modbuslog"
	natspkg "github.com/modbusd/modbusd/pkg/nats"
)

// NatsSink publishes to a NATS subject derived from the room name, using
// the dot-delimited subject convention (room "dashboard_device_3" becomes
// subject "dashboard.device.3"), matching the subjects SPEC_FULL.md §B
// names for this leg of delivery.
type NatsSink struct {
	client *natspkg.Client
}

func NewNatsSink(client *natspkg.Client) *NatsSink {
	return &NatsSink{client: client}
}

func (s *NatsSink) PublishRoom(room string, payload []byte) error {
	if s.client == nil {
		return nil
	}
	subject := strings.ReplaceAll(room, "_", ".")
	if err := s.client.Publish(subject, payload); err != nil {
		modbuslog.Warnf("broadcaster: NATS publish to %q failed: %v", subject, err)
		return err
	}
	return nil
}
