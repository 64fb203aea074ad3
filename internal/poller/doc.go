// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package poller runs the per-device read/write cycle against real Modbus
// wire transport: one TCP poller per TCP device, one bus reader per unique
// RTU serial tuple multiplexing every device on that bus. All pollers share
// a barrier-start anti-drift scheduler (Barrier, StartEpoch, RunTicks) rather than
// the gocron-based schedule internal/taskmanager uses for its own jobs,
// since a rendezvous-then-self-correcting tick has no gocron equivalent.
//
// Wire I/O goes through github.com/hootrhino/gomodbus's ModbusApi
// interface; RTU ports are opened through github.com/hootrhino/goserial.
// Nothing in this package hand-rolls Modbus framing.
package poller
