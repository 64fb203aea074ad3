// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import (
	"context"
	"io"
	"sync"
	"time"

	gomodbus "github.com/hootrhino/gomodbus"
	goserial "github.com/hootrhino/goserial"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
)

// interDeviceDelay is the minimum gap the bus reader waits between stepping
// from one multiplexed device to the next, to avoid framing collisions on
// a shared serial line (spec §4.5/§4.6).
const interDeviceDelay = 10 * time.Millisecond

// BusTuple identifies a physical RTU line; every device sharing one tuple
// is multiplexed by a single reader goroutine and unit id stepping (spec
// §4.6).
type BusTuple struct {
	SerialPort string
	BaudRate   int
	ByteSize   int
	Parity     string
	StopBits   int
}

func tupleFor(d *repository.Device) BusTuple {
	port := ""
	if d.SerialPort != nil {
		port = *d.SerialPort
	}
	return BusTuple{
		SerialPort: port,
		BaudRate:   d.BaudRate,
		ByteSize:   d.ByteSize,
		Parity:     d.Parity,
		StopBits:   d.StopBits,
	}
}

// SerialOpenFunc opens a physical serial port for a bus tuple. The default,
// OpenSerial, wraps goserial.Open; tests inject an in-memory fake instead.
type SerialOpenFunc func(tuple BusTuple, timeout time.Duration) (io.ReadWriteCloser, error)

// OpenSerial is the default SerialOpenFunc, grounded on
// github.com/hootrhino/goserial's Config/Open API.
func OpenSerial(tuple BusTuple, timeout time.Duration) (io.ReadWriteCloser, error) {
	return goserial.Open(&goserial.Config{
		Address:  tuple.SerialPort,
		BaudRate: tuple.BaudRate,
		DataBits: tuple.ByteSize,
		StopBits: tuple.StopBits,
		Parity:   tuple.Parity,
		Timeout:  timeout,
	})
}

// BusStats is the supplemented RTU pool visibility of SPEC_FULL.md §C.2.
type BusStats struct {
	Tuple             BusTuple
	DeviceCount       int
	LastCycleDuration time.Duration
	ReconnectCount    int
}

// rtuBus is one physical serial line and the ordered set of device pollers
// multiplexed on it.
type rtuBus struct {
	tuple   BusTuple
	open    SerialOpenFunc
	timeout time.Duration

	cache       ConfigSource
	minInterval time.Duration
	maxInterval time.Duration

	mu      sync.Mutex
	port    io.ReadWriteCloser
	api     gomodbus.ModbusApi
	order   []int64
	pollers map[int64]*DevicePoller

	lastCycle  time.Duration
	reconnects int

	cancel context.CancelFunc
}

// RTUBusManager maintains the bus-tuple -> reader mapping of spec §4.6:
// adding a device to an unknown tuple spawns a reader, adding to a known
// tuple appends to its device list, and removing the last device on a bus
// tears the reader down.
type RTUBusManager struct {
	open SerialOpenFunc

	cache       ConfigSource
	minInterval time.Duration
	maxInterval time.Duration

	mu   sync.Mutex
	buss map[BusTuple]*rtuBus
}

// NewRTUBusManager creates an empty manager. open is normally OpenSerial;
// tests pass a fake. cache, minInterval and maxInterval are the same
// logger-derived interval inputs TCP pollers use (spec §4.4): every bus
// reader ticks at the minimum clamped interval across the devices it
// currently multiplexes.
func NewRTUBusManager(open SerialOpenFunc, cache ConfigSource, minInterval, maxInterval time.Duration) *RTUBusManager {
	if open == nil {
		open = OpenSerial
	}
	return &RTUBusManager{
		open:        open,
		cache:       cache,
		minInterval: minInterval,
		maxInterval: maxInterval,
		buss:        make(map[BusTuple]*rtuBus),
	}
}

// AddDevice registers deviceID's poller on its bus tuple, spawning a new
// bus reader if the tuple is not already known.
func (m *RTUBusManager) AddDevice(ctx context.Context, device *repository.Device, poller *DevicePoller) {
	tuple := tupleFor(device)
	timeout := time.Duration(device.TimeoutMs) * time.Millisecond

	m.mu.Lock()
	bus, ok := m.buss[tuple]
	if !ok {
		busCtx, cancel := context.WithCancel(ctx)
		bus = &rtuBus{
			tuple:       tuple,
			open:        m.open,
			timeout:     timeout,
			cache:       m.cache,
			minInterval: m.minInterval,
			maxInterval: m.maxInterval,
			pollers:     make(map[int64]*DevicePoller),
			cancel:      cancel,
		}
		m.buss[tuple] = bus
		go bus.run(busCtx)
	}
	m.mu.Unlock()

	bus.addDevice(device.ID, poller)
}

// RemoveDevice drops deviceID from its bus; if it was the last device on
// that tuple the bus reader is torn down.
func (m *RTUBusManager) RemoveDevice(device *repository.Device) {
	tuple := tupleFor(device)

	m.mu.Lock()
	bus, ok := m.buss[tuple]
	if !ok {
		m.mu.Unlock()
		return
	}
	empty := bus.removeDevice(device.ID)
	if empty {
		delete(m.buss, tuple)
	}
	m.mu.Unlock()

	if empty {
		bus.cancel()
	}
}

// Stats returns a point-in-time snapshot per managed bus (SPEC_FULL.md
// §C.2).
func (m *RTUBusManager) Stats() []BusStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BusStats, 0, len(m.buss))
	for tuple, bus := range m.buss {
		bus.mu.Lock()
		out = append(out, BusStats{
			Tuple:             tuple,
			DeviceCount:       len(bus.order),
			LastCycleDuration: bus.lastCycle,
			ReconnectCount:    bus.reconnects,
		})
		bus.mu.Unlock()
	}
	return out
}

func (b *rtuBus) addDevice(id int64, poller *DevicePoller) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.pollers[id]; exists {
		return
	}
	poller.onConnError = b.forceReconnect
	b.order = append(b.order, id)
	b.pollers[id] = poller
	if b.api != nil {
		poller.SetTransport(b.api)
	}
}

// forceReconnect drops the shared transport so the next cycle reopens the
// serial port for every device on this bus. Called when any one device
// reports a connection-class failure, since the whole bus shares one
// physical line.
func (b *rtuBus) forceReconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port != nil {
		b.port.Close()
	}
	b.port = nil
	b.api = nil
}

// removeDevice drops id and reports whether the bus is now empty.
func (b *rtuBus) removeDevice(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pollers, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return len(b.order) == 0
}

func (b *rtuBus) ensureConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.api != nil {
		return true
	}
	port, err := b.open(b.tuple, b.timeout)
	if err != nil {
		modbuslog.Warnf("rtu bus %s: open failed: %v", b.tuple.SerialPort, err)
		return false
	}
	b.port = port
	b.api = gomodbus.NewModbusRTUHandler(port, b.timeout)
	b.reconnects++
	for _, p := range b.pollers {
		p.SetTransport(b.api)
	}
	return true
}

// busInterval derives the bus-wide poll interval as the minimum across
// every currently multiplexed device's own logger-derived interval (spec
// §4.4): one ticker drives the whole physical line, so it must run as
// fast as its most demanding device.
func (b *rtuBus) busInterval() time.Duration {
	b.mu.Lock()
	order := make([]int64, len(b.order))
	copy(order, b.order)
	b.mu.Unlock()

	var min time.Duration
	for _, id := range order {
		d := ClampInterval(b.cache.DeviceInterval(id), b.minInterval, b.maxInterval)
		if min == 0 || d < min {
			min = d
		}
	}
	return ClampInterval(min, b.minInterval, b.maxInterval)
}

// run is the single reader goroutine for one serial line: on every cycle
// it steps through devices in insertion order, running each one's spec
// §4.5 cycle, separated by interDeviceDelay. It is the only writer to the
// underlying serial port. The ticker period is re-derived after every
// cycle and reset when a device add/remove changes the bus's minimum
// interval.
func (b *rtuBus) run(ctx context.Context) {
	interval := b.busInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			if b.port != nil {
				b.port.Close()
			}
			b.mu.Unlock()
			return
		case <-ticker.C:
			b.cycleOnce()
			if next := b.busInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (b *rtuBus) cycleOnce() {
	start := time.Now()
	if !b.ensureConnected() {
		return
	}

	b.mu.Lock()
	order := make([]int64, len(b.order))
	copy(order, b.order)
	pollers := make(map[int64]*DevicePoller, len(b.pollers))
	for k, v := range b.pollers {
		pollers[k] = v
	}
	b.mu.Unlock()

	for i, id := range order {
		if p, ok := pollers[id]; ok {
			p.Cycle()
		}
		if i < len(order)-1 {
			time.Sleep(interDeviceDelay)
		}
	}

	b.mu.Lock()
	b.lastCycle = time.Since(start)
	b.mu.Unlock()
}
