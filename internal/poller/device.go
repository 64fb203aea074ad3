// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	gomodbus "github.com/hootrhino/gomodbus"

	"github.com/modbusd/modbusd/internal/fcgroup"
	"github.com/modbusd/modbusd/internal/modbus"
	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

// ConfigSource is the read side of the Config Cache a poller needs. It is
// an interface rather than a concrete *repository.ConfigCache so tests can
// supply an in-memory fake instead of a real store-backed cache.
type ConfigSource interface {
	GetDevice(id int64) (*repository.Device, bool)
	GetDeviceTags(id int64) ([]*repository.Tag, bool)
	GetTag(deviceID, tagID int64) (*repository.Tag, bool)
	GetDeviceFCGroups(id int64) ([]fcgroup.Group, bool)
	UpdateDeviceStatus(id int64, status repository.DeviceStatus)

	// DeviceInterval derives the device's poll interval from its
	// subscribed loggers (spec §4.4); 0 means no logger subscribes yet
	// and ClampInterval should apply the default instead.
	DeviceInterval(id int64) time.Duration
}

// DialFunc opens the transport for one device and returns a ModbusApi
// handle plus the underlying closer to release it. TCP devices dial their
// own socket (DialTCP); RTU devices are handed an already-open bus handle
// by the RTUBusManager instead of dialing anything themselves.
type DialFunc func(d *repository.Device) (gomodbus.ModbusApi, io.Closer, error)

// DialTCP is the default DialFunc for TCP devices: one net.Conn per
// device, wrapped in gomodbus.NewModbusTCPHandler.
func DialTCP(d *repository.Device) (gomodbus.ModbusApi, io.Closer, error) {
	if d.Host == nil || d.Port == nil {
		return nil, nil, fmt.Errorf("poller: device %d has no host/port configured", d.ID)
	}
	timeout := time.Duration(d.TimeoutMs) * time.Millisecond
	addr := fmt.Sprintf("%s:%d", *d.Host, *d.Port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, nil, err
	}
	return gomodbus.NewModbusTCPHandler(conn, timeout), conn, nil
}

// readResult holds whichever half of a bulk read applies to the group's
// function code; exactly one of the two fields is populated.
type readResult struct {
	bools []bool
	words []uint16
}

func readGroup(api gomodbus.ModbusApi, g fcgroup.Group, unit uint16) (readResult, error) {
	switch g.FunctionCode {
	case modbus.FCCoils:
		b, err := api.ReadCoils(unit, uint16(g.Start), uint16(g.Count))
		return readResult{bools: b}, err
	case modbus.FCDiscreteInputs:
		b, err := api.ReadDiscreteInputs(unit, uint16(g.Start), uint16(g.Count))
		return readResult{bools: b}, err
	case modbus.FCHoldingRegisters:
		w, err := api.ReadHoldingRegisters(unit, uint16(g.Start), uint16(g.Count))
		return readResult{words: w}, err
	case modbus.FCInputRegisters:
		w, err := api.ReadInputRegisters(unit, uint16(g.Start), uint16(g.Count))
		return readResult{words: w}, err
	default:
		return readResult{}, fmt.Errorf("poller: unsupported function code %d", g.FunctionCode)
	}
}

// isConnectionError reports whether err belongs to spec §4.5's
// "ConnectionException|IOError" class that forces an immediate disconnect,
// as opposed to a one-off group read failure that is merely skipped.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// DevicePoller owns one Modbus connection (TCP) or a shared RTU bus handle
// and runs the read/write cycle of spec §4.5 against it.
type DevicePoller struct {
	deviceID    int64
	cfg         ConfigSource
	dial        DialFunc
	distributor *valuequeue.Distributor
	emit        EmitFunc

	mu          sync.Mutex
	api         gomodbus.ModbusApi
	closer      io.Closer
	state       connState
	bo          *backoff
	nextAttempt time.Time
	lastProbe   time.Time
	seq         uint64

	// onConnError is set by RTUBusManager for RTU devices, which share a
	// transport this poller does not own: losing the connection forces the
	// whole bus to reconnect instead of this poller closing anything
	// itself.
	onConnError func()
}

// NewDevicePoller builds a poller for a TCP device. RTU devices are driven
// by RTUBusManager instead, which injects an already-connected ModbusApi
// via SetTransport rather than calling dial itself.
func NewDevicePoller(deviceID int64, cfg ConfigSource, dial DialFunc, dist *valuequeue.Distributor, emit EmitFunc) *DevicePoller {
	return &DevicePoller{
		deviceID:    deviceID,
		cfg:         cfg,
		dial:        dial,
		distributor: dist,
		emit:        emit,
		bo:          newBackoff(),
	}
}

// SetTransport installs an already-open ModbusApi, used by the RTU Bus
// Manager to hand a shared serial handle to each device it multiplexes.
func (p *DevicePoller) SetTransport(api gomodbus.ModbusApi) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.api = api
	p.state = stateConnected
	p.bo.Reset()
	p.lastProbe = time.Now()
	p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusConnected)
}

// Run waits on the shared start barrier (if any), logging an independent
// start if it times out, then drives the anti-drift tick loop from
// startEpoch until ctx is cancelled.
func (p *DevicePoller) Run(ctx context.Context, barrier *Barrier, barrierTimeout time.Duration, startEpoch time.Time, interval time.Duration) {
	if barrier != nil {
		if !barrier.Wait(barrierTimeout) {
			modbuslog.Warnf("poller: device %d barrier timed out, starting independently", p.deviceID)
		}
	}
	RunTicks(ctx, startEpoch, interval, p.Cycle)
}

func (p *DevicePoller) ensureConnected() bool {
	if p.dial == nil {
		// RTU devices never dial for themselves; a missing transport here
		// just means the bus manager hasn't connected yet.
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.state == stateConnected
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateConnected {
		return true
	}
	if time.Now().Before(p.nextAttempt) {
		p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusDisconnected)
		return false
	}
	device, ok := p.cfg.GetDevice(p.deviceID)
	if !ok {
		return false
	}
	api, closer, err := p.dial(device)
	if err != nil {
		delay := p.bo.NextDelay()
		p.nextAttempt = time.Now().Add(delay)
		modbuslog.Warnf("poller: device %d connect failed: %v (retry in %s)", p.deviceID, err, delay)
		p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusDisconnected)
		return false
	}
	p.api = api
	p.closer = closer
	p.state = stateConnected
	p.bo.Reset()
	p.lastProbe = time.Now()
	p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusConnected)
	return true
}

func (p *DevicePoller) disconnect(reason string) {
	p.mu.Lock()
	if p.closer != nil {
		p.closer.Close()
	}
	p.api = nil
	p.closer = nil
	p.state = stateDisconnected
	p.mu.Unlock()
	p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusDisconnected)
	modbuslog.Warnf("poller: device %d disconnected: %s", p.deviceID, reason)
}

// handleConnectionLoss is the single entry point for a connection-class
// failure (cycle read error, write error, failed probe). TCP devices own
// their socket and close it themselves; RTU devices share a transport
// owned by RTUBusManager, so they just mark themselves disconnected and
// let the bus reconnect everyone on its next cycle.
func (p *DevicePoller) handleConnectionLoss(reason string) {
	if p.dial == nil {
		p.mu.Lock()
		p.api = nil
		p.state = stateDisconnected
		p.mu.Unlock()
		p.cfg.UpdateDeviceStatus(p.deviceID, repository.StatusDisconnected)
		modbuslog.Warnf("poller: device %d lost RTU bus connection: %s", p.deviceID, reason)
		if p.onConnError != nil {
			p.onConnError()
		}
		return
	}
	p.disconnect(reason)
}

// probe implements the supplemented connectivity self-test of
// SPEC_FULL.md §C.3: a 1-register read distinct from the regular cycle,
// run at most once per probeInterval, that evicts a dead connection before
// it shows up as a mid-cycle read failure.
func (p *DevicePoller) probe() {
	p.mu.Lock()
	api := p.api
	connected := p.state == stateConnected
	due := time.Since(p.lastProbe) >= probeInterval
	p.mu.Unlock()
	if !connected || !due || api == nil {
		return
	}

	device, ok := p.cfg.GetDevice(p.deviceID)
	if !ok {
		return
	}
	g := fcgroup.Group{FunctionCode: modbus.FunctionCode(device.DefaultFunctionCode), Start: 0, Count: 1}
	_, err := readGroup(api, g, uint16(device.UnitID))

	p.mu.Lock()
	p.lastProbe = time.Now()
	p.mu.Unlock()

	if err != nil {
		modbuslog.Debugf("poller: device %d probe failed: %v", p.deviceID, err)
		p.handleConnectionLoss("probe failed")
	}
}

// Cycle runs one full read cycle (spec §4.5 steps 1-5). Exported so tests
// can drive it directly without waiting on the anti-drift scheduler.
func (p *DevicePoller) Cycle() {
	start := time.Now()
	p.probe()

	if !p.ensureConnected() {
		p.emitDisconnected()
		return
	}

	device, ok := p.cfg.GetDevice(p.deviceID)
	if !ok {
		return
	}
	groups, ok := p.cfg.GetDeviceFCGroups(p.deviceID)
	if !ok {
		return
	}
	tags, ok := p.cfg.GetDeviceTags(p.deviceID)
	if !ok {
		return
	}
	tagByID := make(map[int64]*repository.Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}

	byteOrder, _ := modbus.ParseByteOrder(device.ByteOrder)
	wordOrder, _ := modbus.ParseWordOrder(device.WordOrder)

	p.mu.Lock()
	api := p.api
	p.mu.Unlock()
	if api == nil {
		p.emitDisconnected()
		return
	}

	ts := time.Now()
	var updateTags []UpdateTag

	for _, g := range groups {
		res, err := readGroup(api, g, uint16(device.UnitID))
		if err != nil {
			modbuslog.Debugf("poller: device %d group fc=%d read failed: %v", p.deviceID, g.FunctionCode, err)
			if isConnectionError(err) {
				p.bo.ShortCircuit()
				p.handleConnectionLoss(err.Error())
				p.emitDisconnected()
				return
			}
			continue
		}

		for _, gt := range g.Tags {
			tag, ok := tagByID[gt.ID]
			if !ok {
				continue
			}
			offset := modbus.Normalize(tag.Address) - g.Start

			frame := valuequeue.RawFrame{
				DeviceID:  p.deviceID,
				TagID:     tag.ID,
				TagName:   tag.Name,
				Datatype:  tag.Datatype,
				ByteOrder: device.ByteOrder,
				WordOrder: device.WordOrder,
				Scale:     tag.Scale,
				Offset:    tag.Offset,
				Unit:      tag.Unit,
				Timestamp: ts,
			}

			var value float64
			if g.FunctionCode.IsBitType() {
				if offset < 0 || offset >= len(res.bools) {
					continue
				}
				b := res.bools[offset]
				frame.BoolValue = &b
				if b {
					value = 1
				}
			} else {
				span := gt.Datatype.Span()
				if offset < 0 || offset+span > len(res.words) {
					continue
				}
				regs := res.words[offset : offset+span]
				frame.Raw = regs
				v, err := modbus.Decode(gt.Datatype, regs, byteOrder, wordOrder, tag.Scale, tag.Offset)
				if err != nil {
					modbuslog.Debugf("poller: device %d tag %d decode failed: %v", p.deviceID, tag.ID, err)
					continue
				}
				value = v
			}

			p.distributor.Push(frame)
			updateTags = append(updateTags, UpdateTag{ID: tag.ID, Name: tag.Name, Value: value, Datatype: tag.Datatype, Ts: ts})
		}
	}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	if p.emit != nil {
		p.emit(Update{
			DeviceID:  p.deviceID,
			Unit:      device.UnitID,
			OK:        true,
			Tags:      updateTags,
			Seq:       seq,
			LatencyMs: time.Since(start).Milliseconds(),
		})
	}
}

func (p *DevicePoller) emitDisconnected() {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	if p.emit != nil {
		p.emit(Update{DeviceID: p.deviceID, OK: false, Seq: seq})
	}
}

// WriteTag implements the operator write path of spec §4.5: only function
// codes 1 (coils) and 3 (holding registers) accept writes, and encoding is
// the inverse of the decode path in internal/modbus. Every call is audited
// per SPEC_FULL.md §C.4 regardless of outcome.
func (p *DevicePoller) WriteTag(tagID int64, value float64) error {
	device, ok := p.cfg.GetDevice(p.deviceID)
	if !ok {
		err := fmt.Errorf("poller: device %d not found", p.deviceID)
		p.auditWrite(tagID, nil, value, err)
		return err
	}
	tag, ok := p.cfg.GetTag(p.deviceID, tagID)
	if !ok {
		err := fmt.Errorf("poller: tag %d not found on device %d", tagID, p.deviceID)
		p.auditWrite(tagID, nil, value, err)
		return err
	}

	fc := modbus.FunctionCode(device.DefaultFunctionCode)
	if tag.FunctionCode != nil {
		fc = modbus.FunctionCode(*tag.FunctionCode)
	}
	if !fc.Writable() {
		err := fmt.Errorf("poller: function code %d is not writable", fc)
		p.auditWrite(tagID, nil, value, err)
		return err
	}

	dt, err := modbus.ParseDatatype(tag.Datatype)
	if err != nil {
		p.auditWrite(tagID, nil, value, err)
		return err
	}

	p.mu.Lock()
	api := p.api
	connected := p.state == stateConnected
	p.mu.Unlock()
	if !connected || api == nil {
		err := fmt.Errorf("poller: device %d not connected", p.deviceID)
		p.auditWrite(tagID, nil, value, err)
		return err
	}

	unit := uint16(device.UnitID)
	offset := uint16(modbus.Normalize(tag.Address))

	var raw []uint16
	var werr error
	if fc == modbus.FCCoils {
		on := value != 0
		if dt.Span() <= 1 {
			werr = api.WriteSingleCoil(unit, offset, on)
		} else {
			werr = api.WriteMultipleCoils(unit, offset, []bool{on})
		}
	} else {
		byteOrder, _ := modbus.ParseByteOrder(device.ByteOrder)
		wordOrder, _ := modbus.ParseWordOrder(device.WordOrder)
		raw, err = modbus.Encode(dt, value, byteOrder, wordOrder, tag.Scale, tag.Offset)
		if err != nil {
			p.auditWrite(tagID, nil, value, err)
			return err
		}
		if len(raw) == 1 {
			werr = api.WriteSingleRegister(unit, offset, raw[0])
		} else {
			werr = api.WriteMultipleRegisters(unit, offset, raw)
		}
	}

	p.auditWrite(tagID, raw, value, werr)
	if isConnectionError(werr) {
		p.bo.ShortCircuit()
		p.handleConnectionLoss(werr.Error())
	}
	return werr
}

func (p *DevicePoller) auditWrite(tagID int64, raw []uint16, value float64, result error) {
	status := "ok"
	if result != nil {
		status = result.Error()
	}
	modbuslog.Infof("write_tag device=%d tag=%d raw=%v value=%v result=%s", p.deviceID, tagID, raw, value, status)
}
