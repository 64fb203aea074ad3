// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package poller

import (
	"errors"
	"io"
	"sync"

	gomodbus "github.com/hootrhino/gomodbus"
)

// fakeModbusAPI is a hand-written stub satisfying gomodbus.ModbusApi
// (SPEC_FULL.md §A.4), driven by canned responses keyed by function code
// and start address instead of a real socket or serial port.
type fakeModbusAPI struct {
	mu sync.Mutex

	coils     map[int]map[int]bool
	discretes map[int]map[int]bool
	holding   map[int]map[int]uint16
	input     map[int]map[int]uint16

	readErr  error
	writeErr error

	writes []fakeWrite
}

type fakeWrite struct {
	kind    string // "coil", "coils", "register", "registers"
	unit    int
	address int
	bools   []bool
	words   []uint16
}

func newFakeModbusAPI() *fakeModbusAPI {
	return &fakeModbusAPI{
		coils:     make(map[int]map[int]bool),
		discretes: make(map[int]map[int]bool),
		holding:   make(map[int]map[int]uint16),
		input:     make(map[int]map[int]uint16),
	}
}

func (f *fakeModbusAPI) setHolding(unit, addr int, words ...uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holding[unit] == nil {
		f.holding[unit] = make(map[int]uint16)
	}
	for i, w := range words {
		f.holding[unit][addr+i] = w
	}
}

func (f *fakeModbusAPI) setCoil(unit, addr int, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coils[unit] == nil {
		f.coils[unit] = make(map[int]bool)
	}
	f.coils[unit][addr] = v
}

func (f *fakeModbusAPI) GetLastModbusError() *gomodbus.ModbusError { return nil }
func (f *fakeModbusAPI) GetMode() string                           { return "FAKE" }
func (f *fakeModbusAPI) SetLogger(io.Writer)                       {}

func (f *fakeModbusAPI) ReadCoils(unit uint16, start, quantity uint16) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return readBoolRange(f.coils[int(unit)], int(start), int(quantity)), nil
}

func (f *fakeModbusAPI) ReadDiscreteInputs(unit uint16, start, quantity uint16) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return readBoolRange(f.discretes[int(unit)], int(start), int(quantity)), nil
}

func (f *fakeModbusAPI) ReadHoldingRegisters(unit uint16, start, quantity uint16) ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return readWordRange(f.holding[int(unit)], int(start), int(quantity)), nil
}

func (f *fakeModbusAPI) ReadInputRegisters(unit uint16, start, quantity uint16) ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return readWordRange(f.input[int(unit)], int(start), int(quantity)), nil
}

func (f *fakeModbusAPI) WriteSingleCoil(unit uint16, address uint16, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{kind: "coil", unit: int(unit), address: int(address), bools: []bool{value}})
	return nil
}

func (f *fakeModbusAPI) WriteSingleRegister(unit uint16, address, value uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{kind: "register", unit: int(unit), address: int(address), words: []uint16{value}})
	return nil
}

func (f *fakeModbusAPI) WriteMultipleCoils(unit uint16, start uint16, values []bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{kind: "coils", unit: int(unit), address: int(start), bools: values})
	return nil
}

func (f *fakeModbusAPI) WriteMultipleRegisters(unit uint16, start uint16, values []uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, fakeWrite{kind: "registers", unit: int(unit), address: int(start), words: values})
	return nil
}

func (f *fakeModbusAPI) ReadCustomData(funcCode uint16, unit uint16, start, quantity uint16) ([]byte, error) {
	return nil, errors.New("fakeModbusAPI: ReadCustomData not supported")
}

func (f *fakeModbusAPI) WriteCustomData(funcCode uint16, unit uint16, start uint16, data []byte) error {
	return errors.New("fakeModbusAPI: WriteCustomData not supported")
}

func (f *fakeModbusAPI) ReadRawData(req []byte) ([]byte, error) {
	return nil, errors.New("fakeModbusAPI: ReadRawData not supported")
}

func readBoolRange(m map[int]bool, start, quantity int) []bool {
	out := make([]bool, quantity)
	for i := 0; i < quantity; i++ {
		out[i] = m[start+i]
	}
	return out
}

func readWordRange(m map[int]uint16, start, quantity int) []uint16 {
	out := make([]uint16, quantity)
	for i := 0; i < quantity; i++ {
		out[i] = m[start+i]
	}
	return out
}

// fakeCloser counts Close calls so connection-lifecycle tests can assert a
// TCP poller actually released its socket on disconnect.
type fakeCloser struct {
	mu     sync.Mutex
	closed int
}

func (c *fakeCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
