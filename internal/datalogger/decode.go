// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datalogger

import (
	"github.com/modbusd/modbusd/internal/modbus"
	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/valuequeue"
)

// decodeFrame independently decodes the same raw-frame shape internal/parser
// decodes, since logger_q and parser_q each carry their own copy of a frame
// from the distributor's fan-out (spec §4.3) and are meant to be read by
// independent consumers.
func decodeFrame(f valuequeue.RawFrame) (float64, bool) {
	if f.BoolValue != nil {
		raw := 0.0
		if *f.BoolValue {
			raw = 1
		}
		return raw*f.Scale + f.Offset, true
	}

	dt, err := modbus.ParseDatatype(f.Datatype)
	if err != nil {
		modbuslog.Debugf("datalogger: tag %d unknown datatype %q: %v", f.TagID, f.Datatype, err)
		return 0, false
	}
	byteOrder, _ := modbus.ParseByteOrder(f.ByteOrder)
	wordOrder, _ := modbus.ParseWordOrder(f.WordOrder)

	v, err := modbus.Decode(dt, f.Raw, byteOrder, wordOrder, f.Scale, f.Offset)
	if err != nil {
		modbuslog.Debugf("datalogger: tag %d decode failed: %v", f.TagID, err)
		return 0, false
	}
	return v, true
}
