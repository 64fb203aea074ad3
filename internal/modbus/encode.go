package modbus

import (
	"fmt"
	"math"
)

// Encode is the inverse of Decode: it turns an engineering value back into
// raw register words ready to write, applying scale/offset in reverse
// (raw = (value-offset)/scale) before encoding per datatype and the
// device's byte/word order. Only datatypes valid for a writable function
// code (coils, holding registers) are expected here; the caller enforces
// that distinction (see internal/poller).
func Encode(datatype Datatype, value float64, byteOrder ByteOrder, wordOrder WordOrder, scale, offset float64) ([]uint16, error) {
	raw := value
	if !(scale == 1.0 && offset == 0.0) {
		if scale == 0 {
			return nil, fmt.Errorf("modbus: encode %s: scale must not be zero", datatype)
		}
		raw = (value - offset) / scale
	}

	var words []uint16
	switch datatype {
	case Int16:
		words = []uint16{uint16(int16(raw))}
	case Uint16, Bit:
		words = []uint16{uint16(raw)}
	case Float32:
		bits := math.Float32bits(float32(raw))
		words = orderWords([]uint16{uint16(bits >> 16), uint16(bits)}, wordOrder)
	case Float32Inverse:
		bits := math.Float32bits(float32(raw))
		words = orderWords([]uint16{uint16(bits >> 16), uint16(bits)}, invert(wordOrder))
	case Uint32:
		v := uint32(raw)
		words = orderWords([]uint16{uint16(v >> 16), uint16(v)}, wordOrder)
	case Int32:
		v := uint32(int32(raw))
		words = orderWords([]uint16{uint16(v >> 16), uint16(v)}, wordOrder)
	case Int64:
		v := uint64(int64(raw))
		words = orderWords(split64(v), wordOrder)
	case Int64Inverse:
		v := uint64(int64(raw))
		words = orderWords(split64(v), invert(wordOrder))
	case Float64:
		v := math.Float64bits(raw)
		words = orderWords(split64(v), wordOrder)
	case Float64Inverse:
		v := math.Float64bits(raw)
		words = orderWords(split64(v), invert(wordOrder))
	default:
		return nil, &DecodeError{Datatype: datatype, Reason: "unsupported datatype for encode"}
	}

	for i, w := range words {
		words[i] = swap16(w, byteOrder)
	}
	return words, nil
}

func split64(v uint64) []uint16 {
	return []uint16{
		uint16(v >> 48),
		uint16(v >> 32),
		uint16(v >> 16),
		uint16(v),
	}
}
