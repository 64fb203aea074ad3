package modbus

import (
	"errors"
	"fmt"
	"math"
)

// DecodeError reports a malformed register payload for a given datatype.
// The affected tag is dropped by the caller; the poll cycle continues.
type DecodeError struct {
	Datatype Datatype
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("modbus: decode %s: %s", e.Datatype, e.Reason)
}

var ErrMissingRegister = errors.New("modbus: required register missing")

// swap16 exchanges the two bytes of a 16-bit register word. BigEndian
// passes registers through unchanged; LittleEndian swaps them before any
// multi-register assembly happens.
func swap16(word uint16, order ByteOrder) uint16 {
	if order == BigEndian {
		return word
	}
	return (word << 8) | (word >> 8)
}

// orderWords arranges a slice of register words into big-endian value order
// (most significant first), honoring the device's configured word order.
func orderWords(words []uint16, order WordOrder) []uint16 {
	if order == WordOrderAB {
		return words
	}
	reversed := make([]uint16, len(words))
	for i, w := range words {
		reversed[len(words)-1-i] = w
	}
	return reversed
}

// Decode interprets raw register words (already read off the wire, one
// uint16 per register, in the order returned by the transport) as the given
// datatype, applying the device's byte/word order, and then applies
// scale/offset: engineering = raw*scale + offset.
func Decode(datatype Datatype, regs []uint16, byteOrder ByteOrder, wordOrder WordOrder, scale, offset float64) (float64, error) {
	want := datatype.Span()
	if len(regs) < want {
		return math.NaN(), fmt.Errorf("%w: need %d registers for %s, got %d", ErrMissingRegister, want, datatype, len(regs))
	}
	regs = regs[:want]

	swapped := make([]uint16, len(regs))
	for i, r := range regs {
		swapped[i] = swap16(r, byteOrder)
	}

	var raw float64
	switch datatype {
	case Int16:
		raw = float64(int16(swapped[0]))
	case Uint16:
		raw = float64(swapped[0])
	case Bit:
		if swapped[0] == 0 {
			raw = 0
		} else {
			raw = 1
		}
	case Float32:
		ordered := orderWords(swapped, wordOrder)
		raw = float64(math.Float32frombits(uint32(ordered[0])<<16 | uint32(ordered[1])))
	case Float32Inverse:
		ordered := orderWords(swapped, invert(wordOrder))
		raw = float64(math.Float32frombits(uint32(ordered[0])<<16 | uint32(ordered[1])))
	case Uint32:
		ordered := orderWords(swapped, wordOrder)
		raw = float64(uint32(ordered[0])<<16 | uint32(ordered[1]))
	case Int32:
		ordered := orderWords(swapped, wordOrder)
		raw = float64(int32(uint32(ordered[0])<<16 | uint32(ordered[1])))
	case Int64:
		ordered := orderWords(swapped, wordOrder)
		raw = float64(int64(assemble64(ordered)))
	case Int64Inverse:
		ordered := orderWords(swapped, invert(wordOrder))
		raw = float64(int64(assemble64(ordered)))
	case Float64:
		ordered := orderWords(swapped, wordOrder)
		raw = math.Float64frombits(assemble64(ordered))
	case Float64Inverse:
		ordered := orderWords(swapped, invert(wordOrder))
		raw = math.Float64frombits(assemble64(ordered))
	default:
		return math.NaN(), &DecodeError{Datatype: datatype, Reason: "unsupported datatype"}
	}

	if scale == 1.0 && offset == 0.0 {
		return raw, nil
	}
	return raw*scale + offset, nil
}

func assemble64(words []uint16) uint64 {
	var v uint64
	for _, w := range words {
		v = (v << 16) | uint64(w)
	}
	return v
}

func invert(order WordOrder) WordOrder {
	if order == WordOrderAB {
		return WordOrderBA
	}
	return WordOrderAB
}
