// Package modbus implements the register-level semantics of the acquisition
// engine: datatype decoding/encoding, byte and word order handling, and
// Modbus address normalization. It has no transport code — it is pure
// functions over register slices.
package modbus

import (
	"fmt"
	"strings"
)

// Datatype is a tagged-variant register interpretation. The string aliases
// accepted by configuration all collapse onto one of these values at parse
// time; nothing downstream ever switches on a string again.
type Datatype int

const (
	DatatypeUnknown Datatype = iota
	Int16
	Uint16
	Bit
	Float32
	Float32Inverse
	Uint32
	Int32
	Int64
	Int64Inverse
	Float64
	Float64Inverse
)

// ParseDatatype resolves a configuration string (case-insensitive, with the
// aliases listed in the register-width table) to a Datatype.
func ParseDatatype(s string) (Datatype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signed", "short", "int16":
		return Int16, nil
	case "unsigned", "word", "uint16", "ushort", "hex", "raw":
		return Uint16, nil
	case "bit", "bool", "boolean", "binary":
		return Bit, nil
	case "float", "float32", "real":
		return Float32, nil
	case "float_inverse":
		return Float32Inverse, nil
	case "dword", "uint32", "udint":
		return Uint32, nil
	case "dint", "int32", "int":
		return Int32, nil
	case "long", "int64":
		return Int64, nil
	case "long_inverse":
		return Int64Inverse, nil
	case "double", "float64":
		return Float64, nil
	case "double_inverse":
		return Float64Inverse, nil
	default:
		return DatatypeUnknown, fmt.Errorf("modbus: unknown datatype %q", s)
	}
}

// Span returns the number of 16-bit registers the datatype occupies.
func (d Datatype) Span() int {
	switch d {
	case Int16, Uint16, Bit:
		return 1
	case Float32, Float32Inverse, Uint32, Int32:
		return 2
	case Int64, Int64Inverse, Float64, Float64Inverse:
		return 4
	default:
		return 1
	}
}

func (d Datatype) String() string {
	switch d {
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Bit:
		return "bit"
	case Float32:
		return "float32"
	case Float32Inverse:
		return "float32_inverse"
	case Uint32:
		return "uint32"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Int64Inverse:
		return "int64_inverse"
	case Float64:
		return "float64"
	case Float64Inverse:
		return "float64_inverse"
	default:
		return "unknown"
	}
}

// ByteOrder controls whether the two bytes of each 16-bit register are
// swapped before decoding.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "big", "bigendian":
		return BigEndian, nil
	case "little", "littleendian":
		return LittleEndian, nil
	default:
		return BigEndian, fmt.Errorf("modbus: unknown byte order %q", s)
	}
}

// WordOrder controls which multi-register word comes first for types
// spanning more than one register.
type WordOrder int

const (
	WordOrderAB WordOrder = iota
	WordOrderBA
)

func ParseWordOrder(s string) (WordOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AB":
		return WordOrderAB, nil
	case "BA":
		return WordOrderBA, nil
	default:
		return WordOrderAB, fmt.Errorf("modbus: unknown word order %q", s)
	}
}

// FunctionCode is the Modbus operation selector.
type FunctionCode int

const (
	FCCoils            FunctionCode = 1
	FCDiscreteInputs   FunctionCode = 2
	FCHoldingRegisters FunctionCode = 3
	FCInputRegisters   FunctionCode = 4
)

// Readable reports whether the function code can be used as a read source.
// All four can; kept for symmetry with Writable.
func (fc FunctionCode) Readable() bool {
	switch fc {
	case FCCoils, FCDiscreteInputs, FCHoldingRegisters, FCInputRegisters:
		return true
	default:
		return false
	}
}

// Writable reports whether operator writes are permitted against this
// function code. Only coils (1) and holding registers (3) accept writes;
// discrete inputs (2) and input registers (4) are read-only by the Modbus
// standard itself.
func (fc FunctionCode) Writable() bool {
	return fc == FCCoils || fc == FCHoldingRegisters
}

func (fc FunctionCode) IsBitType() bool {
	return fc == FCCoils || fc == FCDiscreteInputs
}
