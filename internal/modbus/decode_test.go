package modbus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFloat32BigEndianAB(t *testing.T) {
	// 3.14 as IEEE754 single: 0x4048F5C3
	regs := []uint16{0x4048, 0xF5C3}
	v, err := Decode(Float32, regs, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 3.14, v, 1e-5)
}

func TestDecodeFloat32Inverse(t *testing.T) {
	regs := []uint16{0x4048, 0xF5C3}
	straight, err := Decode(Float32, regs, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	inverse, err := Decode(Float32Inverse, regs, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.NotEqual(t, straight, inverse)
}

func TestDecodeInt16Signed(t *testing.T) {
	v, err := Decode(Int16, []uint16{0xFFFF}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestDecodeUint16(t *testing.T) {
	v, err := Decode(Uint16, []uint16{0xFFFF}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 65535.0, v)
}

func TestDecodeBit(t *testing.T) {
	v, err := Decode(Bit, []uint16{0}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = Decode(Bit, []uint16{7}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestDecodeScaleOffset(t *testing.T) {
	v, err := Decode(Uint16, []uint16{100}, BigEndian, WordOrderAB, 0.1, 5.0)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, v, 1e-9)
}

func TestDecodeLittleEndianSwap(t *testing.T) {
	big, err := Decode(Uint16, []uint16{0x1234}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	little, err := Decode(Uint16, []uint16{0x1234}, LittleEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 0x1234.0, big)
	assert.Equal(t, 0x3412.0, little)
}

func TestDecodeMissingRegisterIsError(t *testing.T) {
	_, err := Decode(Float32, []uint16{0x4048}, BigEndian, WordOrderAB, 1.0, 0.0)
	require.ErrorIs(t, err, ErrMissingRegister)
}

func TestDecodeDouble(t *testing.T) {
	bits := math.Float64bits(123.456)
	regs := []uint16{
		uint16(bits >> 48), uint16(bits >> 32), uint16(bits >> 16), uint16(bits),
	}
	v, err := Decode(Float64, regs, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 123.456, v, 1e-9)
}

func TestEncodeDecodeRoundTripInt16(t *testing.T) {
	words, err := Encode(Int16, -42, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	v, err := Decode(Int16, words, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, -42.0, v)
}

func TestEncodeDecodeRoundTripFloat32(t *testing.T) {
	words, err := Encode(Float32, 98.6, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	v, err := Decode(Float32, words, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 98.6, v, 1e-4)
}

func TestEncodeDecodeRoundTripFloat64(t *testing.T) {
	words, err := Encode(Float64, 98765.4321, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	v, err := Decode(Float64, words, BigEndian, WordOrderAB, 1.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 98765.4321, v, 1e-9)
}

func TestEncodeDecodeRoundTripWithScaleOffset(t *testing.T) {
	words, err := Encode(Uint16, 15.0, BigEndian, WordOrderAB, 0.1, 5.0)
	require.NoError(t, err)
	v, err := Decode(Uint16, words, BigEndian, WordOrderAB, 0.1, 5.0)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, v, 1e-9)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, 0, Normalize(40001))
	assert.Equal(t, 0, Normalize(30001))
	assert.Equal(t, 0, Normalize(10001))
	assert.Equal(t, 9, Normalize(40010))
	assert.Equal(t, 5, Normalize(5)) // already 0-based, idempotent
}

func TestParseDatatypeAliases(t *testing.T) {
	for _, alias := range []string{"float", "float32", "real"} {
		dt, err := ParseDatatype(alias)
		require.NoError(t, err)
		assert.Equal(t, Float32, dt)
	}
	_, err := ParseDatatype("bogus")
	assert.Error(t, err)
}
