package fcgroup

import (
	"testing"

	"github.com/modbusd/modbusd/internal/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSingleGroupCoversSpan(t *testing.T) {
	tags := []Tag{
		{ID: 1, Address: 40001, Datatype: modbus.Uint16},
		{ID: 2, Address: 40002, Datatype: modbus.Uint16},
		{ID: 3, Address: 40010, Datatype: modbus.Uint32},
	}

	groups := Compute(tags, modbus.FCHoldingRegisters)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, modbus.FCHoldingRegisters, g.FunctionCode)
	assert.Equal(t, 0, g.Start)
	assert.Equal(t, 11, g.Count)
	assert.Len(t, g.Tags, 3)
}

func TestComputePartitionsByFunctionCode(t *testing.T) {
	overrideFC := modbus.FCInputRegisters
	tags := []Tag{
		{ID: 1, Address: 40001, Datatype: modbus.Uint16},
		{ID: 2, Address: 30001, Datatype: modbus.Uint16, FunctionCode: &overrideFC},
	}

	groups := Compute(tags, modbus.FCHoldingRegisters)
	require.Len(t, groups, 2)
}

func TestComputeBitTypeSpanIsOne(t *testing.T) {
	tags := []Tag{
		{ID: 1, Address: 1, Datatype: modbus.Bit},
		{ID: 2, Address: 5, Datatype: modbus.Bit},
	}
	groups := Compute(tags, modbus.FCCoils)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Start)
	assert.Equal(t, 5, groups[0].Count)
}
