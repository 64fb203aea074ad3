// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetDevice(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	got, err := r.GetDevice(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, ProtocolTCP, got.Protocol)
	assert.Equal(t, 502, *got.Port)
}

func TestGetDeviceNotFound(t *testing.T) {
	r := setup(t)
	_, err := r.GetDevice(999)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeleteDeviceCascadesTags(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	tag := &Tag{DeviceID: d.ID, Name: "flow", Address: 40001, Datatype: "float", Unit: "m3/h"}
	_, err := r.AddTag(tag)
	require.NoError(t, err)

	require.NoError(t, r.DeleteDevice(d.ID))

	_, err = r.GetTag(tag.ID)
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestUpdateDevice(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	d.Description = "renamed"
	require.NoError(t, r.UpdateDevice(d))

	got, err := r.GetDevice(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Description)
}
