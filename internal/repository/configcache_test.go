// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCacheReloadLoadsDevicesAndGroups(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	fc := 3
	_, err := r.AddTag(&Tag{DeviceID: d.ID, Name: "flow", Address: 40001, Datatype: "float", FunctionCode: &fc})
	require.NoError(t, err)
	_, err = r.AddTag(&Tag{DeviceID: d.ID, Name: "temp", Address: 40003, Datatype: "int16", FunctionCode: &fc})
	require.NoError(t, err)

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	got, ok := cc.GetDevice(d.ID)
	require.True(t, ok)
	assert.Equal(t, d.Name, got.Name)

	tags, ok := cc.GetDeviceTags(d.ID)
	require.True(t, ok)
	assert.Len(t, tags, 2)

	groups, ok := cc.GetDeviceFCGroups(d.ID)
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, 0, groups[0].Start)
	assert.Equal(t, 3, groups[0].Count)
}

func TestConfigCacheReloadPreservesDeviceStatus(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())
	cc.UpdateDeviceStatus(d.ID, StatusConnected)

	require.NoError(t, cc.ReloadIfNeeded())
	assert.Equal(t, StatusConnected, cc.GetDeviceStatus(d.ID))
}

func TestConfigCacheAddTagWriteThrough(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	require.NoError(t, cc.AddTag(&Tag{DeviceID: d.ID, Name: "pressure", Address: 40005, Datatype: "uint16"}))

	tags, ok := cc.GetDeviceTags(d.ID)
	require.True(t, ok)
	assert.Len(t, tags, 1)

	persisted, err := r.GetDeviceTags(d.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestConfigCacheAddTagRejectsInvalidDatatype(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	err := cc.AddTag(&Tag{DeviceID: d.ID, Name: "bogus", Address: 40001, Datatype: "not-a-type"})
	assert.Error(t, err)

	tags, ok := cc.GetDeviceTags(d.ID)
	require.True(t, ok)
	assert.Empty(t, tags)
}

func TestConfigCacheMissingDevice(t *testing.T) {
	r := setup(t)
	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	_, ok := cc.GetDevice(42)
	assert.False(t, ok)
}

func TestConfigCacheReloadLoadsLoggersAndTags(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)
	fc := 3
	tag, err := r.AddTag(&Tag{DeviceID: d.ID, Name: "flow", Address: 40001, Datatype: "float", FunctionCode: &fc})
	require.NoError(t, err)

	id, err := r.AddDataLogger(&DataLogger{Name: "slow-trend", IntervalSec: 60, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, r.SetLoggerTags(id, []int64{tag}))

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	loggers := cc.GetDataLoggers()
	require.Len(t, loggers, 1)
	assert.Equal(t, "slow-trend", loggers[0].Name)

	tagIDs, ok := cc.GetLoggerTagIDs(id)
	require.True(t, ok)
	assert.Equal(t, []int64{tag}, tagIDs)
}

func TestConfigCacheDeviceIntervalTakesMinimumOfSubscribedLoggers(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)
	fc := 3
	tag, err := r.AddTag(&Tag{DeviceID: d.ID, Name: "flow", Address: 40001, Datatype: "float", FunctionCode: &fc})
	require.NoError(t, err)

	slow, err := r.AddDataLogger(&DataLogger{Name: "slow-trend", IntervalSec: 60, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, r.SetLoggerTags(slow, []int64{tag}))

	fast, err := r.AddDataLogger(&DataLogger{Name: "fast-trend", IntervalSec: 5, Enabled: true})
	require.NoError(t, err)
	require.NoError(t, r.SetLoggerTags(fast, []int64{tag}))

	disabled, err := r.AddDataLogger(&DataLogger{Name: "disabled-trend", IntervalSec: 1, Enabled: false})
	require.NoError(t, err)
	require.NoError(t, r.SetLoggerTags(disabled, []int64{tag}))

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	assert.Equal(t, 5*time.Second, cc.DeviceInterval(d.ID))
}

func TestConfigCacheDeviceIntervalIsZeroWithoutSubscribedLogger(t *testing.T) {
	r := setup(t)
	d := seedDevice(t, r)

	cc := NewConfigCache(r)
	require.NoError(t, cc.ReloadIfNeeded())

	assert.Equal(t, time.Duration(0), cc.DeviceInterval(d.ID))
}
