// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/modbusd/modbusd/internal/fcgroup"
	"github.com/modbusd/modbusd/internal/modbus"
	"github.com/modbusd/modbusd/internal/modbuslog"
)

// DeviceStatus is a transient, non-persisted connectivity state (spec §4.1:
// "update_device_status / get_device_status — transient; not persisted").
type DeviceStatus string

const (
	StatusUnknown      DeviceStatus = "Unknown"
	StatusConnected    DeviceStatus = "Connected"
	StatusDisconnected DeviceStatus = "Disconnected"
	StatusBackoff      DeviceStatus = "Backoff"
)

type deviceSnapshot struct {
	device *Device
	tags   []*Tag
	groups []fcgroup.Group
	status DeviceStatus
}

type loggerSnapshot struct {
	logger *DataLogger
	tagIDs []int64
}

// ConfigCache is the sole in-memory view of device/tag metadata consulted by
// every hot-path component (pollers, parser, alarm evaluator, broadcaster).
// No hot-path component queries the Repository directly; all reads here are
// O(1) and never touch the database. Writers go through the Repository
// first and only mutate the cache on success, so a store failure leaves the
// snapshot untouched (spec §4.1 failure semantics).
//
// This is the single implementation of the function-code-group computation
// and full-reload logic the source carried as two independent copies; see
// DESIGN.md for that open-question decision.
type ConfigCache struct {
	repo *Repository

	mu       sync.RWMutex
	devices  map[int64]*deviceSnapshot
	statuses map[int64]DeviceStatus
	loggers  map[int64]*loggerSnapshot
}

func NewConfigCache(repo *Repository) *ConfigCache {
	return &ConfigCache{
		repo:     repo,
		devices:  make(map[int64]*deviceSnapshot),
		statuses: make(map[int64]DeviceStatus),
		loggers:  make(map[int64]*loggerSnapshot),
	}
}

// ReloadIfNeeded performs a full reload from the store, atomically replacing
// the internal maps on success. Called on the periodic schedule (spec §6
// reload_interval_sec) and on demand from the Supervisor's reload hook.
// A reload failure leaves the previous snapshot in place.
func (c *ConfigCache) ReloadIfNeeded() error {
	devices, err := c.repo.ListDevices()
	if err != nil {
		modbuslog.Warnf("config cache reload: error listing devices: %v", err)
		return err
	}

	next := make(map[int64]*deviceSnapshot, len(devices))
	for _, d := range devices {
		tags, err := c.repo.GetDeviceTags(d.ID)
		if err != nil {
			modbuslog.Warnf("config cache reload: error listing tags for device %d: %v", d.ID, err)
			return err
		}
		next[d.ID] = &deviceSnapshot{
			device: d,
			tags:   tags,
			groups: computeGroups(d, tags),
			status: StatusUnknown,
		}
	}

	loggers, err := c.repo.ListDataLoggers()
	if err != nil {
		modbuslog.Warnf("config cache reload: error listing data loggers: %v", err)
		return err
	}
	nextLoggers := make(map[int64]*loggerSnapshot, len(loggers))
	for _, l := range loggers {
		tagIDs, err := c.repo.GetLoggerTagIDs(l.ID)
		if err != nil {
			modbuslog.Warnf("config cache reload: error listing tags for logger %d: %v", l.ID, err)
			return err
		}
		nextLoggers[l.ID] = &loggerSnapshot{logger: l, tagIDs: tagIDs}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, prev := range c.devices {
		if cur, ok := next[id]; ok {
			cur.status = prev.status
		}
	}
	c.devices = next
	c.loggers = nextLoggers
	return nil
}

// GetDataLoggers returns every logger definition, enabled or not; callers
// that only want to schedule active ones (internal/datalogger.Manager)
// filter on Enabled themselves.
func (c *ConfigCache) GetDataLoggers() []*DataLogger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*DataLogger, 0, len(c.loggers))
	for _, snap := range c.loggers {
		out = append(out, snap.logger)
	}
	return out
}

// GetLoggerTagIDs returns the tag ids a logger aggregates, from the
// in-memory mirror rather than a fresh store query.
func (c *ConfigCache) GetLoggerTagIDs(loggerID int64) ([]int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.loggers[loggerID]
	if !ok {
		return nil, false
	}
	return snap.tagIDs, true
}

func computeGroups(d *Device, tags []*Tag) []fcgroup.Group {
	fcTags := make([]fcgroup.Tag, 0, len(tags))
	for _, t := range tags {
		dt, err := modbus.ParseDatatype(t.Datatype)
		if err != nil {
			modbuslog.Warnf("config cache: tag %d has invalid datatype %q, skipping from fc groups", t.ID, t.Datatype)
			continue
		}
		var fc *modbus.FunctionCode
		if t.FunctionCode != nil {
			v := modbus.FunctionCode(*t.FunctionCode)
			fc = &v
		}
		fcTags = append(fcTags, fcgroup.Tag{ID: t.ID, Address: t.Address, Datatype: dt, FunctionCode: fc})
	}
	return fcgroup.Compute(fcTags, modbus.FunctionCode(d.DefaultFunctionCode))
}

func (c *ConfigCache) GetDevice(id int64) (*Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.devices[id]
	if !ok {
		return nil, false
	}
	return snap.device, true
}

func (c *ConfigCache) GetAllDevices() []*Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Device, 0, len(c.devices))
	for _, snap := range c.devices {
		out = append(out, snap.device)
	}
	return out
}

func (c *ConfigCache) GetDeviceTags(deviceID int64) ([]*Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.devices[deviceID]
	if !ok {
		return nil, false
	}
	return snap.tags, true
}

func (c *ConfigCache) GetTag(deviceID, tagID int64) (*Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.devices[deviceID]
	if !ok {
		return nil, false
	}
	for _, t := range snap.tags {
		if t.ID == tagID {
			return t, true
		}
	}
	return nil, false
}

// DeviceInterval derives the poll interval of spec §4.4: the minimum
// interval_sec, as a duration, of every enabled logger subscribed to at
// least one of the device's tags. Returns 0 (meaning "no logger-derived
// minimum yet") when no enabled logger subscribes to the device at all;
// the caller clamps this through ClampInterval, which maps 0 to the
// documented 200 ms default.
func (c *ConfigCache) DeviceInterval(deviceID int64) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.devices[deviceID]
	if !ok {
		return 0
	}
	tagSet := make(map[int64]struct{}, len(snap.tags))
	for _, t := range snap.tags {
		tagSet[t.ID] = struct{}{}
	}

	var min time.Duration
	for _, l := range c.loggers {
		if !l.logger.Enabled {
			continue
		}
		subscribed := false
		for _, tagID := range l.tagIDs {
			if _, ok := tagSet[tagID]; ok {
				subscribed = true
				break
			}
		}
		if !subscribed {
			continue
		}
		d := time.Duration(l.logger.IntervalSec) * time.Second
		if min == 0 || d < min {
			min = d
		}
	}
	return min
}

// GetDeviceFCGroups returns the precomputed function-code groups for a
// device, ready for the poller to issue bulk reads against.
func (c *ConfigCache) GetDeviceFCGroups(deviceID int64) ([]fcgroup.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.devices[deviceID]
	if !ok {
		return nil, false
	}
	return snap.groups, true
}

func (c *ConfigCache) UpdateDeviceStatus(deviceID int64, status DeviceStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.devices[deviceID]; ok {
		snap.status = status
	}
}

func (c *ConfigCache) GetDeviceStatus(deviceID int64) DeviceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if snap, ok := c.devices[deviceID]; ok {
		return snap.status
	}
	return StatusUnknown
}

// AddDevice writes through to the store, then mutates the cache and
// recomputes that device's (empty) group set on success.
func (c *ConfigCache) AddDevice(d *Device) error {
	if _, err := c.repo.AddDevice(d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices[d.ID] = &deviceSnapshot{device: d, tags: nil, groups: computeGroups(d, nil), status: StatusUnknown}
	return nil
}

func (c *ConfigCache) UpdateDevice(d *Device) error {
	if err := c.repo.UpdateDevice(d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.devices[d.ID]
	if !ok {
		c.devices[d.ID] = &deviceSnapshot{device: d, groups: computeGroups(d, nil), status: StatusUnknown}
		return nil
	}
	snap.device = d
	snap.groups = computeGroups(d, snap.tags)
	return nil
}

func (c *ConfigCache) DeleteDevice(id int64) error {
	if err := c.repo.DeleteDevice(id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.devices, id)
	delete(c.statuses, id)
	return nil
}

// validateTag rejects a tag whose datatype or function code the modbus
// package cannot resolve, keeping spec §7's ConfigError category at the
// configuration boundary rather than letting it surface mid-poll.
func validateTag(t *Tag) error {
	if _, err := modbus.ParseDatatype(t.Datatype); err != nil {
		return err
	}
	if t.FunctionCode != nil {
		fc := modbus.FunctionCode(*t.FunctionCode)
		if !fc.Readable() {
			return fmt.Errorf("config cache: function code %d is not a valid Modbus function code", *t.FunctionCode)
		}
	}
	return nil
}

func (c *ConfigCache) AddTag(t *Tag) error {
	if err := validateTag(t); err != nil {
		return err
	}
	if _, err := c.repo.AddTag(t); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.devices[t.DeviceID]
	if !ok {
		return fmt.Errorf("config cache: device %d not loaded", t.DeviceID)
	}
	snap.tags = append(snap.tags, t)
	snap.groups = computeGroups(snap.device, snap.tags)
	return nil
}

func (c *ConfigCache) UpdateTag(t *Tag) error {
	if err := validateTag(t); err != nil {
		return err
	}
	if err := c.repo.UpdateTag(t); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.devices[t.DeviceID]
	if !ok {
		return fmt.Errorf("config cache: device %d not loaded", t.DeviceID)
	}
	for i, existing := range snap.tags {
		if existing.ID == t.ID {
			snap.tags[i] = t
			break
		}
	}
	snap.groups = computeGroups(snap.device, snap.tags)
	return nil
}

func (c *ConfigCache) DeleteTag(deviceID, tagID int64) error {
	if err := c.repo.DeleteTag(tagID); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.devices[deviceID]
	if !ok {
		return nil
	}
	kept := snap.tags[:0]
	for _, t := range snap.tags {
		if t.ID != tagID {
			kept = append(kept, t)
		}
	}
	snap.tags = kept
	snap.groups = computeGroups(snap.device, snap.tags)
	return nil
}
