// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

var ErrDeviceNotFound = errors.New("repository: device not found")

var deviceColumns = []string{
	"id", "name", "protocol", "host", "port", "serial_port", "baudrate",
	"parity", "stopbits", "bytesize", "unit_id", "timeout_ms",
	"default_function_code", "byte_order", "word_order", "description",
	"created_at", "updated_at",
}

func (r *Repository) GetDevice(id int64) (*Device, error) {
	d := &Device{}
	err := sq.Select(deviceColumns...).From("devices").Where("id = ?", id).
		RunWith(r.stmtCache).QueryRow().Scan(
		&d.ID, &d.Name, &d.Protocol, &d.Host, &d.Port, &d.SerialPort, &d.BaudRate,
		&d.Parity, &d.StopBits, &d.ByteSize, &d.UnitID, &d.TimeoutMs,
		&d.DefaultFunctionCode, &d.ByteOrder, &d.WordOrder, &d.Description,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		modbuslog.Warnf("error fetching device %d: %v", id, err)
		return nil, err
	}
	return d, nil
}

func (r *Repository) ListDevices() ([]*Device, error) {
	rows, err := sq.Select(deviceColumns...).From("devices").OrderBy("id ASC").
		RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warn("error listing devices")
		return nil, err
	}
	defer rows.Close()

	devices := make([]*Device, 0, 16)
	for rows.Next() {
		d := &Device{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Protocol, &d.Host, &d.Port, &d.SerialPort, &d.BaudRate,
			&d.Parity, &d.StopBits, &d.ByteSize, &d.UnitID, &d.TimeoutMs,
			&d.DefaultFunctionCode, &d.ByteOrder, &d.WordOrder, &d.Description,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			modbuslog.Warn("error scanning device row")
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (r *Repository) AddDevice(d *Device) (int64, error) {
	now := time.Now()
	res, err := sq.Insert("devices").
		Columns("name", "protocol", "host", "port", "serial_port", "baudrate",
			"parity", "stopbits", "bytesize", "unit_id", "timeout_ms",
			"default_function_code", "byte_order", "word_order", "description",
			"created_at", "updated_at").
		Values(d.Name, d.Protocol, d.Host, d.Port, d.SerialPort, d.BaudRate,
			d.Parity, d.StopBits, d.ByteSize, d.UnitID, d.TimeoutMs,
			d.DefaultFunctionCode, d.ByteOrder, d.WordOrder, d.Description, now, now).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding device %q: %v", d.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

func (r *Repository) UpdateDevice(d *Device) error {
	_, err := sq.Update("devices").
		Set("name", d.Name).
		Set("protocol", d.Protocol).
		Set("host", d.Host).
		Set("port", d.Port).
		Set("serial_port", d.SerialPort).
		Set("baudrate", d.BaudRate).
		Set("parity", d.Parity).
		Set("stopbits", d.StopBits).
		Set("bytesize", d.ByteSize).
		Set("unit_id", d.UnitID).
		Set("timeout_ms", d.TimeoutMs).
		Set("default_function_code", d.DefaultFunctionCode).
		Set("byte_order", d.ByteOrder).
		Set("word_order", d.WordOrder).
		Set("description", d.Description).
		Set("updated_at", time.Now()).
		Where("id = ?", d.ID).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error updating device %d: %v", d.ID, err)
	}
	return err
}

// DeleteDevice removes a device. Cascading deletes of its tags (and
// anything referencing those tags) is handled by the foreign-key
// ON DELETE CASCADE declared in the schema, keeping the invariant in
// spec §3 ("on Device delete, all referencing Tags ... are removed
// atomically") true without any additional code here.
func (r *Repository) DeleteDevice(id int64) error {
	_, err := sq.Delete("devices").Where("id = ?", id).RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error deleting device %d: %v", id, err)
	}
	return err
}
