// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import "time"

// Protocol is the wire protocol a Device speaks.
type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolRTU Protocol = "RTU"
)

// Device mirrors the devices table.
type Device struct {
	ID                   int64     `db:"id"`
	Name                 string    `db:"name"`
	Protocol             Protocol  `db:"protocol"`
	Host                 *string   `db:"host"`
	Port                 *int      `db:"port"`
	SerialPort           *string   `db:"serial_port"`
	BaudRate             int       `db:"baudrate"`
	Parity               string    `db:"parity"`
	StopBits             int       `db:"stopbits"`
	ByteSize             int       `db:"bytesize"`
	UnitID               int       `db:"unit_id"`
	TimeoutMs            int       `db:"timeout_ms"`
	DefaultFunctionCode  int       `db:"default_function_code"`
	ByteOrder            string    `db:"byte_order"`
	WordOrder            string    `db:"word_order"`
	Description          string    `db:"description"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Tag mirrors the tags table.
type Tag struct {
	ID           int64   `db:"id"`
	DeviceID     int64   `db:"device_id"`
	Name         string  `db:"name"`
	Address      int     `db:"address"`
	Datatype     string  `db:"datatype"`
	Unit         string  `db:"unit"`
	Scale        float64 `db:"scale"`
	Offset       float64 `db:"offset"`
	FunctionCode *int    `db:"function_code"`
	Group        string  `db:"grp"`
	Description  string  `db:"description"`
}

// TagValue mirrors one row of the append-only tag_values time series.
type TagValue struct {
	ID    int64     `db:"id"`
	TagID int64     `db:"tag_id"`
	TS    time.Time `db:"ts"`
	Value float64   `db:"value"`
}

// AlarmLevel is the severity of an AlarmRule/AlarmEvent.
type AlarmLevel string

const (
	LevelLow      AlarmLevel = "Low"
	LevelMedium   AlarmLevel = "Medium"
	LevelHigh     AlarmLevel = "High"
	LevelCritical AlarmLevel = "Critical"
)

// AlarmRule mirrors the alarm_rules table. Either (Operator, Threshold) or
// Expression is set: see SPEC_FULL.md §C.1.
type AlarmRule struct {
	ID            int64      `db:"id"`
	Enabled       bool       `db:"enabled"`
	Code          string     `db:"code"`
	Name          string     `db:"name"`
	Level         AlarmLevel `db:"level"`
	Target        int64      `db:"target"`
	Operator      *string    `db:"operator"`
	Threshold     *float64   `db:"threshold"`
	Expression    *string    `db:"expression"`
	OnStableSec   float64    `db:"on_stable_sec"`
	OffStableSec  float64    `db:"off_stable_sec"`
	CreatedAt     time.Time  `db:"created_at"`
}

// AlarmEvent mirrors one append-only row of alarm history.
type AlarmEvent struct {
	ID     int64      `db:"id"`
	TS     time.Time  `db:"ts"`
	Name   string     `db:"name"`
	Level  AlarmLevel `db:"level"`
	Target int64      `db:"target"`
	Value  float64    `db:"value"`
	Note   string     `db:"note"`
}

// DataLogger mirrors the data_loggers table.
type DataLogger struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	IntervalSec  int       `db:"interval_sec"`
	Enabled      bool      `db:"enabled"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Subdashboard mirrors the subdashboards table; its tag membership lives in
// subdashboard_tags.
type Subdashboard struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
