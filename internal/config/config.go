// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config owns the process-wide configuration struct, its JSON
// Schema validation, and the documented defaults applied to any field a
// config file leaves unset.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

//go:embed schema.json
var schemaFS embed.FS

// Keys is the process-wide configuration, populated by Init. Field names
// mirror the inputs listed in spec §6.
var Keys = ProgramConfig{
	DBDriver:                "sqlite3",
	DB:                      "./var/modbusd.db",
	ReloadIntervalSec:       30,
	RawQueueMax:             10000,
	ParserQueueMax:          5000,
	LoggerQueueMax:          5000,
	BroadcastBatchMax:       20,
	BroadcastBatchTimeoutMs: 100,
	AlarmPeriodMs:           500,
	PollerMinIntervalMs:     50,
	PollerMaxIntervalMs:     500,
	RTUIdleTimeoutSec:       60,
	WebsocketAddr:           ":8080",
	LogLevel:                "info",
}

// ProgramConfig is the full set of configuration inputs the acquisition
// engine accepts. Optional fields carry the defaults set on Keys above;
// a config file only needs to specify what it wants to override.
type ProgramConfig struct {
	DBDriver string `json:"db_driver"`
	DB       string `json:"db"`

	NatsURL       string `json:"nats_url,omitempty"`
	WebsocketAddr string `json:"websocket_addr"`
	MetricsAddr   string `json:"metrics_listen_addr,omitempty"`
	LogLevel      string `json:"log_level"`

	ReloadIntervalSec       int `json:"reload_interval_sec"`
	RawQueueMax             int `json:"raw_queue_max"`
	ParserQueueMax          int `json:"parser_queue_max"`
	LoggerQueueMax          int `json:"logger_queue_max"`
	BroadcastBatchMax       int `json:"broadcast_batch_max"`
	BroadcastBatchTimeoutMs int `json:"broadcast_batch_timeout_ms"`
	AlarmPeriodMs           int `json:"alarm_period_ms"`
	PollerMinIntervalMs     int `json:"poller_min_interval_ms"`
	PollerMaxIntervalMs     int `json:"poller_max_interval_ms"`
	RTUIdleTimeoutSec       int `json:"rtu_idle_timeout_sec"`
}

// Init reads flagConfigFile, validates it against the embedded schema,
// and decodes it onto Keys. A missing file is not an error: Keys keeps
// its defaults. Unknown fields are rejected so a config typo surfaces
// immediately instead of silently applying a default.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", flagConfigFile, err)
	}

	if err := Validate(bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("config: validating %s: %w", flagConfigFile, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return fmt.Errorf("config: decoding %s: %w", flagConfigFile, err)
	}

	modbuslog.Infof("loaded configuration from %s", flagConfigFile)
	return nil
}

func schemaSource() []byte {
	b, err := schemaFS.ReadFile("schema.json")
	if err != nil {
		modbuslog.Fatal(err)
	}
	return b
}
