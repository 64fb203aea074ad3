// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// setup builds a migrated sqlite database and returns the process-wide
// Repository bound to it. Connect and GetRepository are sync.Once
// singletons, so every test in this binary shares the database the first
// setup call opened; later calls migrate a file of their own that goes
// unused. The folder comes from os.MkdirTemp rather than tb.TempDir so it
// outlives the test that created it.
func setup(tb testing.TB) *Repository {
	tb.Helper()
	dir, err := os.MkdirTemp("", "modbusd_test")
	require.NoError(tb, err)
	dbfile := filepath.Join(dir, "modbusd_test.db")
	require.NoError(tb, MigrateDB("sqlite3", dbfile))
	Connect("sqlite3", dbfile)
	return GetRepository()
}

func seedDevice(tb testing.TB, r *Repository) *Device {
	tb.Helper()
	d := &Device{
		Name:                "plc-1",
		Protocol:            ProtocolTCP,
		Host:                strPtr("10.0.0.5"),
		Port:                intPtr(502),
		BaudRate:            9600,
		Parity:              "N",
		StopBits:            1,
		ByteSize:            8,
		UnitID:              1,
		TimeoutMs:           1000,
		DefaultFunctionCode: 3,
		ByteOrder:           "Big",
		WordOrder:           "AB",
		Description:         "test device",
	}
	_, err := r.AddDevice(d)
	require.NoError(tb, err)
	return d
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
