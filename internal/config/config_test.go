// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fp, []byte(body), 0o644))
	return fp
}

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = ProgramConfig{ReloadIntervalSec: 30, AlarmPeriodMs: 500}
	require.NoError(t, Init(filepath.Join(t.TempDir(), "does-not-exist.json")))
	assert.Equal(t, 30, Keys.ReloadIntervalSec)
}

func TestInitOverridesDefaults(t *testing.T) {
	fp := writeConfig(t, `{"db_driver":"mysql","db":"modbusd:pw@/modbusd","alarm_period_ms":250}`)
	require.NoError(t, Init(fp))
	assert.Equal(t, "mysql", Keys.DBDriver)
	assert.Equal(t, 250, Keys.AlarmPeriodMs)
}

func TestInitRejectsUnknownField(t *testing.T) {
	fp := writeConfig(t, `{"not_a_real_key": 1}`)
	assert.Error(t, Init(fp))
}

func TestInitRejectsInvalidLogLevel(t *testing.T) {
	fp := writeConfig(t, `{"log_level": "verbose"}`)
	assert.Error(t, Init(fp))
}

func TestValidateStandalone(t *testing.T) {
	fp := writeConfig(t, `{"db_driver":"sqlite3","db":"./var/modbusd.db"}`)
	f, err := os.Open(fp)
	require.NoError(t, err)
	defer f.Close()
	assert.NoError(t, Validate(f))
}
