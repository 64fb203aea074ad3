// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/modbusd/modbusd/internal/parser"
	"github.com/modbusd/modbusd/internal/poller"
	"github.com/modbusd/modbusd/internal/repository"
)

// setup builds a migrated sqlite database and returns the process-wide
// Repository and a ConfigCache loaded from it, the same pattern
// internal/repository's own tests use. Connect/GetRepository are sync.Once
// singletons, so every test in this binary shares the database the first
// setup call opened; its folder comes from os.MkdirTemp rather than
// t.TempDir so it outlives the test that created it.
func setup(t *testing.T) (*repository.Repository, *repository.ConfigCache) {
	t.Helper()
	dir, err := os.MkdirTemp("", "modbusd_supervisor_test")
	require.NoError(t, err)
	dbfile := filepath.Join(dir, "modbusd_supervisor_test.db")
	require.NoError(t, repository.MigrateDB("sqlite3", dbfile))
	repository.Connect("sqlite3", dbfile)
	repo := repository.GetRepository()
	cache := repository.NewConfigCache(repo)
	require.NoError(t, cache.ReloadIfNeeded())
	return repo, cache
}

func TestReloadConfigsDelegatesToConfigCache(t *testing.T) {
	repo, cache := setup(t)
	s := New(repo, cache, nil)
	require.NoError(t, s.ReloadConfigs())
}

func TestOnParsedBatchFansOutToWriterAndBroadcaster(t *testing.T) {
	repo, cache := setup(t)

	// tag_values.tag_id is a foreign key, so the batch needs a real tag.
	// The device is removed again so later tests still see none.
	host, port := "127.0.0.1", 502
	dev := &repository.Device{Name: "plc-1", Protocol: repository.ProtocolTCP, Host: &host, Port: &port,
		BaudRate: 9600, Parity: "N", StopBits: 1, ByteSize: 8, UnitID: 1, TimeoutMs: 200,
		DefaultFunctionCode: 3, ByteOrder: "big", WordOrder: "AB"}
	_, err := repo.AddDevice(dev)
	require.NoError(t, err)
	defer repo.DeleteDevice(dev.ID)
	tagID, err := repo.AddTag(&repository.Tag{DeviceID: dev.ID, Name: "flow", Address: 40001, Datatype: "float", Scale: 1})
	require.NoError(t, err)

	s := New(repo, cache, nil)

	go s.writer.Run()
	defer s.writer.Stop()
	go s.bcast.Run()
	defer s.bcast.Stop()

	s.setLatency(1, 12)
	s.onParsedBatch(parser.Batch{
		DeviceID: 1,
		Seq:      1,
		Tags: []parser.Tag{
			{ID: tagID, Name: "flow", Value: 1.5, Ts: time.Now()},
		},
	})

	require.Eventually(t, func() bool { return s.writer.Stats().Written >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, uint64(0), s.bcast.Dropped())
}

func TestOnPollerUpdateTracksLatencyPerDevice(t *testing.T) {
	repo, cache := setup(t)
	s := New(repo, cache, nil)

	s.onPollerUpdate(poller.Update{DeviceID: 7, LatencyMs: 42})
	require.Equal(t, int64(42), s.latencyFor(7))
	require.Equal(t, int64(0), s.latencyFor(8))
}

func TestStartAndStopWithNoDevicesIsClean(t *testing.T) {
	repo, cache := setup(t)
	s := New(repo, cache, nil)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	s.Stop()
}
