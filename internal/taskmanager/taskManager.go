// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskmanager

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

var (
	mu sync.Mutex
	s  gocron.Scheduler
)

// Config carries the cadences and callbacks for every job this manager
// schedules. Callbacks are plain funcs rather than concrete component
// types so this package never imports internal/repository, internal/alarm
// or internal/broadcaster — the Supervisor wires the callbacks at
// construction time instead (spec §4.12 fixed start order).
type Config struct {
	ReloadInterval   time.Duration
	ReloadConfig     func() error
	AlarmPeriod      time.Duration
	EvaluateAlarms   func()
	SubdashboardTTL  time.Duration
	RefreshSubdashes func()
}

// Start builds and starts the scheduler, registering whichever jobs have
// a non-nil callback. A zero Config starts an idle scheduler with no jobs.
func Start(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	sched, err := gocron.NewScheduler()
	if err != nil {
		modbuslog.Errorf("taskmanager: could not create gocron scheduler: %v", err)
		return err
	}
	s = sched

	if cfg.ReloadConfig != nil {
		interval := cfg.ReloadInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		if _, err := s.NewJob(gocron.DurationJob(interval), gocron.NewTask(func() {
			start := time.Now()
			if err := cfg.ReloadConfig(); err != nil {
				modbuslog.Warnf("config cache reload failed: %v", err)
				return
			}
			modbuslog.Debugf("config cache reload took %s", time.Since(start))
		})); err != nil {
			modbuslog.Errorf("taskmanager: could not register reload job: %v", err)
			return err
		}
	}

	if cfg.EvaluateAlarms != nil {
		period := cfg.AlarmPeriod
		if period <= 0 {
			period = 500 * time.Millisecond
		}
		if _, err := s.NewJob(gocron.DurationJob(period), gocron.NewTask(cfg.EvaluateAlarms)); err != nil {
			modbuslog.Errorf("taskmanager: could not register alarm evaluator job: %v", err)
			return err
		}
	}

	if cfg.RefreshSubdashes != nil {
		ttl := cfg.SubdashboardTTL
		if ttl <= 0 {
			ttl = 10 * time.Second
		}
		if _, err := s.NewJob(gocron.DurationJob(ttl), gocron.NewTask(cfg.RefreshSubdashes)); err != nil {
			modbuslog.Errorf("taskmanager: could not register subdashboard refresh job: %v", err)
			return err
		}
	}

	s.Start()
	modbuslog.Info("taskmanager: scheduler started")
	return nil
}

// Shutdown stops the scheduler. Safe to call even if Start was never
// called or failed.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if s != nil {
		if err := s.Shutdown(); err != nil {
			modbuslog.Warnf("taskmanager: error shutting down scheduler: %v", err)
		}
		s = nil
	}
}
