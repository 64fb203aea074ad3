// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskmanager schedules the acquisition engine's periodic,
// non-hot-path jobs: Config Cache reload, the Alarm Evaluator tick, and
// the subdashboard tag-set cache refresh. Device and RTU-bus pollers run
// their own barrier-start anti-drift loop in internal/poller instead of
// going through this scheduler, since gocron's job model has no
// equivalent to that rendezvous-then-self-correcting-tick semantics.
//
// The package uses the gocron library the same way the rest of the
// corpus does: one gocron.Scheduler, started once, shut down once.
package taskmanager
