// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClearToActiveImmediateWhenStableIsZero(t *testing.T) {
	s := &ruleState{}
	now := time.Now()

	tr, fired := s.step(true, now, 0, 0)
	assert.True(t, fired)
	assert.Equal(t, Incoming, tr)
	assert.Equal(t, statusActive, s.status)
}

func TestStepRequiresContinuousOnStability(t *testing.T) {
	s := &ruleState{}
	start := time.Now()

	_, fired := s.step(true, start, 200*time.Millisecond, 0)
	assert.False(t, fired)
	assert.Equal(t, statusPendingOn, s.status)

	_, fired = s.step(true, start.Add(100*time.Millisecond), 200*time.Millisecond, 0)
	assert.False(t, fired)
	assert.Equal(t, statusPendingOn, s.status)

	tr, fired := s.step(true, start.Add(250*time.Millisecond), 200*time.Millisecond, 0)
	assert.True(t, fired)
	assert.Equal(t, Incoming, tr)
}

func TestStepFalsifyingPendingOnClearsTimer(t *testing.T) {
	s := &ruleState{}
	start := time.Now()

	s.step(true, start, time.Second, 0)
	assert.Equal(t, statusPendingOn, s.status)

	_, fired := s.step(false, start.Add(10*time.Millisecond), time.Second, 0)
	assert.False(t, fired)
	assert.Equal(t, statusClear, s.status)
	assert.True(t, s.onSince.IsZero())

	// onSince must restart from scratch, not resume the old timer
	s.step(true, start.Add(20*time.Millisecond), time.Second, 0)
	assert.Equal(t, start.Add(20*time.Millisecond), s.onSince)
}

func TestStepActiveToOutcomeRequiresContinuousOffStability(t *testing.T) {
	s := &ruleState{status: statusActive}
	start := time.Now()

	_, fired := s.step(false, start, 0, 200*time.Millisecond)
	assert.False(t, fired)
	assert.Equal(t, statusPendingOff, s.status)

	tr, fired := s.step(false, start.Add(250*time.Millisecond), 0, 200*time.Millisecond)
	assert.True(t, fired)
	assert.Equal(t, Outcome, tr)
	assert.Equal(t, statusClear, s.status)
}

func TestStepConditionReturningTrueDuringPendingOffGoesStraightBackToActive(t *testing.T) {
	s := &ruleState{status: statusActive}
	start := time.Now()

	s.step(false, start, 0, time.Second)
	assert.Equal(t, statusPendingOff, s.status)

	_, fired := s.step(true, start.Add(10*time.Millisecond), 0, time.Second)
	assert.False(t, fired)
	assert.Equal(t, statusActive, s.status)
	assert.True(t, s.offSince.IsZero())
}

func TestStepClearStaysClearWhileConditionFalse(t *testing.T) {
	s := &ruleState{}
	_, fired := s.step(false, time.Now(), time.Second, time.Second)
	assert.False(t, fired)
	assert.Equal(t, statusClear, s.status)
}
