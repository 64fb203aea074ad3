// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package alarm

import (
	"sync"
	"time"

	"github.com/iamlouk/lrucache"

	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/valuecache"
)

// RuleSource lists the rules to evaluate. Satisfied directly by
// *repository.Repository.
type RuleSource interface {
	ListEnabledAlarmRules() ([]*repository.AlarmRule, error)
}

// EventWriter appends alarm history. Satisfied directly by
// *repository.Repository.
type EventWriter interface {
	AddAlarmEvent(e *repository.AlarmEvent) (int64, error)
}

const rulesCacheKey = "rules"

// Evaluator runs the alarm evaluation tick (spec §4.9). It is driven
// externally by internal/taskmanager's EvaluateAlarms job rather than
// self-ticking, the same pattern the Config Cache's ReloadIfNeeded and the
// broadcaster's subdashboard refresh use.
type Evaluator struct {
	cache  *valuecache.Cache
	rules  RuleSource
	events EventWriter
	notify NotifyFunc

	ruleTTL time.Duration
	ruleBuf *lrucache.Cache

	mu     sync.Mutex
	states map[int64]*ruleState
}

// New builds an Evaluator. ruleRefresh is how long a compiled rule list is
// reused before ListEnabledAlarmRules is queried again; it is independent
// of the tick period passed to taskmanager.Config.AlarmPeriod; a rule edit
// becomes effective within one ruleRefresh window, not one tick.
func New(cache *valuecache.Cache, rules RuleSource, events EventWriter, notify NotifyFunc, ruleRefresh time.Duration) *Evaluator {
	if ruleRefresh <= 0 {
		ruleRefresh = 10 * time.Second
	}
	if notify == nil {
		notify = func(Notification) {}
	}
	return &Evaluator{
		cache:   cache,
		rules:   rules,
		events:  events,
		notify:  notify,
		ruleTTL: ruleRefresh,
		ruleBuf: lrucache.New(1 << 20),
		states:  make(map[int64]*ruleState),
	}
}

func (e *Evaluator) compiledRules() []*compiledRule {
	v := e.ruleBuf.Get(rulesCacheKey, func() (interface{}, time.Duration, int) {
		defs, err := e.rules.ListEnabledAlarmRules()
		if err != nil {
			modbuslog.Warnf("alarm: could not list enabled rules: %v", err)
			return []*compiledRule{}, time.Second, 0
		}
		out := make([]*compiledRule, 0, len(defs))
		for _, def := range defs {
			cr, err := compileRule(def)
			if err != nil {
				modbuslog.Warnf("alarm: %v", err)
				continue
			}
			out = append(out, cr)
		}
		return out, e.ruleTTL, 0
	})
	return v.([]*compiledRule)
}

// Evaluate runs one tick over every enabled rule. Rules whose target tag
// has no cached value yet are skipped, not treated as a false condition.
func (e *Evaluator) Evaluate() {
	now := time.Now()
	for _, cr := range e.compiledRules() {
		entry, ok := e.cache.Get(cr.def.Target)
		if !ok {
			continue
		}

		cond, err := cr.eval(entry.Value)
		if err != nil {
			modbuslog.Warnf("alarm: rule %d (%s) evaluation error: %v", cr.def.ID, cr.def.Name, err)
			continue
		}

		onStable := time.Duration(cr.def.OnStableSec * float64(time.Second))
		offStable := time.Duration(cr.def.OffStableSec * float64(time.Second))

		e.mu.Lock()
		st, ok := e.states[cr.def.ID]
		if !ok {
			st = &ruleState{}
			e.states[cr.def.ID] = st
		}
		transition, fired := st.step(cond, now, onStable, offStable)
		e.mu.Unlock()

		if !fired {
			continue
		}
		e.record(cr.def, transition, entry.Value, now)
	}
}

func (e *Evaluator) record(def *repository.AlarmRule, transition Transition, value float64, now time.Time) {
	note := "Alarm " + string(transition)
	if _, err := e.events.AddAlarmEvent(&repository.AlarmEvent{
		TS:     now,
		Name:   def.Name,
		Level:  def.Level,
		Target: def.Target,
		Value:  value,
		Note:   note,
	}); err != nil {
		modbuslog.Errorf("alarm: could not write event for rule %d (%s): %v", def.ID, def.Name, err)
	}
	e.notify(Notification{Rule: def, Transition: transition, Value: value, Time: now})
}
