// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

var alarmRuleColumns = []string{
	"id", "enabled", "code", "name", "level", "target", "operator",
	"threshold", "expression", "on_stable_sec", "off_stable_sec", "created_at",
}

func scanAlarmRule(row interface{ Scan(...any) error }) (*AlarmRule, error) {
	a := &AlarmRule{}
	if err := row.Scan(&a.ID, &a.Enabled, &a.Code, &a.Name, &a.Level, &a.Target,
		&a.Operator, &a.Threshold, &a.Expression, &a.OnStableSec, &a.OffStableSec, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) ListEnabledAlarmRules() ([]*AlarmRule, error) {
	rows, err := sq.Select(alarmRuleColumns...).From("alarm_rules").
		Where("enabled = ?", true).OrderBy("id ASC").RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warn("error listing enabled alarm rules")
		return nil, err
	}
	defer rows.Close()

	rules := make([]*AlarmRule, 0, 16)
	for rows.Next() {
		a, err := scanAlarmRule(rows)
		if err != nil {
			modbuslog.Warn("error scanning alarm rule row")
			return nil, err
		}
		rules = append(rules, a)
	}
	return rules, nil
}

func (r *Repository) AddAlarmRule(a *AlarmRule) (int64, error) {
	res, err := sq.Insert("alarm_rules").
		Columns("enabled", "code", "name", "level", "target", "operator",
			"threshold", "expression", "on_stable_sec", "off_stable_sec").
		Values(a.Enabled, a.Code, a.Name, a.Level, a.Target, a.Operator,
			a.Threshold, a.Expression, a.OnStableSec, a.OffStableSec).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding alarm rule %q: %v", a.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

func (r *Repository) DeleteAlarmRule(id int64) error {
	_, err := sq.Delete("alarm_rules").Where("id = ?", id).RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error deleting alarm rule %d: %v", id, err)
	}
	return err
}
