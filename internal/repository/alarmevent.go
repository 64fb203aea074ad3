// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

// AddAlarmEvent appends one row; alarm_events is append-only (spec §3).
func (r *Repository) AddAlarmEvent(e *AlarmEvent) (int64, error) {
	res, err := sq.Insert("alarm_events").
		Columns("ts", "name", "level", "target", "value", "note").
		Values(e.TS, e.Name, e.Level, e.Target, e.Value, e.Note).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding alarm event %q: %v", e.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

func (r *Repository) ListAlarmEvents(target int64, limit int) ([]*AlarmEvent, error) {
	rows, err := sq.Select("id", "ts", "name", "level", "target", "value", "note").
		From("alarm_events").Where("target = ?", target).
		OrderBy("ts DESC").Limit(uint64(limit)).RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warnf("error listing alarm events for target %d: %v", target, err)
		return nil, err
	}
	defer rows.Close()

	events := make([]*AlarmEvent, 0, limit)
	for rows.Next() {
		e := &AlarmEvent{}
		if err := rows.Scan(&e.ID, &e.TS, &e.Name, &e.Level, &e.Target, &e.Value, &e.Note); err != nil {
			modbuslog.Warn("error scanning alarm event row")
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
