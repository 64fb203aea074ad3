// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

func (r *Repository) ListDataLoggers() ([]*DataLogger, error) {
	rows, err := sq.Select("id", "name", "interval_sec", "enabled", "description", "created_at", "updated_at").
		From("data_loggers").OrderBy("id ASC").RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warn("error listing data loggers")
		return nil, err
	}
	defer rows.Close()

	loggers := make([]*DataLogger, 0, 8)
	for rows.Next() {
		l := &DataLogger{}
		if err := rows.Scan(&l.ID, &l.Name, &l.IntervalSec, &l.Enabled, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			modbuslog.Warn("error scanning data logger row")
			return nil, err
		}
		loggers = append(loggers, l)
	}
	return loggers, nil
}

// GetLoggerTagIDs returns the tag ids a logger aggregates, independent of
// which device(s) own them (spec §3: "a single logger may aggregate tags
// across devices").
func (r *Repository) GetLoggerTagIDs(loggerID int64) ([]int64, error) {
	rows, err := sq.Select("tag_id").From("data_logger_tags").
		Where("logger_id = ?", loggerID).RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warnf("error listing tags for logger %d: %v", loggerID, err)
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, 16)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Repository) AddDataLogger(l *DataLogger) (int64, error) {
	now := time.Now()
	res, err := sq.Insert("data_loggers").
		Columns("name", "interval_sec", "enabled", "description", "created_at", "updated_at").
		Values(l.Name, l.IntervalSec, l.Enabled, l.Description, now, now).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding data logger %q: %v", l.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	l.ID = id
	return id, nil
}

func (r *Repository) SetLoggerTags(loggerID int64, tagIDs []int64) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM data_logger_tags WHERE logger_id = ?`, loggerID); err != nil {
		tx.Rollback()
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(`INSERT INTO data_logger_tags (logger_id, tag_id) VALUES (?, ?)`, loggerID, tagID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
