// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

// ListSubdashboards returns every subdashboard. Order is unspecified by
// design (spec §9 open question); callers must not depend on it. The
// ORDER BY here only makes repeated test runs deterministic, it is not a
// guarantee.
func (r *Repository) ListSubdashboards() ([]*Subdashboard, error) {
	rows, err := sq.Select("id", "name").From("subdashboards").OrderBy("id ASC").
		RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warn("error listing subdashboards")
		return nil, err
	}
	defer rows.Close()

	subs := make([]*Subdashboard, 0, 8)
	for rows.Next() {
		s := &Subdashboard{}
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			modbuslog.Warn("error scanning subdashboard row")
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// GetSubdashboardTagIDs returns the member tag ids, in the order they were
// added (position column), used to build the tag-set cache in
// internal/broadcaster.
func (r *Repository) GetSubdashboardTagIDs(id int64) ([]int64, error) {
	rows, err := sq.Select("tag_id").From("subdashboard_tags").
		Where("subdashboard_id = ?", id).OrderBy("position ASC").RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warnf("error listing tags for subdashboard %d: %v", id, err)
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, 16)
	for rows.Next() {
		var tagID int64
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		ids = append(ids, tagID)
	}
	return ids, nil
}

func (r *Repository) AddSubdashboard(s *Subdashboard) (int64, error) {
	res, err := sq.Insert("subdashboards").Columns("name").Values(s.Name).RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding subdashboard %q: %v", s.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

func (r *Repository) SetSubdashboardTags(subID int64, tagIDs []int64) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM subdashboard_tags WHERE subdashboard_id = ?`, subID); err != nil {
		tx.Rollback()
		return err
	}
	for i, tagID := range tagIDs {
		if _, err := tx.Exec(`INSERT INTO subdashboard_tags (subdashboard_id, tag_id, position) VALUES (?, ?, ?)`, subID, tagID, i); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
