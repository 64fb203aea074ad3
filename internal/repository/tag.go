// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

var ErrTagNotFound = errors.New("repository: tag not found")

var tagColumns = []string{
	"id", "device_id", "name", "address", "datatype", "unit", "scale",
	"offset", "function_code", "grp", "description",
}

func scanTag(row interface{ Scan(...any) error }) (*Tag, error) {
	t := &Tag{}
	if err := row.Scan(&t.ID, &t.DeviceID, &t.Name, &t.Address, &t.Datatype, &t.Unit,
		&t.Scale, &t.Offset, &t.FunctionCode, &t.Group, &t.Description); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repository) GetTag(id int64) (*Tag, error) {
	row := sq.Select(tagColumns...).From("tags").Where("id = ?", id).RunWith(r.stmtCache).QueryRow()
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	if err != nil {
		modbuslog.Warnf("error fetching tag %d: %v", id, err)
		return nil, err
	}
	return t, nil
}

func (r *Repository) GetDeviceTags(deviceID int64) ([]*Tag, error) {
	rows, err := sq.Select(tagColumns...).From("tags").Where("device_id = ?", deviceID).
		OrderBy("id ASC").RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warnf("error listing tags for device %d: %v", deviceID, err)
		return nil, err
	}
	defer rows.Close()

	tags := make([]*Tag, 0, 16)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			modbuslog.Warn("error scanning tag row")
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (r *Repository) ListTags() ([]*Tag, error) {
	rows, err := sq.Select(tagColumns...).From("tags").OrderBy("id ASC").RunWith(r.stmtCache).Query()
	if err != nil {
		modbuslog.Warn("error listing tags")
		return nil, err
	}
	defer rows.Close()

	tags := make([]*Tag, 0, 64)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (r *Repository) AddTag(t *Tag) (int64, error) {
	res, err := sq.Insert("tags").
		Columns("device_id", "name", "address", "datatype", "unit", "scale",
			"offset", "function_code", "grp", "description").
		Values(t.DeviceID, t.Name, t.Address, t.Datatype, t.Unit, t.Scale,
			t.Offset, t.FunctionCode, t.Group, t.Description).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error adding tag %q: %v", t.Name, err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

func (r *Repository) UpdateTag(t *Tag) error {
	_, err := sq.Update("tags").
		Set("name", t.Name).
		Set("address", t.Address).
		Set("datatype", t.Datatype).
		Set("unit", t.Unit).
		Set("scale", t.Scale).
		Set("offset", t.Offset).
		Set("function_code", t.FunctionCode).
		Set("grp", t.Group).
		Set("description", t.Description).
		Where("id = ?", t.ID).
		RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error updating tag %d: %v", t.ID, err)
	}
	return err
}

func (r *Repository) DeleteTag(id int64) error {
	_, err := sq.Delete("tags").Where("id = ?", id).RunWith(r.stmtCache).Exec()
	if err != nil {
		modbuslog.Errorf("error deleting tag %d: %v", id, err)
	}
	return err
}
