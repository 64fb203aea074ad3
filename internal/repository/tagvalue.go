// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

const namedTagValueInsert = `INSERT INTO tag_values (tag_id, ts, value) VALUES (:tag_id, :ts, :value)`

// ValueBatch wraps a prepared transaction for bulk tag-value inserts, the
// persistence path used by the Bulk DB Writer (spec §4.11). One batch is
// opened, filled with Add calls, then committed; this mirrors the
// job-insert transaction pattern the store already used elsewhere in the
// corpus, retargeted at per-tag-value rows instead of per-job rows.
type ValueBatch struct {
	tx   *sqlx.Tx
	stmt *sqlx.NamedStmt
}

// BeginValueBatch opens a transaction and prepares the named insert
// statement. Bundling inserts into one transaction is what makes sqlite
// bulk inserts fast; the same pattern is kept for mysql for symmetry.
func (r *Repository) BeginValueBatch() (*ValueBatch, error) {
	tx, err := r.DB.Beginx()
	if err != nil {
		modbuslog.Warn("error beginning tag value batch transaction")
		return nil, err
	}
	stmt, err := tx.PrepareNamed(namedTagValueInsert)
	if err != nil {
		modbuslog.Warn("error preparing tag value insert statement")
		return nil, err
	}
	return &ValueBatch{tx: tx, stmt: stmt}, nil
}

// Add inserts one row within the open transaction.
func (b *ValueBatch) Add(v TagValue) error {
	if _, err := b.stmt.Exec(v); err != nil {
		modbuslog.Errorf("error inserting tag value for tag %d: %v", v.TagID, err)
		return err
	}
	return nil
}

// Commit finalizes the batch.
func (b *ValueBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		modbuslog.Warn("error committing tag value batch")
		return err
	}
	return nil
}

// Rollback aborts the batch, used when a retry on the next flush is
// preferable to a partial commit (spec §7 StoreError policy).
func (b *ValueBatch) Rollback() error {
	return b.tx.Rollback()
}
