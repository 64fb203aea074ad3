// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	repoOnce     sync.Once
	repoInstance *Repository
)

// Repository is the sole SQL-backed store for devices, tags, tag values,
// alarm rules/events, loggers, and subdashboards. Nothing on the hot path
// (pollers, parser, alarm evaluator) talks to it directly — they go
// through the ConfigCache and ValueCache instead (spec §4.1/§4.2); this
// type exists for write-through persistence and for the Bulk DB Writer.
type Repository struct {
	DB        *sqlx.DB
	stmtCache *sq.StmtCache
}

// GetRepository returns the process-wide repository, built on the
// process-wide DB connection from Connect.
func GetRepository() *Repository {
	repoOnce.Do(func() {
		conn := GetConnection()
		repoInstance = &Repository{
			DB:        conn.DB,
			stmtCache: sq.NewStmtCache(conn.DB),
		}
	})
	return repoInstance
}
