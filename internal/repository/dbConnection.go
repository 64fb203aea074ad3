// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

// DBConnection wraps the single sqlx handle shared by every repository
// method. One process holds exactly one of these.
type DBConnection struct {
	DB *sqlx.DB
}

// Connect opens the database exactly once per process (subsequent calls
// are no-ops) and runs the migration-version check.
func Connect(driver string, dsn string) {
	var err error
	var dbHandle *sqlx.DB

	dbConnOnce.Do(func() {
		switch driver {
		case "sqlite3":
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
			dbHandle, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
			if err != nil {
				modbuslog.Fatal(err)
			}

			// sqlite does not multithread; more than one connection just
			// means waiting for locks.
			dbHandle.SetMaxOpenConns(1)
		case "mysql":
			dbHandle, err = sqlx.Open("mysql", fmt.Sprintf("%s?multiStatements=true", dsn))
			if err != nil {
				modbuslog.Fatalf("sqlx.Open() error: %v", err)
			}

			dbHandle.SetConnMaxLifetime(time.Minute * 3)
			dbHandle.SetMaxOpenConns(10)
			dbHandle.SetMaxIdleConns(10)
		default:
			modbuslog.Fatalf("unsupported database driver: %s", driver)
		}

		dbConnInstance = &DBConnection{DB: dbHandle}
		checkDBVersion(driver, dbHandle.DB)
	})
}

// GetConnection returns the process-wide connection. Exits via Fatal if
// Connect was never called; this is always a startup-ordering bug.
func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		modbuslog.Fatal("database connection not initialized")
	}

	return dbConnInstance
}
