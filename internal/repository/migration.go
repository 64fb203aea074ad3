// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"embed"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

const supportedVersion uint = 1

//go:embed migrations/*
var migrationFiles embed.FS

func checkDBVersion(backend string, db *sql.DB) {
	var m *migrate.Migrate

	switch backend {
	case "sqlite3":
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			modbuslog.Fatal(err)
		}
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			modbuslog.Fatal(err)
		}
		m, err = migrate.NewWithInstance("iofs", d, "sqlite3", driver)
		if err != nil {
			modbuslog.Fatal(err)
		}
	case "mysql":
		driver, err := mysql.WithInstance(db, &mysql.Config{})
		if err != nil {
			modbuslog.Fatal(err)
		}
		d, err := iofs.New(migrationFiles, "migrations/mysql")
		if err != nil {
			modbuslog.Fatal(err)
		}
		m, err = migrate.NewWithInstance("iofs", d, "mysql", driver)
		if err != nil {
			modbuslog.Fatal(err)
		}
	default:
		modbuslog.Fatalf("unsupported database driver: %s", backend)
	}

	v, _, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			modbuslog.Warn("database has no migration version yet, run -init-db")
			return
		}
		modbuslog.Fatal(err)
	}

	if v < supportedVersion {
		modbuslog.Warnf("unsupported database version %d, need %d; run modbusd -init-db", v, supportedVersion)
		os.Exit(0)
	}

	if v > supportedVersion {
		modbuslog.Warnf("database version %d is newer than supported %d", v, supportedVersion)
		os.Exit(0)
	}
}

// MigrateDB applies all pending migrations for the given driver/DSN.
func MigrateDB(backend string, dsn string) error {
	var m *migrate.Migrate
	var err error

	switch backend {
	case "sqlite3":
		d, ferr := iofs.New(migrationFiles, "migrations/sqlite3")
		if ferr != nil {
			return ferr
		}
		m, err = migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", dsn))
	case "mysql":
		d, ferr := iofs.New(migrationFiles, "migrations/mysql")
		if ferr != nil {
			return ferr
		}
		m, err = migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("mysql://%s?multiStatements=true", dsn))
	default:
		return fmt.Errorf("unsupported database driver: %s", backend)
	}
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
