// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

// Hooks satisfies the sqlhooks.Hooks interface.
type Hooks struct{}

// Before logs the query with its args and stashes the start time in ctx.
func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	modbuslog.Debugf("SQL query %s %q", query, args)
	return context.WithValue(ctx, ctxKeyBegin{}, time.Now()), nil
}

// After logs the elapsed time recorded by Before.
func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	begin := ctx.Value(ctxKeyBegin{}).(time.Time)
	modbuslog.Debugf("took: %s", time.Since(begin))
	return ctx, nil
}

type ctxKeyBegin struct{}
