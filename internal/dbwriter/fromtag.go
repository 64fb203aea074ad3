// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dbwriter

import (
	"github.com/modbusd/modbusd/internal/parser"
	"github.com/modbusd/modbusd/internal/repository"
)

// PushBatch enqueues every tag in a parser.Batch individually; the writer's
// own flush loop is what groups them back into bulk inserts, so the
// parser-to-writer hop stays a plain per-tag fan-out.
func (w *Writer) PushBatch(b parser.Batch) {
	for _, t := range b.Tags {
		w.Push(repository.TagValue{TagID: t.ID, TS: t.Ts, Value: t.Value})
	}
}
