// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks instance against the embedded configuration schema. It
// has no side effects, so it can back a standalone -validate-config flag
// as well as Init's own pre-decode check.
func Validate(instance io.Reader) error {
	sch, err := jsonschema.CompileString("modbusd-config.json", string(schemaSource()))
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v any
	if err := json.NewDecoder(instance).Decode(&v); err != nil {
		return fmt.Errorf("config: parsing instance: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}
