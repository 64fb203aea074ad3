// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package alarm

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/modbusd/modbusd/internal/repository"
)

// compiledRule pairs a rule definition with its compiled condition program.
// Exactly one of def.Expression or (def.Operator, def.Threshold) is set;
// both compile to the same vm.Program shape and are run identically.
type compiledRule struct {
	def       *repository.AlarmRule
	threshold float64
	program   *vm.Program
}

func compileRule(def *repository.AlarmRule) (*compiledRule, error) {
	var src string
	switch {
	case def.Expression != nil && *def.Expression != "":
		src = *def.Expression
	case def.Operator != nil && def.Threshold != nil:
		if !validOperator(*def.Operator) {
			return nil, fmt.Errorf("alarm rule %d (%s): unknown operator %q", def.ID, def.Name, *def.Operator)
		}
		src = fmt.Sprintf("value %s threshold", *def.Operator)
	default:
		return nil, fmt.Errorf("alarm rule %d (%s): neither expression nor operator/threshold set", def.ID, def.Name)
	}

	program, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("alarm rule %d (%s): %w", def.ID, def.Name, err)
	}

	th := 0.0
	if def.Threshold != nil {
		th = *def.Threshold
	}
	return &compiledRule{def: def, threshold: th, program: program}, nil
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==", "!=":
		return true
	default:
		return false
	}
}

// eval runs the compiled condition against value. NaN never satisfies any
// operator or expression, checked here rather than inside expr so a
// deadband expression like "abs(value - threshold) > tolerance" does not
// need to special-case NaN itself.
func (r *compiledRule) eval(value float64) (bool, error) {
	if value != value { // NaN
		return false, nil
	}
	env := map[string]any{"value": value, "threshold": r.threshold}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}
