// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	// maxRuleLength bounds trust rule expressions to prevent DoS via
	// excessively long expressions.
	maxRuleLength = 10000

	// ruleCostLimit bounds the runtime cost of rule evaluation.
	ruleCostLimit = 1000000
)

// ruleEnv holds the lazily-initialized CEL environment shared by all trust
// rule evaluations. The variable set is fixed, so one environment serves
// every policy.
var ruleEnv = struct {
	once sync.Once
	env  *cel.Env
	err  error
}{}

func getRuleEnv() (*cel.Env, error) {
	ruleEnv.once.Do(func() {
		ruleEnv.env, ruleEnv.err = cel.NewEnv(
			cel.Variable("identity", cel.StringType),
			cel.Variable("fingerprint", cel.StringType),
			cel.Variable("valid", cel.BoolType),
		)
	})
	return ruleEnv.env, ruleEnv.err
}

// CheckRule verifies that a trust rule expression is syntactically and
// semantically valid and evaluates to a boolean. Use it to validate
// policies at configuration time instead of at first verification.
func CheckRule(rule string) error {
	_, err := compileRule(rule)
	return err
}

// compileRule compiles a trust rule into an evaluable program.
func compileRule(rule string) (cel.Program, error) {
	if len(rule) > maxRuleLength {
		return nil, fmt.Errorf("trust rule length %d exceeds maximum of %d", len(rule), maxRuleLength)
	}

	env, err := getRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues.Err() != nil {
		return nil, fmt.Errorf("invalid trust rule %q: %w", rule, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("trust rule %q must evaluate to bool, got %s", rule, ast.OutputType())
	}

	program, err := env.Program(ast, cel.CostLimit(ruleCostLimit))
	if err != nil {
		return nil, fmt.Errorf("compiling trust rule %q: %w", rule, err)
	}
	return program, nil
}

// evalRule evaluates a trust rule against one signature's attributes.
func evalRule(rule, identity, fingerprint string, valid bool) (bool, error) {
	program, err := compileRule(rule)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(map[string]any{
		"identity":    identity,
		"fingerprint": fingerprint,
		"valid":       valid,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating trust rule %q: %w", rule, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("trust rule %q returned %T, expected bool", rule, out.Value())
	}
	return result, nil
}
