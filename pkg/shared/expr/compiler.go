/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// Program is an expression compiled once and evaluated against every message.
type Program struct {
	expression string
	program    *vm.Program
}

// Compile compiles the expression. The raw message is available as `payload` in the expression, along with the
// json, int, float and string conversions and the sprig functions. See examples in compiler_test.go
func Compile(expression string) (*Program, error) {
	env := getFuncMap(map[string]interface{}{root: ""})
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %s", expression, err)
	}
	return &Program{expression: expression, program: program}, nil
}

// String returns the source of the expression.
func (p *Program) String() string {
	return p.expression
}

// Run evaluates the expression against the message.
func (p *Program) Run(msg []byte) (interface{}, error) {
	env := getFuncMap(map[string]interface{}{root: string(msg)})
	result, err := expr.Run(p.program, env)
	if err != nil {
		return nil, fmt.Errorf("unable to execute compiled program '%s': %v", p.expression, err)
	}
	return result, nil
}

// EvalString evaluates the expression and formats the result as a string.
func (p *Program) EvalString(msg []byte) (string, error) {
	result, err := p.Run(msg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("expression '%s' evaluated to nil", p.expression)
	}
	return fmt.Sprintf("%v", result), nil
}

// EvalFloat evaluates the expression and converts a numeric result to float64.
func (p *Program) EvalFloat(msg []byte) (float64, error) {
	result, err := p.Run(msg)
	if err != nil {
		return 0, err
	}
	switch v := result.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unable to cast expression result '%v' to float", result)
	}
}

// EvalBool evaluates the expression which is expected to return a bool.
func (p *Program) EvalBool(msg []byte) (bool, error) {
	result, err := p.Run(msg)
	if err != nil {
		return false, err
	}
	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return resultBool, nil
}
