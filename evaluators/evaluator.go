/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package evaluators

import (
	"errors"
	"path"
	"strings"

	"github.com/expr-lang/expr"
)

const (
	PathAttr     = "path"
	DirAttr      = "dir"
	NameAttr     = "name"
	StemAttr     = "stem"
	ExtAttr      = "ext"
	FormatAttr   = "format"
	SegmentsAttr = "segments"
	ArgsAttr     = "args"
)

// EvalScope is the scope for evaluating expressions.
type EvalScope map[string]any

// NewFileScope builds the scope a fragment filter is evaluated against.
func NewFileScope(relPath string, format string) EvalScope {
	dir := path.Dir(relPath)
	if dir == "." {
		dir = ""
	}
	name := path.Base(relPath)
	ext := path.Ext(name)
	segments := make([]any, 0)
	for _, s := range strings.Split(dir, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return EvalScope{
		PathAttr:     relPath,
		DirAttr:      dir,
		NameAttr:     name,
		StemAttr:     strings.TrimSuffix(name, ext),
		ExtAttr:      ext,
		FormatAttr:   format,
		SegmentsAttr: segments,
	}
}

// NewArgsScope builds the scope of an expression transformer.
func NewArgsScope(args any) EvalScope {
	return EvalScope{ArgsAttr: args}
}

// EvaluateExpression evaluates an expression with the given scope.
func EvaluateExpression(expression string, scope EvalScope) (any, error) {
	c, err := expr.Compile(expression, expr.Env(map[string]any(scope)))
	if err != nil {
		return nil, err
	}
	return expr.Run(c, map[string]any(scope))
}

// EvaluateBooleanExpression evaluates a boolean expression with the given scope.
func EvaluateBooleanExpression(expression string, scope EvalScope) (bool, error) {
	c, err := expr.Compile(expression, expr.Env(map[string]any(scope)))
	if err != nil {
		return false, err
	}
	res, err := expr.Run(c, map[string]any(scope))
	if err != nil {
		return false, err
	}
	if b, ok := res.(bool); ok {
		return b, nil
	}
	return false, errors.New("return type is not a boolean")
}

// CheckFileFilter compiles a filter expression against a sample file scope, so typos surface before any file is read.
func CheckFileFilter(expression string) error {
	_, err := expr.Compile(expression, expr.Env(map[string]any(NewFileScope("dir/file.json", "json"))), expr.AsBool())
	return err
}
