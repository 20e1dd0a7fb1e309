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

package locmerge

import (
	"context"
	"fmt"

	"github.com/blues/jsonata-go"
	"github.com/jmespath/go-jmespath"
	"github.com/theirish81/locmerge/evaluators"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/util"
)

// CodeRunner runs a script with `args` bound to the input data.
type CodeRunner interface {
	RunCode(ctx context.Context, code string, args any) (any, error)
}

// Transformer reshapes the merged document before it's written, using a Jsonata expression, a JMESPath query, an
// expr-lang expression or a script. When more than one is set they run in that order, each feeding the next.
type Transformer struct {
	Name     string  `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Jsonata  *string `yaml:"jsonata,omitempty" json:"jsonata,omitempty" mapstructure:"jsonata"`
	JmesPath *string `yaml:"jmesPath,omitempty" json:"jmesPath,omitempty" mapstructure:"jmesPath"`
	Expr     *string `yaml:"expr,omitempty" json:"expr,omitempty" mapstructure:"expr"`
	Code     *string `yaml:"code,omitempty" json:"code,omitempty" mapstructure:"code"`
}

type Transformers []Transformer

// Transform applies the transformation to the given data
func (t Transformer) Transform(ctx context.Context, data any, runner CodeRunner, logger *log.StreamerLogger) (any, error) {
	logger.Debug(log.NewEvent(log.StartEventType, log.TransformerComponent).WithTransformer(t.Name))
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if t.Jsonata != nil {
		script, err := jsonata.Compile(*t.Jsonata)
		if err != nil {
			return nil, err
		}
		data, err = script.Eval(data)
		if err != nil {
			return nil, err
		}
	}
	if t.JmesPath != nil {
		var err error
		data, err = jmespath.Search(*t.JmesPath, data)
		if err != nil {
			return nil, err
		}
	}
	if t.Expr != nil {
		var err error
		data, err = evaluators.EvaluateExpression(*t.Expr, evaluators.NewArgsScope(data))
		if err != nil {
			return nil, err
		}
	}
	if t.Code != nil {
		if runner == nil {
			return nil, fmt.Errorf("transformer %s: no script engine available", t.Name)
		}
		var err error
		if data, err = runner.RunCode(ctx, *t.Code, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Transform runs all the transformers in order. The final result must still be a mapping.
func (t Transformers) Transform(ctx context.Context, tree Tree, runner CodeRunner, logger *log.StreamerLogger) (Tree, error) {
	if len(t) == 0 {
		return tree, nil
	}
	var tmp any = tree
	var err error
	for _, tx := range t {
		tmp, err = tx.Transform(ctx, tmp, runner, logger)
		if err != nil {
			return nil, fmt.Errorf("transformer %s: %w", tx.Name, err)
		}
	}
	out, ok := util.NormalizeValue(tmp).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: transformers produced %T", ErrNotMapping, tmp)
	}
	return out, nil
}
