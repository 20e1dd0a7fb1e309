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

package scriptengines

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJavascriptEngine_Evaluate(t *testing.T) {
	engine := NewJavascriptEngine(time.Second)
	t.Run("export default", func(t *testing.T) {
		res, err := engine.Evaluate(context.Background(), "a.js", "export default { a: { b: `x` } };")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": map[string]any{"b": "x"}}, res)
	})
	t.Run("module.exports", func(t *testing.T) {
		res, err := engine.Evaluate(context.Background(), "a.js", `module.exports = { a: { b: "x" } }`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": map[string]any{"b": "x"}}, res)
	})
	t.Run("template literal with interpolation and a constant", func(t *testing.T) {
		code := "const brand = 'Acme';\nconst messages = { title: `Welcome to ${brand}` };\nexport default messages;\n"
		res, err := engine.Evaluate(context.Background(), "a.js", code)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"title": "Welcome to Acme"}, res)
	})
	t.Run("nothing exported", func(t *testing.T) {
		res, err := engine.Evaluate(context.Background(), "a.js", `module.exports = undefined`)
		assert.ErrorIs(t, err, ErrNoExports)
		assert.Nil(t, res)
	})
	t.Run("syntax error", func(t *testing.T) {
		_, err := engine.Evaluate(context.Background(), "a.js", `export default { a: `)
		assert.Error(t, err)
	})
	t.Run("runaway script is interrupted", func(t *testing.T) {
		_, err := NewJavascriptEngine(50*time.Millisecond).Evaluate(context.Background(), "loop.js", `while (true) {}`)
		assert.Error(t, err)
	})
}

func TestJavascriptEngine_RunCode(t *testing.T) {
	engine := NewJavascriptEngine(time.Second)
	res, err := engine.RunCode(context.Background(), `({ greeting: args.en.hello + "!" })`, map[string]any{
		"en": map[string]any{"hello": "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"greeting": "Hello!"}, res)
}
