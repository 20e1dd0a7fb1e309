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
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/scriptengines"
	"github.com/theirish81/locmerge/util"
)

func TestTransformer_Transform(t *testing.T) {
	logger := log.NewDiscardLogger()
	engine := scriptengines.NewJavascriptEngine(time.Second)
	doc := map[string]any{
		"admin": map[string]any{"title": "Admin", "users": map[string]any{"title": "Users"}},
		"hello": "Hello",
	}
	t.Run("JSONATA reshapes the document", func(t *testing.T) {
		tx := Transformer{
			Name:    "foo",
			Jsonata: util.StrPtr(`{"admin_title": admin.title, "users_title": admin.users.title}`),
		}
		res, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Nil(t, err)
		assert.Equal(t, map[string]any{"admin_title": "Admin", "users_title": "Users"}, res)
	})
	t.Run("JMESPath selects a subtree", func(t *testing.T) {
		tx := Transformer{
			Name:     "foo",
			JmesPath: util.StrPtr(`admin`),
		}
		res, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Nil(t, err)
		assert.Equal(t, map[string]any{"title": "Admin", "users": map[string]any{"title": "Users"}}, res)
	})
	t.Run("expr sees the document as args", func(t *testing.T) {
		tx := Transformer{
			Name: "foo",
			Expr: util.StrPtr(`{"greeting": args.hello + "!"}`),
		}
		res, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Nil(t, err)
		assert.Equal(t, map[string]any{"greeting": "Hello!"}, res)
	})
	t.Run("code runs in the script engine", func(t *testing.T) {
		tx := Transformer{
			Name: "foo",
			Code: util.StrPtr(`({ keys: Object.keys(args).sort().join(",") })`),
		}
		res, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Nil(t, err)
		assert.Equal(t, map[string]any{"keys": "admin,hello"}, res)
	})
	t.Run("code without an engine", func(t *testing.T) {
		tx := Transformer{Name: "foo", Code: util.StrPtr(`args`)}
		_, err := tx.Transform(context.Background(), doc, nil, logger)
		assert.Error(t, err)
	})
	t.Run("steps chain in order", func(t *testing.T) {
		tx := Transformer{
			Name:     "foo",
			JmesPath: util.StrPtr(`admin.users`),
			Expr:     util.StrPtr(`{"t": args.title}`),
		}
		res, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Nil(t, err)
		assert.Equal(t, map[string]any{"t": "Users"}, res)
	})
	t.Run("invalid JSONATA", func(t *testing.T) {
		tx := Transformer{Name: "foo", Jsonata: util.StrPtr(`{`)}
		_, err := tx.Transform(context.Background(), doc, engine, logger)
		assert.Error(t, err)
	})
}

func TestTransformers_Transform(t *testing.T) {
	logger := log.NewDiscardLogger()
	engine := scriptengines.NewJavascriptEngine(time.Second)
	tree := Tree{"hello": "Hello", "bye": "Bye"}

	res, err := Transformers{}.Transform(context.Background(), tree, engine, logger)
	require.NoError(t, err)
	assert.Equal(t, tree, res)

	res, err = Transformers{
		{Name: "pick", JmesPath: util.StrPtr(`{hi: hello}`)},
		{Name: "wrap", Jsonata: util.StrPtr(`{"common": $}`)},
	}.Transform(context.Background(), tree, engine, logger)
	require.NoError(t, err)
	assert.Equal(t, Tree{"common": map[string]any{"hi": "Hello"}}, res)

	_, err = Transformers{{Name: "list", Expr: util.StrPtr(`[args.hello]`)}}.Transform(context.Background(), tree, engine, logger)
	assert.ErrorIs(t, err, ErrNotMapping)

	_, err = Transformers{{Name: "broken", JmesPath: util.StrPtr(`[`)}}.Transform(context.Background(), tree, engine, logger)
	assert.ErrorContains(t, err, "transformer broken")
}

func TestTransformer_Decode(t *testing.T) {
	tx := Transformer{}
	require.NoError(t, mapstructure.Decode(map[string]any{
		"name":     "pick",
		"jmesPath": "admin",
	}, &tx))
	assert.Equal(t, "pick", tx.Name)
	require.NotNil(t, tx.JmesPath)
	assert.Equal(t, "admin", *tx.JmesPath)
	assert.Nil(t, tx.Jsonata)
}
