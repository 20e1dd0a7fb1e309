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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/locmerge/parsers"
)

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout(" Language ")
	require.NoError(t, err)
	assert.Equal(t, LayoutLanguage, l)
	_, err = ParseLayout("tree")
	assert.Error(t, err)
}

func TestKeyPath(t *testing.T) {
	testCases := []struct {
		path     string
		layout   Layout
		expected []string
	}{
		{"common.yaml", LayoutNested, []string{}},
		{"admin/users/list.yaml", LayoutNested, []string{"admin", "users"}},
		{"admin/users/list.yaml", LayoutFile, []string{"admin", "users", "list"}},
		{"common.yaml", LayoutFile, []string{"common"}},
		{"admin/users/list.yaml", LayoutFlat, []string{}},
		{"admin/en.yaml", LayoutLanguage, []string{"admin"}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %s", tc.layout, tc.path), func(t *testing.T) {
			assert.Equal(t, tc.expected, KeyPath(tc.path, tc.layout))
		})
	}
}

func TestCanonicalLanguage(t *testing.T) {
	lang, ok := CanonicalLanguage("en_us")
	assert.True(t, ok)
	assert.Equal(t, "en-US", lang)

	lang, ok = CanonicalLanguage("zh-hant-tw")
	assert.True(t, ok)
	assert.Equal(t, "zh-Hant-TW", lang)

	lang, ok = CanonicalLanguage("messages")
	assert.False(t, ok)
	assert.Equal(t, "messages", lang)
}

func TestSettings_Validate(t *testing.T) {
	s := Settings{Format: parsers.FormatJS}
	require.NoError(t, s.Validate())
	assert.Equal(t, LayoutNested, s.Layout)
	assert.Equal(t, 4, s.Workers)

	s = Settings{Format: parsers.FormatJS, Workers: 1000}
	assert.Error(t, s.Validate())

	s = Settings{Format: parsers.FormatYAML, Transformers: Transformers{{Jsonata: nil}}}
	assert.Error(t, s.Validate())
}

func TestFileError(t *testing.T) {
	err := error(newFileError("admin/users.yaml", OpParse, parsers.ErrTopLevelNotMapping))
	assert.Equal(t, "admin/users.yaml: parse: top-level value must be a mapping", err.Error())
	assert.ErrorIs(t, err, parsers.ErrTopLevelNotMapping)
	wrapped := fmt.Errorf("merge failed: %w", err)
	fe := &FileError{}
	assert.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, "admin/users.yaml", fe.Path)

	c := Collision{Key: "menu.open", Previous: "a.yaml", Current: "b.yaml"}
	assert.Equal(t, "menu.open: b.yaml overrides a.yaml", c.String())
}
