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

package parsers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/theirish81/locmerge/scriptengines"
	"github.com/theirish81/locmerge/util"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatJS   Format = "js"
	FormatAuto Format = "auto"
)

var ErrUnsupportedFormat = errors.New("unsupported format")
var ErrTopLevelNotMapping = errors.New("top-level value must be a mapping")

// extensions maps each concrete format to the file extensions it claims.
var extensions = map[Format][]string{
	FormatYAML: {".yaml", ".yml"},
	FormatJSON: {".json", ".json5"},
	FormatJS:   {".js", ".mjs", ".cjs"},
}

// Formats returns the concrete formats, in a stable order.
func Formats() []Format {
	return []Format{FormatYAML, FormatJSON, FormatJS}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == FormatAuto || lo.Contains(Formats(), f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extensions returns the extensions claimed by the format. Auto claims all of them.
func (f Format) Extensions() []string {
	if f == FormatAuto {
		return lo.FlatMap(Formats(), func(item Format, _ int) []string { return extensions[item] })
	}
	return extensions[f]
}

// Matches tells whether the file name carries one of the format's extensions.
func (f Format) Matches(filename string) bool {
	return lo.Contains(f.Extensions(), strings.ToLower(filepath.Ext(filename)))
}

// DetectFormat returns the concrete format of a file, judging by its extension.
func DetectFormat(filename string) (Format, bool) {
	for _, f := range Formats() {
		if f.Matches(filename) {
			return f, true
		}
	}
	return "", false
}

// Parser turns the raw content of a fragment file into a nested mapping.
type Parser interface {
	Parse(ctx context.Context, name string, data []byte) (map[string]any, error)
}

type Options struct {
	// DisableEval turns off the JavaScript engine fallback, leaving only the literal grammar.
	DisableEval bool
	EvalTimeout time.Duration
}

// ForFormat returns the parser for a concrete format.
func ForFormat(format Format, opts Options) (Parser, error) {
	switch format {
	case FormatYAML:
		return NewYAMLParser(), nil
	case FormatJSON:
		return NewJSONParser(), nil
	case FormatJS:
		if opts.DisableEval {
			return NewJSParser(nil), nil
		}
		return NewJSParser(scriptengines.NewJavascriptEngine(opts.EvalTimeout)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// toMapping checks the decoded document is a mapping. A nil document (empty file) is an empty mapping.
func toMapping(doc any) (map[string]any, error) {
	if doc == nil {
		return map[string]any{}, nil
	}
	switch t := util.NormalizeValue(doc).(type) {
	case map[string]any:
		return t, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrTopLevelNotMapping, doc)
	}
}
