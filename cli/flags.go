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

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/parsers"
)

// layoutValue is a pflag.Value accepting only the known layouts.
type layoutValue locmerge.Layout

var _ pflag.Value = (*layoutValue)(nil)

func (l *layoutValue) String() string { return string(*l) }

func (l *layoutValue) Set(s string) error {
	layout, err := locmerge.ParseLayout(s)
	if err != nil {
		return err
	}
	*l = layoutValue(layout)
	return nil
}

func (l *layoutValue) Type() string { return "layout" }

// formatValue is a pflag.Value for the input format.
type formatValue parsers.Format

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Set(s string) error {
	format, err := parsers.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatValue(format)
	return nil
}

func (f *formatValue) Type() string { return "format" }

// outputFormatValue is a pflag.Value for the output encoding.
type outputFormatValue locmerge.OutputFormat

var _ pflag.Value = (*outputFormatValue)(nil)

func (o *outputFormatValue) String() string { return string(*o) }

func (o *outputFormatValue) Set(s string) error {
	switch f := locmerge.OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case locmerge.OutputJSON, locmerge.OutputYAML, locmerge.OutputMarkdown:
		*o = outputFormatValue(f)
		return nil
	}
	return fmt.Errorf("unsupported output format %q", s)
}

func (o *outputFormatValue) Type() string { return "json|yaml|md" }
