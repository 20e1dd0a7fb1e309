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
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/theirish81/locmerge/parsers"
	"golang.org/x/text/language"
)

// Layout decides where in the output tree each fragment lands.
type Layout string

const (
	// LayoutNested merges each fragment at the key path made of its directory segments.
	LayoutNested Layout = "nested"
	// LayoutFile is LayoutNested plus the file name (without extension) as the innermost key.
	LayoutFile Layout = "file"
	// LayoutFlat merges every fragment at the root.
	LayoutFlat Layout = "flat"
	// LayoutLanguage treats the file name as a language code: leaves become {lang: value}.
	LayoutLanguage Layout = "language"
)

func Layouts() []Layout {
	return []Layout{LayoutNested, LayoutFile, LayoutFlat, LayoutLanguage}
}

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	l := Layout(strings.ToLower(strings.TrimSpace(s)))
	if lo.Contains(Layouts(), l) {
		return l, nil
	}
	return "", fmt.Errorf("unsupported layout %q", s)
}

// Settings configure a merge.
type Settings struct {
	Format             parsers.Format `validate:"required,oneof=yaml json js auto"`
	Layout             Layout         `validate:"omitempty,oneof=nested file flat language"`
	AllowScalars       bool
	KeepGoing          bool
	FailOnCollision    bool
	CanonicalLanguages bool
	DisableEval        bool
	// Filter is an expr-lang boolean expression deciding whether a fragment is merged.
	Filter       string
	Workers      int           `validate:"gte=0,lte=256"`
	EvalTimeout  time.Duration `validate:"gte=0"`
	Transformers Transformers  `validate:"dive"`
}

var validate = validator.New()

// Validate checks the settings and fills in defaults.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if s.Layout == "" {
		s.Layout = LayoutNested
	}
	if s.Workers == 0 {
		s.Workers = 4
	}
	return nil
}

// KeyPath derives where a fragment is merged from its slash-separated relative path.
func KeyPath(relPath string, layout Layout) []string {
	if layout == LayoutFlat {
		return []string{}
	}
	dir, file := path.Split(relPath)
	segments := lo.Filter(strings.Split(dir, "/"), func(item string, _ int) bool {
		return item != "" && item != "."
	})
	if layout == LayoutFile {
		segments = append(segments, Stem(file))
	}
	return segments
}

// Stem returns the file name without directory and extension.
func Stem(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// CanonicalLanguage turns a language-looking file stem into a canonical BCP 47 tag (en_us -> en-US). Stems that don't
// parse are returned unchanged.
func CanonicalLanguage(stem string) (string, bool) {
	tag, err := language.Parse(strings.ReplaceAll(stem, "_", "-"))
	if err != nil {
		return stem, false
	}
	return tag.String(), true
}
