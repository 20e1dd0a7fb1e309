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
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/theirish81/locmerge/util"
)

// Tree is a decoded localization document: nested map[string]any whose leaves are strings (or other scalars) and
// whose containers are map[string]any and []any.
type Tree = map[string]any

// DeepMerge merges src into dst. Mappings present on both sides are merged key by key; in every other case the value
// from src replaces the one in dst (arrays are leaves). Values taken from src are copied, so dst never aliases src.
// It returns the dotted keys whose previous value was replaced by a different one.
func DeepMerge(dst, src Tree) []string {
	return deepMerge(dst, src, "")
}

func deepMerge(dst, src map[string]any, prefix string) []string {
	overwritten := make([]string, 0)
	for _, k := range sortedKeys(src) {
		v := src[k]
		key := joinKey(prefix, k)
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				overwritten = append(overwritten, deepMerge(dv, sv, key)...)
				continue
			}
		}
		if existing, ok := dst[k]; ok && !reflect.DeepEqual(existing, v) {
			overwritten = append(overwritten, key)
		}
		dst[k] = util.CloneValue(v)
	}
	return overwritten
}

// MergeAt merges src into the mapping found at path inside dst, creating the intermediate mappings as needed. A
// non-mapping value sitting on the path is replaced and reported like any other overwrite.
func MergeAt(dst Tree, path []string, src Tree) []string {
	node, overwritten := descend(dst, path)
	return append(overwritten, deepMerge(node, src, joinKey(path...))...)
}

// MergeLanguage merges a single-language document into dst, turning every string leaf `key: value` into
// `key: {lang: value}`. Arrays are merged element by element, so that the n-th element of each language ends up in
// the same slot. Structural mismatches between languages are errors.
func MergeLanguage(dst Tree, src Tree, lang string) ([]string, error) {
	return mergeLanguage(dst, src, lang, "")
}

func mergeLanguage(dst, src map[string]any, lang string, prefix string) ([]string, error) {
	overwritten := make([]string, 0)
	for _, k := range sortedKeys(src) {
		key := joinKey(prefix, k)
		switch v := src[k].(type) {
		case map[string]any:
			child, err := languageSlot(dst, k, key)
			if err != nil {
				return overwritten, err
			}
			res, err := mergeLanguage(child, v, lang, key)
			overwritten = append(overwritten, res...)
			if err != nil {
				return overwritten, err
			}
		case []any:
			if _, ok := dst[k]; !ok {
				dst[k] = make([]any, 0, len(v))
			}
			list, ok := dst[k].([]any)
			if !ok {
				return overwritten, fmt.Errorf("%w at key %q: expected a list", ErrStructureMismatch, key)
			}
			for len(list) < len(v) {
				list = append(list, map[string]any{})
			}
			for i, item := range v {
				itemKey := key + "[" + strconv.Itoa(i) + "]"
				slot, ok := list[i].(map[string]any)
				if !ok {
					slot = map[string]any{}
					list[i] = slot
				}
				switch it := item.(type) {
				case map[string]any:
					res, err := mergeLanguage(slot, it, lang, itemKey)
					overwritten = append(overwritten, res...)
					if err != nil {
						return overwritten, err
					}
				case string:
					if _, exists := slot[lang]; exists {
						overwritten = append(overwritten, joinKey(itemKey, lang))
					}
					slot[lang] = it
				default:
					return overwritten, fmt.Errorf("%w: unsupported array element type %T at key %q", ErrInvalidLeaf, item, itemKey)
				}
			}
			dst[k] = list
		default:
			leaf, err := languageSlot(dst, k, key)
			if err != nil {
				return overwritten, err
			}
			if _, exists := leaf[lang]; exists {
				overwritten = append(overwritten, joinKey(key, lang))
			}
			leaf[lang] = v
		}
	}
	return overwritten, nil
}

// languageSlot returns the mapping stored at dst[k], creating it when missing.
func languageSlot(dst map[string]any, k string, key string) (map[string]any, error) {
	if _, ok := dst[k]; !ok {
		dst[k] = map[string]any{}
	}
	slot, ok := dst[k].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w at key %q: expected a mapping, found %T", ErrStructureMismatch, key, dst[k])
	}
	return slot, nil
}

// descend walks (and builds) the chain of mappings named by path.
func descend(dst Tree, path []string) (map[string]any, []string) {
	overwritten := make([]string, 0)
	node := dst
	for i, seg := range path {
		child, ok := node[seg].(map[string]any)
		if !ok {
			if _, exists := node[seg]; exists {
				overwritten = append(overwritten, joinKey(path[:i+1]...))
			}
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	return node, overwritten
}

// Flatten returns the dotted-key view of a tree. Array elements are addressed as key[i].
func Flatten(t Tree) map[string]any {
	out := make(map[string]any)
	flatten(t, "", out)
	return out
}

func flatten(node any, prefix string, out map[string]any) {
	switch t := node.(type) {
	case map[string]any:
		if len(t) == 0 && prefix != "" {
			out[prefix] = t
		}
		for k, v := range t {
			flatten(v, joinKey(prefix, k), out)
		}
	case []any:
		if len(t) == 0 {
			out[prefix] = t
		}
		for i, v := range t {
			flatten(v, prefix+"["+strconv.Itoa(i)+"]", out)
		}
	default:
		out[prefix] = t
	}
}

// ValidateTree checks that every leaf is a string. With allowScalars numbers, booleans and null are accepted too.
func ValidateTree(node any, allowScalars bool) error {
	return validateTree(node, "", allowScalars)
}

func validateTree(node any, prefix string, allowScalars bool) error {
	switch t := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			if err := validateTree(t[k], joinKey(prefix, k), allowScalars); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range t {
			if err := validateTree(v, prefix+"["+strconv.Itoa(i)+"]", allowScalars); err != nil {
				return err
			}
		}
	case string:
	case nil, bool, int, int64, uint64, float64:
		if !allowScalars {
			return fmt.Errorf("%w, got %s at key %q", ErrInvalidLeaf, typeName(node), prefix)
		}
	default:
		return fmt.Errorf("%w, got %s at key %q", ErrInvalidLeaf, typeName(node), prefix)
	}
	return nil
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func joinKey(parts ...string) string {
	return strings.Join(lo.Filter(parts, func(item string, _ int) bool { return item != "" }), ".")
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
