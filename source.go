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
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/theirish81/locmerge/parsers"
)

// Fragment is one input file contributing a subtree of the final document.
type Fragment struct {
	// Path is slash-separated and relative to the source root.
	Path   string
	Format parsers.Format
	Data   []byte
}

// FragmentSource lists and loads fragment files.
type FragmentSource interface {
	// List returns the relative paths of the fragments matching format, in processing order.
	List(ctx context.Context, format parsers.Format) ([]string, error)
	LoadFragment(path string) (Fragment, error)
}

// ignoredDirs are never descended into.
var ignoredDirs = []string{"node_modules"}

// ignoredName reports whether a walk skips an entry. Hidden entries are always skipped.
func ignoredName(name string, dir bool) bool {
	return strings.HasPrefix(name, ".") || (dir && slices.Contains(ignoredDirs, name))
}

// ignoredPath applies the directory walk rules to a slash-separated relative path.
func ignoredPath(path string) bool {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if ignoredName(seg, i < len(segments)-1) {
			return true
		}
	}
	return false
}

// DirSource reads fragments from a directory tree.
type DirSource struct {
	root string
}

// NewDirSource creates a new DirSource.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// List walks the directory in lexical order. Hidden files and directories are skipped.
func (s *DirSource) List(ctx context.Context, format parsers.Format) ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", s.root, ErrNotDirectory)
	}
	paths := make([]string, 0)
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == s.root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if ignoredName(name, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoredName(name, false) || !d.Type().IsRegular() || !format.Matches(name) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}

// LoadFragment reads a fragment from the file system.
func (s *DirSource) LoadFragment(path string) (Fragment, error) {
	format, ok := parsers.DetectFormat(path)
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s", parsers.ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Path: path, Format: format, Data: data}, nil
}

// BytesSource serves fragments from memory.
type BytesSource struct {
	files map[string][]byte
}

// NewBytesSource creates a BytesSource from a map of relative paths to file contents.
func NewBytesSource(files map[string][]byte) *BytesSource {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &BytesSource{files: files}
}

// SetFragment adds or replaces a fragment.
func (s *BytesSource) SetFragment(path string, data []byte) {
	s.files[filepath.ToSlash(path)] = data
}

// List returns the matching paths sorted the way a directory walk would visit them, skipping what the walk would
// skip.
func (s *BytesSource) List(_ context.Context, format parsers.Format) ([]string, error) {
	paths := lo.Filter(lo.Keys(s.files), func(item string, _ int) bool {
		return !ignoredPath(item) && format.Matches(item)
	})
	slices.SortFunc(paths, compareWalkOrder)
	return paths, nil
}

func (s *BytesSource) LoadFragment(path string) (Fragment, error) {
	data, ok := s.files[path]
	if !ok {
		return Fragment{}, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	format, ok := parsers.DetectFormat(path)
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s", parsers.ErrUnsupportedFormat, path)
	}
	return Fragment{Path: path, Format: format, Data: data}, nil
}

// compareWalkOrder orders slash paths the way filepath.WalkDir visits them: entries of a directory in lexical order,
// each directory fully visited before its next sibling.
func compareWalkOrder(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return strings.Compare(as[i], bs[i])
		}
	}
	return len(as) - len(bs)
}
