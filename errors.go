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
)

var ErrNotDirectory = errors.New("not a directory")
var ErrInvalidLeaf = errors.New("leaf values must be strings")
var ErrStructureMismatch = errors.New("structure mismatch")
var ErrCollision = errors.New("key collision")
var ErrNotMapping = errors.New("document is not a mapping")

// File operations reported by FileError.
const (
	OpRead     = "read"
	OpFilter   = "filter"
	OpParse    = "parse"
	OpValidate = "validate"
	OpMerge    = "merge"
)

// FileError ties a failure to the fragment file that caused it.
type FileError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func newFileError(path string, op string, err error) *FileError {
	return &FileError{Path: path, Op: op, Err: err}
}

// Collision records that the value at Key, last written by Previous, was replaced by a value coming from Current.
type Collision struct {
	Key      string `json:"key" yaml:"key"`
	Previous string `json:"previous" yaml:"previous"`
	Current  string `json:"current" yaml:"current"`
}

func (c Collision) String() string {
	return fmt.Sprintf("%s: %s overrides %s", c.Key, c.Current, c.Previous)
}
