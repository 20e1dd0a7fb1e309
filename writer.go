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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirish81/locmerge/util"
	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
	// OutputMarkdown is a read-only outline for reviewing a merge.
	OutputMarkdown OutputFormat = "md"
)

// StdoutPath makes WriteFile print to standard output.
const StdoutPath = "-"

// Encode serializes the tree. JSON output is indented by two spaces, keeps non-ASCII and HTML characters verbatim
// and ends with a newline. Keys come out sorted in both formats.
func Encode(tree Tree, format OutputFormat) ([]byte, error) {
	switch format {
	case OutputYAML:
		return yaml.Marshal(tree)
	case OutputMarkdown:
		return []byte(RenderOutline(tree)), nil
	case OutputJSON, "":
		buf := bytes.Buffer{}
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tree); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

// WriteFile writes data to dst through a temporary file in the same directory, so readers never see a half-written
// document. The parent directory is created when missing. Failed attempts are retried.
func WriteFile(ctx context.Context, dst string, data []byte, attempts int) error {
	if dst == StdoutPath {
		_, err := os.Stdout.Write(data)
		return err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return util.Retry(ctx, attempts, 200*time.Millisecond, func() error {
		tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
		if err != nil {
			return err
		}
		defer func() {
			_ = os.Remove(tmp.Name())
		}()
		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := os.Chmod(tmp.Name(), 0o644); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), dst)
	})
}
