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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/parsers"
	"github.com/theirish81/locmerge/util"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		c, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultConfig(), c)
	})
	t.Run("file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
workers: 2
eval_timeout: 5s
jobs:
  web:
    input_dir: locales
    layout: file
    eval_timeout: 2s
    transformers:
      - name: pick
        jmesPath: admin
`), 0o644))
		t.Setenv("LOCMERGE_WORKERS", "7")
		t.Setenv("LOCMERGE_PORT", "9090")
		c, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, c.Workers)
		assert.Equal(t, 9090, c.Port)
		assert.Equal(t, 5*time.Second, c.EvalTimeout)
		assert.Equal(t, 3, c.WriteAttempts)
		require.Contains(t, c.Jobs, "web")
		assert.Equal(t, "locales", c.Jobs["web"].InputDir)
		require.NotNil(t, c.Jobs["web"].Timeout)
		assert.Equal(t, "2s", *c.Jobs["web"].Timeout)
		require.Len(t, c.Jobs["web"].Transformers, 1)
		require.NotNil(t, c.Jobs["web"].Transformers[0].JmesPath)
		assert.Equal(t, "admin", *c.Jobs["web"].Transformers[0].JmesPath)
	})
	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0o644))
		_, err := loadConfig(path)
		assert.Error(t, err)
	})
}

func TestJobConfig_ToSettings(t *testing.T) {
	c := defaultConfig()
	c.EvalTimeout = time.Second
	settings, err := JobConfig{
		InputDir:        "locales",
		Format:          "yaml",
		Layout:          "language",
		KeepGoing:       true,
		FailOnCollision: true,
		Filter:          `ext == ".yaml"`,
	}.toSettings(c)
	require.NoError(t, err)
	assert.Equal(t, locmerge.Settings{
		Format:          parsers.FormatYAML,
		Layout:          locmerge.LayoutLanguage,
		KeepGoing:       true,
		FailOnCollision: true,
		Filter:          `ext == ".yaml"`,
		Workers:         4,
		EvalTimeout:     time.Second,
	}, settings)

	settings, err = JobConfig{InputDir: "locales"}.toSettings(c)
	require.NoError(t, err)
	assert.Equal(t, parsers.FormatAuto, settings.Format)
	assert.Equal(t, locmerge.LayoutNested, settings.Layout)

	settings, err = JobConfig{InputDir: "locales", Timeout: util.StrPtr("250ms")}.toSettings(c)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, settings.EvalTimeout)
	settings, err = JobConfig{InputDir: "locales", Timeout: util.StrPtr("soon")}.toSettings(c)
	require.NoError(t, err)
	assert.Equal(t, time.Second, settings.EvalTimeout)

	_, err = JobConfig{}.toSettings(c)
	assert.Error(t, err)
	_, err = JobConfig{InputDir: "locales", OutputFormat: "xml"}.toSettings(c)
	assert.Error(t, err)
	_, err = JobConfig{InputDir: "locales", Layout: "tree"}.toSettings(c)
	assert.Error(t, err)
}

func TestFlagValues(t *testing.T) {
	l := layoutValue("")
	require.NoError(t, l.Set("FILE"))
	assert.Equal(t, "file", l.String())
	assert.Error(t, l.Set("tree"))

	f := formatValue("")
	require.NoError(t, f.Set("js"))
	assert.Equal(t, "js", f.String())
	assert.Error(t, f.Set("toml"))

	o := outputFormatValue("")
	require.NoError(t, o.Set("YAML"))
	assert.Equal(t, "yaml", o.String())
	assert.Error(t, o.Set("xml"))
}

func TestCheckTraversalPath(t *testing.T) {
	assert.NoError(t, checkTraversalPath("admin/en.yaml"))
	assert.Error(t, checkTraversalPath("../en.yaml"))
	assert.Error(t, checkTraversalPath("/etc/en.yaml"))
}
