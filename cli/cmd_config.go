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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/util"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Prints the current configuration",
		Long:  "Prints the effective configuration: defaults, overridden by the configuration file and LOCMERGE_* variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	force := false
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Writes a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			data, err := yaml.Marshal(starterConfig())
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func starterConfig() Config {
	c := defaultConfig()
	c.Jobs = map[string]JobConfig{
		"web": {
			InputDir: "locales",
			Output:   defaultOutput,
			Format:   "auto",
			Layout:   string(locmerge.LayoutNested),
			Filter:   `dir != "drafts"`,
		},
		"mobile": {
			InputDir:           "mobile/strings",
			Output:             "build/mobile.json",
			Format:             "yaml",
			Layout:             string(locmerge.LayoutLanguage),
			CanonicalLanguages: true,
			Timeout:            util.StrPtr("30s"),
			Transformers: locmerge.Transformers{
				{Name: "drop-internal", Jsonata: util.StrPtr(`$sift($, function($v, $k) {$k != "internal"})`)},
			},
		},
	}
	return c
}
