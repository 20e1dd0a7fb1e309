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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/theirish81/locmerge/log"
)

var (
	debug      bool
	configPath string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   filepath.Base(os.Args[0]),
		Short: "merges localization fragments into a single translations file",
		Long: `
locmerge walks a directory of localization fragments (YAML, JSON/JSON5 or JavaScript modules) and deep-merges them
into one nested document. Directory names become keys, and when two fragments define the same key, the one visited
last wins.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default "+defaultConfigFile+")")

	for _, c := range mergeCommands() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// newSlogLogger returns the process logger: text on stderr at debug level with --debug, the default logger otherwise.
func newSlogLogger() *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.Default()
}

func newLogger() *log.StreamerLogger {
	level := log.InfoChannelLevel
	if debug {
		level = log.DebugChannelLevel
	}
	return log.NewStreamerLogger(newSlogLogger(), nil, level)
}
