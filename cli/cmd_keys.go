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
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/parsers"
)

func newKeysCmd() *cobra.Command {
	opts := mergeOptions{}
	values := false
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Print the dotted keys of the merged document",
		Long: `Merge the fragments and print every leaf key of the result in dotted form (menu.file.open), sorted. Array
elements are printed as key[i].`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, mergeErr := runMerge(cmd.Context(), opts.inputDir, opts.settings(parsers.FormatAuto), newLogger())
			if res == nil {
				return mergeErr
			}
			flat := locmerge.Flatten(res.Tree)
			keys := lo.Keys(flat)
			slices.Sort(keys)
			for _, k := range keys {
				if values {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", k, flat[k])
				} else {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			}
			return mergeErr
		},
	}
	opts.bind(cmd.Flags(), true)
	cmd.Flags().BoolVar(&values, "values", false, "Print key=value instead of the bare keys")
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}
