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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/parsers"
	"github.com/theirish81/locmerge/util"
)

// mergeOptions are the flags shared by every command that performs a merge.
type mergeOptions struct {
	inputDir        string
	format          formatValue
	layout          layoutValue
	allowScalars    bool
	keepGoing       bool
	failOnCollision bool
	noEval          bool
	canonicalLang   bool
	filter          string
	workers         int
	jmesPath        string
	jsonata         string
}

// outputOptions are the flags of the commands that write the merged document.
type outputOptions struct {
	output       string
	outputFormat outputFormatValue
}

func (o *mergeOptions) bind(flags *pflag.FlagSet, withFormat bool) {
	flags.StringVarP(&o.inputDir, "input-dir", "i", "", "Directory containing the localization fragments")
	if withFormat {
		flags.Var(&o.format, "input-format", "Input format (yaml, json, js or auto)")
	}
	o.layout = layoutValue(locmerge.LayoutNested)
	flags.Var(&o.layout, "layout", "Where fragments land in the tree (nested, file, flat or language)")
	flags.BoolVar(&o.allowScalars, "allow-scalars", false, "Accept numbers, booleans and null as leaf values")
	flags.BoolVar(&o.keepGoing, "keep-going", false, "Skip fragments that fail instead of aborting, exit non-zero at the end")
	flags.BoolVar(&o.failOnCollision, "fail-on-collision", false, "Abort when a fragment overrides a key set by another one")
	flags.BoolVar(&o.noEval, "no-eval", false, "Only accept plain JavaScript literals, never run module code")
	flags.BoolVar(&o.canonicalLang, "canonical-lang", false, "Canonicalize language file names (en_us -> en-US) in the language layout")
	flags.StringVar(&o.filter, "filter", "", "Expression selecting the fragments to merge, e.g. 'dir != \"drafts\"'")
	flags.IntVar(&o.workers, "workers", 0, "Number of fragments parsed in parallel (default from configuration)")
	flags.StringVar(&o.jmesPath, "jmespath", "", "JMESPath query applied to the merged document")
	flags.StringVar(&o.jsonata, "jsonata", "", "JSONata expression applied to the merged document")
}

func (o *outputOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.output, "output", "o", defaultOutput, "Output file, - for standard output")
	o.outputFormat = outputFormatValue(locmerge.OutputJSON)
	flags.VarP(&o.outputFormat, "format", "f", "Output format (json, yaml or md for a Markdown outline)")
}

// settings turns the flags into merge settings.
func (o *mergeOptions) settings(format parsers.Format) locmerge.Settings {
	if o.format != "" {
		format = parsers.Format(o.format)
	}
	settings := locmerge.Settings{
		Format:             format,
		Layout:             locmerge.Layout(o.layout),
		AllowScalars:       o.allowScalars,
		KeepGoing:          o.keepGoing,
		FailOnCollision:    o.failOnCollision,
		CanonicalLanguages: o.canonicalLang,
		DisableEval:        o.noEval,
		Filter:             o.filter,
		Workers:            o.workers,
		EvalTimeout:        cfg.EvalTimeout,
		Transformers:       make(locmerge.Transformers, 0),
	}
	if settings.Workers == 0 {
		settings.Workers = cfg.Workers
	}
	if o.jsonata != "" {
		settings.Transformers = append(settings.Transformers, locmerge.Transformer{Name: "jsonata", Jsonata: util.StrPtr(o.jsonata)})
	}
	if o.jmesPath != "" {
		settings.Transformers = append(settings.Transformers, locmerge.Transformer{Name: "jmespath", JmesPath: util.StrPtr(o.jmesPath)})
	}
	return settings
}

// mergeCommands returns one command per input format, plus `merge` that picks the parser by extension.
func mergeCommands() []*cobra.Command {
	return []*cobra.Command{
		newMergeCmd("merge-yaml", parsers.FormatYAML, "Merge YAML fragments (.yaml, .yml)"),
		newMergeCmd("merge-json", parsers.FormatJSON, "Merge JSON and JSON5 fragments (.json, .json5)"),
		newMergeCmd("merge-js", parsers.FormatJS, "Merge JavaScript modules exporting an object (.js, .mjs, .cjs)"),
		newMergeCmd("merge", parsers.FormatAuto, "Merge fragments of any supported format, chosen by extension"),
	}
}

func newMergeCmd(use string, format parsers.Format, short string) *cobra.Command {
	opts := mergeOptions{}
	out := outputOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.
Fragments are visited in lexical order, directories included, and deep-merged. Directory names become nested keys
(see --layout). When two fragments set the same key, the one visited last wins and a warning is logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			res, mergeErr := runMerge(cmd.Context(), opts.inputDir, opts.settings(format), logger)
			if res == nil {
				return mergeErr
			}
			report, err := writeResult(cmd.Context(), res, out.output, locmerge.OutputFormat(out.outputFormat), logger)
			if err != nil {
				return errors.Join(mergeErr, err)
			}
			_, _ = fmt.Fprintln(reportWriter(cmd, out.output), report)
			return mergeErr
		},
	}
	opts.bind(cmd.Flags(), format == parsers.FormatAuto)
	out.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}

// runMerge merges the fragments of a directory. With KeepGoing a partial result may come with an error.
func runMerge(ctx context.Context, inputDir string, settings locmerge.Settings, logger *log.StreamerLogger) (*locmerge.Result, error) {
	merger, err := locmerge.NewMerger(locmerge.NewDirSource(inputDir), settings, locmerge.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return merger.Merge(ctx)
}

// writeResult encodes and writes the merged document, returning the line to report to the user.
func writeResult(ctx context.Context, res *locmerge.Result, output string, format locmerge.OutputFormat,
	logger *log.StreamerLogger) (string, error) {
	data, err := locmerge.Encode(res.Tree, format)
	if err != nil {
		return "", err
	}
	if err := locmerge.WriteFile(ctx, output, data, cfg.WriteAttempts); err != nil {
		logger.Err(log.NewEvent(log.ErrorEventType, log.WriterComponent).WithFile(output).WithErr(err))
		return "", err
	}
	logger.Debug(log.NewEvent(log.EndEventType, log.WriterComponent).WithFile(output).WithFormat(string(format)).
		WithArg("bytes", len(data)))
	return fmt.Sprintf("wrote %s (%d top-level keys)", output, len(res.Tree)), nil
}

// reportWriter keeps standard output clean when the document itself goes there.
func reportWriter(cmd *cobra.Command, output string) io.Writer {
	if output == locmerge.StdoutPath {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}
