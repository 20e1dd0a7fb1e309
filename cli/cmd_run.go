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
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/util"
	"golang.org/x/sync/errgroup"
)

// jobReport is the outcome of a single job.
type jobReport struct {
	line string
	err  error
}

func newRunCmd() *cobra.Command {
	parallel := false
	cmd := &cobra.Command{
		Use:   "run [job...]",
		Short: "Run the merge jobs declared in the configuration file",
		Long: `Run the merge jobs declared under "jobs" in the configuration file (` + defaultConfigFile + ` by default).
Without arguments, every job runs in name order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := selectJobs(args)
			if err != nil {
				return err
			}
			logger := newLogger()
			reports := util.NewSafeMap[string, jobReport]()
			g, ctx := errgroup.WithContext(cmd.Context())
			if !parallel {
				g.SetLimit(1)
			}
			for _, name := range names {
				g.Go(func() error {
					line, err := runJob(ctx, name, logger)
					reports.Store(name, jobReport{line: line, err: err})
					return nil
				})
			}
			_ = g.Wait()

			errs := make([]error, 0)
			for _, name := range names {
				report, _ := reports.Load(name)
				if report.line != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, report.line)
				}
				if report.err != nil {
					errs = append(errs, fmt.Errorf("job %s: %w", name, report.err))
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Run the jobs concurrently")
	return cmd
}

// selectJobs validates the requested job names. No names means all of them, sorted.
func selectJobs(args []string) ([]string, error) {
	if len(cfg.Jobs) == 0 {
		return nil, errors.New("no jobs declared in the configuration")
	}
	if len(args) == 0 {
		names := lo.Keys(cfg.Jobs)
		slices.Sort(names)
		return names, nil
	}
	if missing := lo.Filter(args, func(item string, _ int) bool {
		_, ok := cfg.Jobs[item]
		return !ok
	}); len(missing) > 0 {
		return nil, fmt.Errorf("unknown jobs: %v", missing)
	}
	return lo.Uniq(args), nil
}

func runJob(ctx context.Context, name string, logger *log.StreamerLogger) (string, error) {
	job := cfg.Jobs[name]
	settings, err := job.toSettings(cfg)
	if err != nil {
		return "", err
	}
	logger.Info(log.NewEvent(log.StartEventType, log.AppComponent).WithMessage("running job").WithArg("job", name))
	res, mergeErr := runMerge(ctx, job.InputDir, settings, logger)
	if res == nil {
		return "", mergeErr
	}
	line, err := writeResult(ctx, res, job.output(), job.outputFormat(), logger)
	if err != nil {
		return "", errors.Join(mergeErr, err)
	}
	return line, mergeErr
}
