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
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/parsers"
)

// uploadRequest carries fragments to merge, base64 encoded and keyed by their relative path.
type uploadRequest struct {
	Files map[string]string `json:"files"`
}

type mergeResponse struct {
	Tree       locmerge.Tree        `json:"tree"`
	Files      []string             `json:"files"`
	Skipped    []string             `json:"skipped"`
	Failed     []string             `json:"failed"`
	Collisions []locmerge.Collision `json:"collisions"`
	Errors     []string             `json:"errors,omitempty"`
}

type server struct {
	inputDir string
	settings locmerge.Settings
	log      *slog.Logger
}

var errorHandler = func(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	httpErr := &echo.HTTPError{}
	fileErr := &locmerge.FileError{}
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		err = fmt.Errorf("%v", httpErr.Message)
	case errors.As(err, &fileErr):
		status = http.StatusUnprocessableEntity
	}
	_ = c.JSON(status, echo.Map{"error": err.Error()})
}

func newServeCmd() *cobra.Command {
	opts := mergeOptions{}
	port := 0
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merged translations over HTTP",
		Long: `
Run a web server that merges the input directory on every request, so edits to the fragments show up immediately.
  GET  /translations   the merged document (?format=yaml or ?format=md for other encodings)
  GET  /keys           the sorted dotted keys
  GET  /events         the merge events, as server-sent events
  POST /merge          merges the fragments in the request body: {"files": {"path/en.yaml": "<base64>"}}
                       with --keep-going the partial result is returned, failures listed under "errors"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = cfg.Port
			}
			settings := opts.settings(parsers.FormatAuto)
			if err := settings.Validate(); err != nil {
				return err
			}
			e := newServer(opts.inputDir, settings, newSlogLogger())
			return e.Start(fmt.Sprintf(":%d", port))
		},
	}
	opts.bind(cmd.Flags(), true)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from configuration, 8080)")
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}

func newServer(inputDir string, settings locmerge.Settings, logger *slog.Logger) *echo.Echo {
	s := &server{inputDir: inputDir, settings: settings, log: logger}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	addRequestLoggerMiddleware(e, logger)
	e.GET("/translations", s.translations)
	e.GET("/keys", s.keys)
	e.GET("/events", s.events)
	e.POST("/merge", s.merge)
	return e
}

func (s *server) run(ctx context.Context, source locmerge.FragmentSource, logger *log.StreamerLogger) (*locmerge.Result, error) {
	merger, err := locmerge.NewMerger(source, s.settings, locmerge.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return merger.Merge(ctx)
}

func (s *server) translations(c echo.Context) error {
	res, err := s.run(c.Request().Context(), locmerge.NewDirSource(s.inputDir), log.NewStreamerLogger(s.log, nil, log.InfoChannelLevel))
	if err != nil {
		return err
	}
	switch c.QueryParam("format") {
	case "yaml":
		data, err := locmerge.Encode(res.Tree, locmerge.OutputYAML)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	case "md":
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(locmerge.RenderOutline(res.Tree)))
	case "", "json":
		data, err := locmerge.Encode(res.Tree, locmerge.OutputJSON)
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, data)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "unsupported format "+c.QueryParam("format"))
}

func (s *server) keys(c echo.Context) error {
	res, err := s.run(c.Request().Context(), locmerge.NewDirSource(s.inputDir), log.NewStreamerLogger(s.log, nil, log.InfoChannelLevel))
	if err != nil {
		return err
	}
	keys := lo.Keys(locmerge.Flatten(res.Tree))
	slices.Sort(keys)
	return c.JSON(http.StatusOK, keys)
}

func (s *server) events(c echo.Context) error {
	logger := log.NewStreamerLogger(s.log, make(chan log.Event, 100), log.DebugChannelLevel)
	streamer := NewStreamer(c, logger)
	streamer.Start()
	final := log.NewEvent(log.EndEventType, log.ServerComponent).WithMessage("merge finished")
	res, err := s.run(c.Request().Context(), locmerge.NewDirSource(s.inputDir), logger)
	if res != nil {
		final = final.WithArg("keys", len(res.Tree)).WithArg("files", len(res.Files))
	}
	if err != nil {
		final = final.WithErr(err)
		final.Type = log.ErrorEventType
	}
	if err := streamer.Finish(final); err != nil {
		s.log.Error("cannot stream events", "err", err)
	}
	return nil
}

func (s *server) merge(c echo.Context) error {
	req := uploadRequest{}
	if err := c.Bind(&req); err != nil {
		return err
	}
	source, err := filesMapToSource(req.Files)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := s.run(c.Request().Context(), source, log.NewStreamerLogger(s.log, nil, log.InfoChannelLevel))
	if res == nil {
		return err
	}
	return c.JSON(http.StatusOK, mergeResponse{
		Tree:       res.Tree,
		Files:      res.Files,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
		Collisions: res.Collisions,
		Errors:     errorMessages(err),
	})
}

// errorMessages lists the messages of a possibly joined error.
func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return lo.Map(joined.Unwrap(), func(item error, _ int) string {
			return item.Error()
		})
	}
	return []string{err.Error()}
}

// filesMapToSource converts a map of base64 encoded files to a BytesSource.
func filesMapToSource(files map[string]string) (*locmerge.BytesSource, error) {
	source := locmerge.NewBytesSource(nil)
	for k, v := range files {
		if err := checkTraversalPath(k); err != nil {
			return nil, err
		}
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		source.SetFragment(k, decoded)
	}
	return source, nil
}

// addRequestLoggerMiddleware adds a middleware that logs each request.
func addRequestLoggerMiddleware(e *echo.Echo, log *slog.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		HandleError: true, // forwards error to the global error handler, so it can decide appropriate status code
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				log.LogAttrs(context.Background(), slog.LevelInfo, "REQUEST",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
				)
			} else {
				log.LogAttrs(context.Background(), slog.LevelError, "REQUEST_ERROR",
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.String("err", v.Error.Error()),
				)
			}
			return nil
		},
	}))
}
