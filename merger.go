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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/theirish81/locmerge/evaluators"
	"github.com/theirish81/locmerge/log"
	"github.com/theirish81/locmerge/parsers"
	"github.com/theirish81/locmerge/scriptengines"
	"github.com/theirish81/locmerge/util"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a merge.
type Result struct {
	Tree Tree
	// Files are the fragments merged into Tree, in merge order.
	Files []string
	// Skipped are the fragments excluded by the filter.
	Skipped []string
	// Failed are the fragments that could not be merged. Only populated with KeepGoing.
	Failed     []string
	Collisions []Collision
}

// MergerOptions are options for the merger.
type MergerOptions struct {
	logger *log.StreamerLogger
}

// MergerOption is an option for the merger.
type MergerOption func(*MergerOptions)

// WithLogger sets the logger for the merger.
func WithLogger(logger *log.StreamerLogger) MergerOption {
	return func(o *MergerOptions) {
		o.logger = logger
	}
}

// Merger combines the fragments of a source into a single tree.
type Merger struct {
	source   FragmentSource
	settings Settings
	logger   *log.StreamerLogger
	engine   *scriptengines.JavascriptEngine
	parsers  map[parsers.Format]parsers.Parser
	mx       sync.Mutex
}

type parsedFragment struct {
	path   string
	format parsers.Format
	tree   Tree
	err    error
}

// NewMerger validates the settings and creates a new merger.
func NewMerger(source FragmentSource, settings Settings, options ...MergerOption) (*Merger, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Filter != "" {
		if err := evaluators.CheckFileFilter(settings.Filter); err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
	}
	opts := MergerOptions{
		logger: log.NewDiscardLogger(),
	}
	for _, opt := range options {
		opt(&opts)
	}
	return &Merger{
		source:   source,
		settings: settings,
		logger:   opts.logger,
		engine:   scriptengines.NewJavascriptEngine(settings.EvalTimeout),
		parsers:  make(map[parsers.Format]parsers.Parser),
	}, nil
}

// Settings returns the validated settings, defaults included.
func (m *Merger) Settings() Settings {
	return m.settings
}

// Merge lists, parses and merges all the fragments. Fragments are parsed concurrently but merged one at a time in
// listing order, so the last fragment listed wins any leaf collision.
//
// Without KeepGoing the first failing fragment (in listing order) aborts the merge and its *FileError is returned.
// With KeepGoing failing fragments are skipped, the rest is merged, and the joined errors are returned together with
// the partial result.
func (m *Merger) Merge(ctx context.Context) (*Result, error) {
	m.logger.Info(log.NewEvent(log.StartEventType, log.WalkerComponent).WithMessage("collecting fragments").
		WithFormat(string(m.settings.Format)))
	paths, err := m.source.List(ctx, m.settings.Format)
	if err != nil {
		m.logger.Err(log.NewEvent(log.ErrorEventType, log.WalkerComponent).WithErr(err))
		return nil, err
	}

	result := &Result{
		Tree:       Tree{},
		Files:      make([]string, 0),
		Skipped:    make([]string, 0),
		Failed:     make([]string, 0),
		Collisions: make([]Collision, 0),
	}
	errs := make([]error, 0)
	fail := func(err error) error {
		fe := &FileError{}
		if errors.As(err, &fe) {
			result.Failed = append(result.Failed, fe.Path)
			m.logger.Err(log.NewEvent(log.ErrorEventType, componentForOp(fe.Op)).WithFile(fe.Path).WithErr(fe.Err).
				WithMessage("cannot merge fragment"))
		}
		if !m.settings.KeepGoing {
			return err
		}
		errs = append(errs, err)
		return nil
	}

	selected := make([]string, 0, len(paths))
	for _, p := range paths {
		keep, err := m.accept(p)
		if err != nil {
			if err := fail(err); err != nil {
				return nil, err
			}
			continue
		}
		if !keep {
			result.Skipped = append(result.Skipped, p)
			m.logger.Debug(log.NewEvent(log.SkipEventType, log.WalkerComponent).WithFile(p).WithMessage("filtered out"))
			continue
		}
		selected = append(selected, p)
	}

	parsed, err := m.parseAll(ctx, selected)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]string)
	for _, pf := range parsed {
		if pf.err != nil {
			if err := fail(pf.err); err != nil {
				return nil, err
			}
			continue
		}
		tree, collisions, err := m.mergeFragment(result.Tree, pf, owners)
		if err != nil {
			if err := fail(err); err != nil {
				return nil, err
			}
			continue
		}
		result.Tree = tree
		result.Files = append(result.Files, pf.path)
		result.Collisions = append(result.Collisions, collisions...)
	}

	if len(m.settings.Transformers) > 0 {
		tree, err := m.settings.Transformers.Transform(ctx, result.Tree, m.engine, m.logger)
		if err != nil {
			m.logger.Err(log.NewEvent(log.ErrorEventType, log.TransformerComponent).WithErr(err))
			return nil, err
		}
		result.Tree = tree
	}

	m.logger.Info(log.NewEvent(log.ResultEventType, log.MergerComponent).WithMessage("merge complete").
		WithArgs(map[string]any{
			"files":      len(result.Files),
			"skipped":    len(result.Skipped),
			"failed":     len(result.Failed),
			"collisions": len(result.Collisions),
			"keys":       len(result.Tree),
		}))
	return result, errors.Join(errs...)
}

// accept evaluates the filter against a fragment path.
func (m *Merger) accept(relPath string) (bool, error) {
	if m.settings.Filter == "" {
		return true, nil
	}
	format, _ := parsers.DetectFormat(relPath)
	keep, err := evaluators.EvaluateBooleanExpression(m.settings.Filter, evaluators.NewFileScope(relPath, string(format)))
	if err != nil {
		return false, newFileError(relPath, OpFilter, err)
	}
	return keep, nil
}

// parseAll loads, parses and validates the fragments concurrently. Failures are stored in each parsedFragment, not
// returned, so that they can be reported in listing order.
func (m *Merger) parseAll(ctx context.Context, paths []string) ([]parsedFragment, error) {
	parsed := make([]parsedFragment, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = m.parseFragment(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (m *Merger) parseFragment(ctx context.Context, relPath string) parsedFragment {
	pf := parsedFragment{path: relPath}
	fragment, err := m.source.LoadFragment(relPath)
	if err != nil {
		pf.err = newFileError(relPath, OpRead, err)
		return pf
	}
	pf.format = fragment.Format
	parser, err := m.parserFor(fragment.Format)
	if err != nil {
		pf.err = newFileError(relPath, OpParse, err)
		return pf
	}
	tree, err := parser.Parse(ctx, relPath, fragment.Data)
	if err != nil {
		pf.err = newFileError(relPath, OpParse, err)
		return pf
	}
	if err := ValidateTree(tree, m.settings.AllowScalars); err != nil {
		pf.err = newFileError(relPath, OpValidate, err)
		return pf
	}
	m.logger.Debug(log.NewEvent(log.LoadEventType, log.ParserComponent).WithFile(relPath).
		WithFormat(string(fragment.Format)).WithArg("keys", len(tree)))
	pf.tree = tree
	return pf
}

// parserFor returns (and caches) the parser of a format.
func (m *Merger) parserFor(format parsers.Format) (parsers.Parser, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if p, ok := m.parsers[format]; ok {
		return p, nil
	}
	p, err := parsers.ForFormat(format, parsers.Options{
		DisableEval: m.settings.DisableEval,
		EvalTimeout: m.settings.EvalTimeout,
	})
	if err != nil {
		return nil, err
	}
	m.parsers[format] = p
	return p, nil
}

// mergeFragment merges one parsed fragment into the accumulator according to the layout, and turns the overwritten
// keys into collisions. owners tracks the last fragment that wrote each key. It returns the tree to carry on with.
// With KeepGoing the fragment is merged into a copy of acc, so a fragment failing half-way leaves acc untouched.
func (m *Merger) mergeFragment(acc Tree, pf parsedFragment, owners map[string]string) (Tree, []Collision, error) {
	if m.settings.KeepGoing {
		acc = util.CloneValue(acc).(map[string]any)
	}
	path := KeyPath(pf.path, m.settings.Layout)
	var overwritten []string
	if m.settings.Layout == LayoutLanguage {
		lang := Stem(pf.path)
		if m.settings.CanonicalLanguages {
			if canonical, ok := CanonicalLanguage(lang); ok {
				lang = canonical
			} else {
				m.logger.Warn(log.NewEvent(log.GenericEventType, log.MergerComponent).WithFile(pf.path).
					WithMessage("file name is not a language tag, keeping it as-is"))
			}
		}
		node, parentOverwrites := descend(acc, path)
		res, err := MergeLanguage(node, pf.tree, lang)
		if err != nil {
			return nil, nil, newFileError(pf.path, OpMerge, err)
		}
		prefix := joinKey(path...)
		overwritten = append(parentOverwrites, lo.Map(res, func(item string, _ int) string {
			return joinKey(prefix, item)
		})...)
	} else {
		overwritten = MergeAt(acc, path, pf.tree)
	}

	collisions := make([]Collision, 0, len(overwritten))
	for _, key := range overwritten {
		c := Collision{Key: key, Previous: ownerOf(owners, key), Current: pf.path}
		collisions = append(collisions, c)
		m.logger.Warn(log.NewEvent(log.CollisionEventType, log.MergerComponent).WithKey(key).WithFile(pf.path).
			WithMessage("key overwritten").WithArg("previous", c.Previous))
		if m.settings.FailOnCollision {
			return nil, collisions, newFileError(pf.path, OpMerge, fmt.Errorf("%w: %s", ErrCollision, c))
		}
	}
	recordOwners(owners, joinKey(path...), pf.tree, pf.path)
	return acc, collisions, nil
}

// recordOwners marks every key of the fragment, and the path leading to it, as written by file.
func recordOwners(owners map[string]string, prefix string, tree Tree, file string) {
	parts := strings.Split(prefix, ".")
	for i := range parts {
		if p := joinKey(parts[:i+1]...); p != "" {
			owners[p] = file
		}
	}
	for key := range Flatten(tree) {
		full := joinKey(prefix, key)
		owners[full] = file
		// intermediate mappings
		for i := 0; i < len(full); i++ {
			if full[i] == '.' || full[i] == '[' {
				owners[full[:i]] = file
			}
		}
	}
}

// ownerOf finds who last wrote key. Language layout keys carry a trailing language segment, so the lookup falls back
// to the closest ancestor.
func ownerOf(owners map[string]string, key string) string {
	for k := key; k != ""; {
		if owner, ok := owners[k]; ok {
			return owner
		}
		i := strings.LastIndexAny(k, ".[")
		if i < 0 {
			break
		}
		k = k[:i]
	}
	return ""
}

func componentForOp(op string) log.EventComponent {
	switch op {
	case OpRead, OpFilter:
		return log.WalkerComponent
	case OpParse, OpValidate:
		return log.ParserComponent
	default:
		return log.MergerComponent
	}
}
