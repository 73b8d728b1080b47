// Package build orchestrates a full site build: it discovers source
// documents, routes each through the first matching rule, runs the rule's
// compiler chain, and writes routed outputs to the output directory.
// Documents are compiled on demand, so a chain reading another document's
// snapshot triggers that document's compilation first.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bookforge/bookforge/internal/config"
	"github.com/bookforge/bookforge/internal/epub"
	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/fields"
	"github.com/bookforge/bookforge/internal/logfields"
	"github.com/bookforge/bookforge/internal/metadata"
	"github.com/bookforge/bookforge/internal/pipeline"
	"github.com/bookforge/bookforge/internal/rules"
	"github.com/bookforge/bookforge/internal/state"
	"github.com/bookforge/bookforge/internal/styles"
)

// Snapshot names shared between the default rules and the builder.
const (
	// SnapshotContent is the rendered body of a document before page
	// templates are applied. Listings and the book assembly read it.
	SnapshotContent = "content"

	// SnapshotCSS is a compiled stylesheet fragment. The builder
	// concatenates all fragments into the final stylesheet.
	SnapshotCSS = "css"
)

// StylesheetRoute is where the assembled stylesheet is emitted.
const StylesheetRoute = "css/style.css"

type docStatus int

const (
	statusPending docStatus = iota
	statusRunning
	statusDone
	statusFailed
	statusDraft
)

// Builder runs one build over a source tree. A Builder is single-use:
// create a fresh one per build.
type Builder struct {
	cfg       *config.Config
	store     *metadata.Store
	snapshots *pipeline.Snapshots
	table     *rules.Table
	env       *pipeline.Env

	buildState    *state.Store
	includeDrafts bool

	// chapterPattern selects the documents assembled into the book,
	// set by the rule table.
	chapterPattern rules.Pattern

	paths  []string
	routes map[string]string
	status map[string]docStatus
	items  map[string]*pipeline.Item
	errs   map[string]error
}

// New creates a builder for the given configuration with the default
// rule table.
func New(cfg *config.Config) *Builder {
	b := &Builder{
		cfg:       cfg,
		store:     metadata.NewStore(cfg.Source.Root),
		snapshots: pipeline.NewSnapshots(),
		status:    make(map[string]docStatus),
		items:     make(map[string]*pipeline.Item),
		errs:      make(map[string]error),
		routes:    make(map[string]string),
	}
	b.env = &pipeline.Env{
		Store:     b.store,
		Snapshots: b.snapshots,
		Ensure:    b.ensure,
		RouteOf:   b.RouteOf,
	}
	b.table = DefaultRules(b)
	return b
}

// WithTable replaces the rule table (for testing and custom sites).
func (b *Builder) WithTable(table *rules.Table) *Builder {
	b.table = table
	return b
}

// WithState enables fingerprint-based build skipping.
func (b *Builder) WithState(s *state.Store) *Builder {
	b.buildState = s
	return b
}

// WithIncludeDrafts includes documents marked draft in the build.
func (b *Builder) WithIncludeDrafts(include bool) *Builder {
	b.includeDrafts = include
	return b
}

// Env returns the shared pipeline environment.
func (b *Builder) Env() *pipeline.Env { return b.env }

// RouteOf reports the output route assigned to a document.
func (b *Builder) RouteOf(id string) (string, bool) {
	route, ok := b.routes[id]
	return route, ok
}

// Prepare discovers source files and assigns routes. It is idempotent
// and implied by Run.
func (b *Builder) Prepare() error {
	if b.paths != nil {
		return nil
	}
	paths, err := Discover(b.cfg.Source.Root, b.cfg.Output.Directory)
	if err != nil {
		return err
	}
	b.paths = paths
	for _, path := range paths {
		rule, ok := b.table.Match(path)
		if !ok {
			continue
		}
		if route, routed := rule.Route(path); routed {
			b.routes[path] = route
		}
	}
	return nil
}

// CheckOverlaps reports discovered documents matched by more than one
// rule. Used by the check command; an overlap is a warning, not an error.
func (b *Builder) CheckOverlaps() ([]rules.Overlap, error) {
	if err := b.Prepare(); err != nil {
		return nil, err
	}
	return b.table.Overlaps(b.paths), nil
}

// CanSkip reports whether every discovered document's fingerprint matches
// the build-state database, meaning a rebuild would produce identical
// output. Only meaningful when a state store is attached.
func (b *Builder) CanSkip(ctx context.Context) (bool, error) {
	if b.buildState == nil {
		return false, nil
	}
	if err := b.Prepare(); err != nil {
		return false, err
	}
	for _, path := range b.paths {
		if _, ok := b.table.Match(path); !ok {
			continue
		}
		doc, err := b.store.Load(path)
		if err != nil {
			return false, nil
		}
		same, err := b.buildState.Unchanged(ctx, path, state.FingerprintDocument(doc.Meta, doc.Body))
		if err != nil {
			return false, err
		}
		if !same {
			return false, nil
		}
	}
	return true, nil
}

// Run executes the full build and returns its report. Per-document
// failures are collected in the report rather than aborting the build.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		BuildID:   uuid.New().String(),
		StartedAt: time.Now(),
	}
	log := slog.With(logfields.BuildID(report.BuildID))
	log.Info("Starting build", logfields.Path(b.cfg.Source.Root))

	if err := b.Prepare(); err != nil {
		return nil, err
	}
	for _, overlap := range b.table.Overlaps(b.paths) {
		log.Warn("Rule overlap, declaration order decides",
			logfields.Document(overlap.Path),
			logfields.Rule(overlap.Applied),
			"shadowed", overlap.Shadowy)
	}

	if b.cfg.Output.Clean {
		if err := os.RemoveAll(b.cfg.Output.Directory); err != nil {
			return nil, berrors.WrapError(err, berrors.CategoryFileSystem, "clean output directory")
		}
	}

	for _, path := range b.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := b.table.Match(path); !ok {
			report.Excluded++
			continue
		}
		if err := b.ensure(ctx, path); err != nil {
			if b.status[path] == statusDraft {
				continue
			}
			report.Failed++
			report.Failures = append(report.Failures, Failure{DocumentID: path, Err: err})
			log.Error("Document failed", logfields.Document(path), logfields.Error(err))
		}
	}

	for _, path := range b.paths {
		switch b.status[path] {
		case statusDone:
			report.Built++
		case statusDraft:
			report.Drafts++
		}
	}

	if err := b.writeOutputs(); err != nil {
		return nil, err
	}
	if err := b.writeStylesheet(ctx); err != nil {
		report.Failed++
		report.Failures = append(report.Failures, Failure{DocumentID: StylesheetRoute, Err: err})
	}
	if b.cfg.EPUB.Enabled {
		if err := b.writeBook(ctx); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{DocumentID: b.cfg.EPUB.Output, Err: err})
		}
	}

	if b.buildState != nil && report.Succeeded() {
		if err := b.recordState(ctx); err != nil {
			log.Warn("Failed to record build state", logfields.Error(err))
		}
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info("Build finished",
		logfields.Count(report.Built),
		logfields.DurationMS(float64(report.Duration.Milliseconds())),
	)
	return report, nil
}

// ensure compiles a document's chain if it has not run yet. Concurrent
// snapshot dependencies resolve through here, so a chain asking for its
// own (direct or transitive) output is reported as a cycle.
func (b *Builder) ensure(ctx context.Context, id string) error {
	switch b.status[id] {
	case statusDone:
		return nil
	case statusDraft:
		return berrors.New(berrors.CategoryPipeline, berrors.SeverityWarning,
			fmt.Sprintf("document %s is a draft", id)).WithDocument(id)
	case statusFailed:
		return b.errs[id]
	case statusRunning:
		err := berrors.New(berrors.CategoryPipeline, berrors.SeverityError,
			fmt.Sprintf("dependency cycle through %s", id)).WithDocument(id)
		b.fail(id, err)
		return err
	}

	rule, ok := b.table.Match(id)
	if !ok {
		err := berrors.New(berrors.CategoryRules, berrors.SeverityError,
			fmt.Sprintf("document %s matches no rule", id)).WithDocument(id)
		b.fail(id, err)
		return err
	}

	b.status[id] = statusRunning
	doc, err := b.store.Load(id)
	if err != nil {
		b.fail(id, err)
		return err
	}
	if !b.includeDrafts && doc.Meta["draft"] == "true" {
		b.status[id] = statusDraft
		return berrors.New(berrors.CategoryPipeline, berrors.SeverityWarning,
			fmt.Sprintf("document %s is a draft", id)).WithDocument(id)
	}

	route := b.routes[id]
	item := pipeline.NewItem(doc, route)
	slog.Debug("Compiling document",
		logfields.Document(id), logfields.Rule(rule.Name), logfields.Route(route))
	if err := rule.Chain.Run(ctx, b.env, item); err != nil {
		b.fail(id, err)
		return err
	}
	b.status[id] = statusDone
	b.items[id] = item
	return nil
}

func (b *Builder) fail(id string, err error) {
	b.status[id] = statusFailed
	b.errs[id] = err
}

// Collect ensures every discovered document matching pattern is compiled
// and returns their items in discovery order. When snapshot is non-empty
// the returned bodies are that snapshot instead of the final body. Draft
// documents are omitted.
func (b *Builder) Collect(ctx context.Context, pattern rules.Pattern, snapshot string) ([]*pipeline.Item, error) {
	var out []*pipeline.Item
	for _, path := range b.paths {
		if !pattern.Match(path) {
			continue
		}
		if err := b.ensure(ctx, path); err != nil {
			if b.status[path] == statusDraft {
				continue
			}
			return nil, err
		}
		built := b.items[path]
		item := &pipeline.Item{
			ID:       built.ID,
			Body:     built.Body,
			Metadata: built.Metadata,
			Route:    built.Route,
		}
		if snapshot != "" {
			body, err := b.snapshots.Load(path, snapshot)
			if err != nil {
				return nil, err
			}
			item.Body = body
		}
		out = append(out, item)
	}
	return out, nil
}

func (b *Builder) writeOutputs() error {
	for _, path := range b.paths {
		if b.status[path] != statusDone {
			continue
		}
		route, ok := b.routes[path]
		if !ok {
			continue
		}
		dest := filepath.Join(b.cfg.Output.Directory, filepath.FromSlash(route))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return berrors.WrapError(err, berrors.CategoryFileSystem, "create output directory")
		}
		if err := os.WriteFile(dest, []byte(b.items[path].Body), 0644); err != nil {
			return berrors.WrapError(err, berrors.CategoryFileSystem,
				fmt.Sprintf("write %s", dest)).WithDocument(path)
		}
	}
	return nil
}

// writeStylesheet concatenates all compiled stylesheet fragments, in
// discovery order, into the single site stylesheet.
func (b *Builder) writeStylesheet(_ context.Context) error {
	var bodies []string
	for _, path := range b.paths {
		if b.status[path] == statusDone && b.snapshots.Has(path, SnapshotCSS) {
			body, err := b.snapshots.Load(path, SnapshotCSS)
			if err != nil {
				return err
			}
			bodies = append(bodies, body)
		}
	}
	if len(bodies) == 0 {
		return nil
	}
	dest := filepath.Join(b.cfg.Output.Directory, filepath.FromSlash(StylesheetRoute))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "create stylesheet directory")
	}
	if err := os.WriteFile(dest, []byte(styles.Concat(bodies)), 0644); err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "write stylesheet")
	}
	return nil
}

// writeBook assembles the standalone book from the chapter documents,
// ordered by the configured chapter metadata field.
func (b *Builder) writeBook(ctx context.Context) error {
	if b.chapterPattern == nil {
		return nil
	}
	chapters, err := b.Collect(ctx, b.chapterPattern, SnapshotContent)
	if err != nil {
		return err
	}
	if len(chapters) == 0 {
		return nil
	}
	chapters = fields.SortNumericAsc(chapters, b.cfg.EPUB.ChapterKey)

	book := make([]epub.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		title := ch.Metadata["title"]
		if title == "" {
			title = ch.ID
		}
		book = append(book, epub.Chapter{Title: title, Body: ch.Body})
	}

	builder := &epub.Builder{
		Title:       b.cfg.Site.Title,
		Author:      b.cfg.Site.Author,
		Description: b.cfg.Site.Description,
		FontPaths:   b.cfg.EPUB.Fonts,
	}
	// The assembled site stylesheet doubles as the book stylesheet.
	if css, err := os.ReadFile(filepath.Join(b.cfg.Output.Directory, filepath.FromSlash(StylesheetRoute))); err == nil {
		builder.CSS = string(css)
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.EPUB.Output), 0755); err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "create book directory")
	}
	return builder.Write(b.cfg.EPUB.Output, book)
}

func (b *Builder) recordState(ctx context.Context) error {
	for _, path := range b.paths {
		if b.status[path] != statusDone {
			continue
		}
		doc, err := b.store.Load(path)
		if err != nil {
			return err
		}
		rec := state.Record{
			DocumentID:  path,
			Fingerprint: state.FingerprintDocument(doc.Meta, doc.Body),
			Route:       b.routes[path],
		}
		if err := b.buildState.Put(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
