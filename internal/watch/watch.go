// Package watch implements watch mode: rebuild on source changes and
// serve the output directory over HTTP with Prometheus metrics.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bookforge/bookforge/internal/build"
	"github.com/bookforge/bookforge/internal/config"
	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/logfields"
	"github.com/bookforge/bookforge/internal/state"
)

// Watcher rebuilds the site when source files change and serves the
// output directory.
type Watcher struct {
	cfg        *config.Config
	buildState *state.Store

	// NewBuilder creates the builder for each rebuild. Overridable for
	// tests; defaults to the standard builder wired to cfg.
	NewBuilder func() *build.Builder

	// Debounce collapses bursts of filesystem events into one rebuild.
	Debounce time.Duration
}

// New creates a watcher for the given configuration. The state store may
// be nil, disabling unchanged-build skipping.
func New(cfg *config.Config, buildState *state.Store) *Watcher {
	w := &Watcher{
		cfg:        cfg,
		buildState: buildState,
		Debounce:   500 * time.Millisecond,
	}
	w.NewBuilder = func() *build.Builder {
		b := build.New(cfg)
		if buildState != nil {
			b = b.WithState(buildState)
		}
		return b
	}
	return w
}

// Run performs an initial build, then watches the source tree and serves
// the output directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.rebuild(ctx, true); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "create file watcher")
	}
	defer watcher.Close()

	if err := w.addWatches(watcher); err != nil {
		return err
	}

	server := &http.Server{Addr: w.cfg.Serve.Addr, Handler: w.handler()}
	go func() {
		slog.Info("Serving site", "addr", w.cfg.Serve.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server failed", logfields.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name))
			if event.Op&fsnotify.Create != 0 {
				// New directories must be watched too.
				_ = w.addWatches(watcher)
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.Debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.rebuild(ctx, false); err != nil {
				slog.Error("Rebuild failed", logfields.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler())
	mux.Handle("/", http.FileServer(http.Dir(w.cfg.Output.Directory)))
	return mux
}

// addWatches registers the source root and every subdirectory, skipping
// hidden directories and the output directory. Adding an already watched
// directory is a no-op.
func (w *Watcher) addWatches(watcher *fsnotify.Watcher) error {
	err := filepath.WalkDir(w.cfg.Source.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != w.cfg.Source.Root {
			return fs.SkipDir
		}
		if sameDir(path, w.cfg.Output.Directory) {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return berrors.WrapError(err, berrors.CategoryFileSystem, "watch source tree")
	}
	return nil
}

// relevant filters out events for hidden files and the output tree.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if rel, err := filepath.Rel(w.cfg.Output.Directory, event.Name); err == nil && !strings.HasPrefix(rel, "..") {
		return false
	}
	return true
}

// rebuild runs one build, skipping it entirely when the state store shows
// no document changed since the last successful run.
func (w *Watcher) rebuild(ctx context.Context, initial bool) error {
	b := w.NewBuilder()

	if !initial {
		skip, err := b.CanSkip(ctx)
		if err != nil {
			return err
		}
		if skip {
			buildsSkippedTotal.Inc()
			slog.Info("No documents changed, skipping rebuild")
			return nil
		}
	}

	buildsTotal.Inc()
	report, err := b.Run(ctx)
	if err != nil {
		buildsFailedTotal.Inc()
		return err
	}
	documentsBuilt.Add(float64(report.Built))
	buildDuration.Observe(report.Duration.Seconds())
	if !report.Succeeded() {
		buildsFailedTotal.Inc()
	}
	slog.Info("Rebuild complete", "summary", report.Summary())
	return nil
}

func sameDir(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}
