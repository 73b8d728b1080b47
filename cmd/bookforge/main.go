package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/bookforge/bookforge/internal/build"
	"github.com/bookforge/bookforge/internal/config"
	"github.com/bookforge/bookforge/internal/logfields"
	"github.com/bookforge/bookforge/internal/state"
	"github.com/bookforge/bookforge/internal/version"
	"github.com/bookforge/bookforge/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"bookforge.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Output string `short:"o" help:"Override the configured output directory"`
		Drafts bool   `help:"Include documents marked as drafts"`
	} `cmd:"" help:"Build the site once"`

	Watch struct {
		Drafts bool `help:"Include documents marked as drafts"`
	} `cmd:"" help:"Rebuild on changes and serve the output directory"`

	Check struct{} `cmd:"" help:"Report documents matched by more than one rule"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Clean struct{} `cmd:"" help:"Remove the output directory and build state"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		if err := runBuild(CLI.Build.Drafts); err != nil {
			slog.Error("Build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(CLI.Watch.Drafts); err != nil && err != context.Canceled {
			slog.Error("Watch failed", logfields.Error(err))
			os.Exit(1)
		}
	case "check":
		if err := runCheck(); err != nil {
			slog.Error("Check failed", logfields.Error(err))
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
		fmt.Printf("Created %s\n", CLI.Config)
	case "version":
		fmt.Printf("bookforge %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	case "clean":
		if err := runClean(); err != nil {
			slog.Error("Clean failed", logfields.Error(err))
			os.Exit(1)
		}
	default:
		slog.Error("Unknown command", "command", ctx.Command())
		os.Exit(1)
	}
}

func runBuild(includeDrafts bool) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if CLI.Build.Output != "" {
		cfg.Output.Directory = CLI.Build.Output
	}

	builder := build.New(cfg).WithIncludeDrafts(includeDrafts)
	if cfg.State.Path != "" {
		store, err := state.Open(cfg.State.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		builder = builder.WithState(store)
	}

	report, err := builder.Run(signalContext())
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())
	for _, failure := range report.Failures {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", failure.DocumentID, failure.Err)
	}
	if !report.Succeeded() {
		os.Exit(1)
	}
	return nil
}

func runWatch(includeDrafts bool) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	var store *state.Store
	if cfg.State.Path != "" {
		store, err = state.Open(cfg.State.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	watcher := watch.New(cfg, store)
	if includeDrafts {
		watcher.NewBuilder = func() *build.Builder {
			b := build.New(cfg).WithIncludeDrafts(true)
			if store != nil {
				b = b.WithState(store)
			}
			return b
		}
	}
	return watcher.Run(signalContext())
}

func runCheck() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	overlaps, err := build.New(cfg).CheckOverlaps()
	if err != nil {
		return err
	}
	if len(overlaps) == 0 {
		fmt.Println("no rule overlaps")
		return nil
	}
	for _, overlap := range overlaps {
		fmt.Println(overlap.String())
	}
	return nil
}

func runClean() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(cfg.Output.Directory); err != nil {
		return err
	}
	if cfg.State.Path != "" {
		if err := os.Remove(cfg.State.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	fmt.Printf("Removed %s\n", cfg.Output.Directory)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx
}
