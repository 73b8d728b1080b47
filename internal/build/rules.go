package build

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/bookforge/bookforge/internal/contexts"
	"github.com/bookforge/bookforge/internal/fields"
	"github.com/bookforge/bookforge/internal/literate"
	"github.com/bookforge/bookforge/internal/markdown"
	"github.com/bookforge/bookforge/internal/pipeline"
	"github.com/bookforge/bookforge/internal/rules"
	"github.com/bookforge/bookforge/internal/styles"
	"github.com/bookforge/bookforge/internal/templates"
)

// Template documents referenced by the default rules. Templates are part
// of the source tree and load through the same document store as content.
const (
	tmplDefault  = "templates/default.html"
	tmplPage     = "templates/page.html"
	tmplPost     = "templates/post.html"
	tmplPostList = "templates/post-list.html"
)

// DefaultRules assembles the standard rule table for a book site. Order
// matters: the first matching rule wins, so exact-path rules precede the
// globs that would otherwise swallow them.
func DefaultRules(b *Builder) *rules.Table {
	cfg := b.cfg
	md := markdown.NewConverter()

	literateCompiler := &literate.Compiler{
		Bin:          cfg.Literate.Bin,
		LibraryRoots: cfg.Literate.LibraryRoots,
		IncludeDirs:  cfg.Literate.IncludeDirs,
	}
	scss := &styles.Compiler{
		Bin:          cfg.Styles.Bin,
		IncludePaths: cfg.Styles.IncludePaths,
	}

	var libraryMaps []fields.RootMapping
	for _, link := range cfg.Literate.Links {
		libraryMaps = append(libraryMaps, fields.RootMapping{
			LocalPrefix: link.Local,
			PublicBase:  link.Public,
		})
	}
	linkRewriter := &fields.LinkRewriter{
		Libraries: libraryMaps,
		SourceRoute: func(path string) (string, bool) {
			route, ok := b.RouteOf(path)
			if !ok {
				return "", false
			}
			return "/" + route, true
		},
	}

	siteCtx := contexts.Compose(
		contexts.Const("site-title", cfg.Site.Title),
		contexts.Const("site-author", cfg.Site.Author),
		contexts.Const("site-description", cfg.Site.Description),
		contexts.Const("base-url", cfg.Site.BaseURL),
	)

	tocCtx := contexts.Field("toc", func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) (string, error) {
		return md.TOC(item.Body, cfg.Site.TOCDepth)
	})

	pageCtx := contexts.Compose(fields.TitleParts(), tocCtx, siteCtx, contexts.Default())
	postCtx := contexts.Compose(fields.DateField("date", "January 2, 2006"), pageCtx)

	postList := contexts.ListField("posts", postCtx, func(ctx context.Context, env *pipeline.Env) ([]*pipeline.Item, error) {
		items, err := b.Collect(ctx, rules.Glob("posts/*.md"), SnapshotContent)
		if err != nil {
			return nil, err
		}
		return sortByDateDesc(items), nil
	})
	indexCtx := contexts.Compose(postList, pageCtx)

	people := func(key, glob, sortKey string) contexts.Context {
		return contexts.ListField(key, contexts.Default(), func(ctx context.Context, _ *pipeline.Env) ([]*pipeline.Item, error) {
			items, err := b.Collect(ctx, rules.Glob(glob), "")
			if err != nil {
				return nil, err
			}
			return fields.SortCollated(items, sortKey), nil
		})
	}
	acknowledgementsCtx := contexts.Compose(
		people("authors", "authors/*.metadata", "name"),
		people("contributors", "contributors/*.metadata", "name"),
		pageCtx,
	)

	// Every chapter shares the same chain after compilation; only the
	// compiler invocation differs (course chapters add their own include
	// directory).
	chapterChain := func(compile pipeline.Stage) pipeline.Chain {
		return pipeline.Chain{
			compile,
			md.Stage(markdown.Options{StripComments: true}),
			linkRewriter.Stage(),
			pipeline.SaveSnapshot(SnapshotContent),
			templates.ApplyStage(tmplPage, pageCtx),
			templates.ApplyStage(tmplDefault, pageCtx),
			pipeline.RelativizeURLs(),
		}
	}

	srcChapters := rules.Glob("src/**/*.lagda.md")
	chapterAlternatives := []rules.Pattern{srcChapters}
	var courseRules []rules.Rule
	for _, course := range cfg.Source.Courses {
		pattern := rules.Glob(course + "/**/*.lagda.md")
		chapterAlternatives = append(chapterAlternatives, pattern)
		courseRules = append(courseRules, rules.Rule{
			Name:    "chapters:" + course,
			Pattern: pattern,
			Route:   rules.SetExtension("html"),
			Chain: chapterChain(
				literateCompiler.Stage(cfg.Source.Root, filepath.Join(cfg.Source.Root, course)),
			),
		})
	}
	b.chapterPattern = rules.Or(chapterAlternatives...)

	table := []rules.Rule{
		rules.Rule{
			Name:    "acknowledgements",
			Pattern: rules.Glob("pages/acknowledgements.md"),
			Route:   rules.StripPrefix("pages/", rules.SetExtension("html")),
			Chain: pipeline.Chain{
				md.Stage(markdown.Options{}),
				pipeline.SaveSnapshot(SnapshotContent),
				templates.ApplyStage(tmplPage, acknowledgementsCtx),
				templates.ApplyStage(tmplDefault, acknowledgementsCtx),
				pipeline.RelativizeURLs(),
			},
		},
		rules.Rule{
			Name:    "pages",
			Pattern: rules.Glob("pages/*.md"),
			Route:   rules.StripPrefix("pages/", rules.SetExtension("html")),
			Chain: pipeline.Chain{
				md.Stage(markdown.Options{}),
				pipeline.SaveSnapshot(SnapshotContent),
				templates.ApplyStage(tmplPage, pageCtx),
				templates.ApplyStage(tmplDefault, pageCtx),
				pipeline.RelativizeURLs(),
			},
		},
		rules.Rule{
			Name:    "index",
			Pattern: rules.Glob("index.md"),
			Route:   rules.SetExtension("html"),
			Chain: pipeline.Chain{
				md.Stage(markdown.Options{}),
				templates.ApplyStage(tmplPostList, indexCtx),
				templates.ApplyStage(tmplDefault, indexCtx),
				pipeline.RelativizeURLs(),
			},
		},
		rules.Rule{
			Name:    "posts",
			Pattern: rules.Glob("posts/*.md"),
			Route:   rules.SetExtension("html"),
			Chain: pipeline.Chain{
				md.Stage(markdown.Options{}),
				pipeline.SaveSnapshot(SnapshotContent),
				templates.ApplyStage(tmplPost, postCtx),
				templates.ApplyStage(tmplDefault, postCtx),
				pipeline.RelativizeURLs(),
			},
		},
	}
	table = append(table, courseRules...)
	table = append(table,
		rules.Rule{
			Name:    "chapters",
			Pattern: srcChapters,
			Route:   rules.StripPrefix("src/", rules.SetExtension("html")),
			Chain:   chapterChain(literateCompiler.Stage(cfg.Source.Root)),
		},
		rules.Rule{
			Name:    "styles",
			Pattern: rules.And(rules.Glob("css/*.scss"), rules.Not(rules.Glob("css/_*.scss"))),
			Route:   rules.NoRoute(),
			Chain: pipeline.Chain{
				scss.Stage(),
				pipeline.SaveSnapshot(SnapshotCSS),
			},
		},
		rules.Rule{
			Name:    "people",
			Pattern: rules.Or(rules.Glob("authors/*.metadata"), rules.Glob("contributors/*.metadata")),
			Route:   rules.NoRoute(),
			Chain:   pipeline.Chain{},
		},
		rules.Rule{
			Name:    "assets",
			Pattern: rules.Glob("public/**"),
			Route:   rules.StripPrefix("public/", rules.IdentityRoute()),
			Chain:   pipeline.Chain{},
		},
		rules.Rule{
			Name:    "templates",
			Pattern: rules.Glob("templates/*.html"),
			Route:   rules.NoRoute(),
			Chain:   pipeline.Chain{},
		},
	)
	return rules.NewTable(table...)
}

// sortByDateDesc orders items most recent first by their "date" field.
// Items with no parseable date sort last, original order preserved.
func sortByDateDesc(items []*pipeline.Item) []*pipeline.Item {
	out := make([]*pipeline.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		ti, erri := fields.ParseDate(out[i].Metadata["date"])
		tj, errj := fields.ParseDate(out[j].Metadata["date"])
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return ti.After(tj)
	})
	return out
}
