package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/logfields"
)

// Stage is one step of a compiler chain. Run mutates the item in place;
// returning an error aborts the chain for that document without affecting
// sibling documents.
type Stage struct {
	Name string
	Run  func(ctx context.Context, env *Env, item *Item) error
}

// StageFunc wraps a function as a named stage.
func StageFunc(name string, run func(ctx context.Context, env *Env, item *Item) error) Stage {
	return Stage{Name: name, Run: run}
}

// Chain is an ordered list of stages executed strictly in declared order.
type Chain []Stage

// Run executes the chain over item. The first failing stage aborts the rest;
// the error names the stage and the document it originated from.
func (c Chain) Run(ctx context.Context, env *Env, item *Item) error {
	for _, stage := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Debug("Running pipeline stage",
			logfields.Document(item.ID), logfields.Stage(stage.Name))
		if err := stage.Run(ctx, env, item); err != nil {
			return berrors.Wrap(err, berrors.GetCategory(err), berrors.SeverityError,
				fmt.Sprintf("stage %s", stage.Name)).WithDocument(item.ID)
		}
	}
	return nil
}

// SaveSnapshot returns a stage capturing the item body under name. The
// captured body is immutable and may be read by other documents.
func SaveSnapshot(name string) Stage {
	return StageFunc("snapshot:"+name, func(_ context.Context, env *Env, item *Item) error {
		return env.Snapshots.Save(item.ID, name, item.Body)
	})
}

// Filter returns a stage applying a pure body transformation.
func Filter(name string, f func(body string) (string, error)) Stage {
	return StageFunc(name, func(_ context.Context, _ *Env, item *Item) error {
		body, err := f(item.Body)
		if err != nil {
			return err
		}
		item.Body = body
		return nil
	})
}
