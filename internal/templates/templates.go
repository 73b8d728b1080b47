// Package templates renders template documents against composed contexts.
// Templates are ordinary documents matched by a load-only rule; application
// nests, so a body rendered by one template may be passed through another.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/bookforge/bookforge/internal/contexts"
	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// Data is the value template bodies execute against. Field lookups resolve
// through the composed context, so a template demanding an unresolvable key
// aborts the document's chain with MissingField.
type Data struct {
	ctx  context.Context
	env  *pipeline.Env
	fctx contexts.Context
	item *pipeline.Item
}

// Field resolves a string field.
func (d *Data) Field(key string) (string, error) {
	value, err := d.fctx.Resolve(d.ctx, d.env, key, d.item)
	if err != nil {
		return "", err
	}
	if value.List != nil {
		return "", berrors.New(berrors.CategoryTemplate, berrors.SeverityError,
			fmt.Sprintf("field %q is a list, use List", key))
	}
	return value.Str, nil
}

// Has reports whether key resolves, for conditional template sections. Only
// a missing field reads as false; any other resolver failure aborts the
// render.
func (d *Data) Has(key string) (bool, error) {
	_, err := d.fctx.Resolve(d.ctx, d.env, key, d.item)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, berrors.ErrMissingField) {
		return false, nil
	}
	return false, err
}

// List resolves an iterable field. Each element wraps one item together with
// the context the list was constructed with; the constructor's order is
// preserved.
func (d *Data) List(key string) ([]*Data, error) {
	value, err := d.fctx.Resolve(d.ctx, d.env, key, d.item)
	if err != nil {
		return nil, err
	}
	if value.List == nil {
		return nil, berrors.New(berrors.CategoryTemplate, berrors.SeverityError,
			fmt.Sprintf("field %q is not a list", key))
	}
	out := make([]*Data, 0, len(value.List.Items))
	for _, item := range value.List.Items {
		out = append(out, &Data{ctx: d.ctx, env: d.env, fctx: value.List.Ctx, item: item})
	}
	return out, nil
}

// Body returns the item's current body.
func (d *Data) Body() string { return d.item.Body }

// Apply renders tmplBody against the composed context for item. The item
// body is reachable both as .Body and as the "body" field when the context
// includes the default layer.
func Apply(ctx context.Context, env *pipeline.Env, tmplBody string, fctx contexts.Context, item *pipeline.Item) (string, error) {
	tpl, err := template.New("template").Parse(tmplBody)
	if err != nil {
		return "", berrors.WrapError(err, berrors.CategoryTemplate, "parse template")
	}

	data := &Data{ctx: ctx, env: env, fctx: fctx, item: item}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", berrors.WrapError(err, berrors.CategoryTemplate, "render template")
	}
	return buf.String(), nil
}

// ApplyStage returns a pipeline stage loading the template document with the
// given identifier and applying it to the item body. The template document
// is itself part of the build, so the stage ensures it is compiled first.
func ApplyStage(templateID string, fctx contexts.Context) pipeline.Stage {
	return pipeline.StageFunc("template:"+templateID, func(ctx context.Context, env *pipeline.Env, item *pipeline.Item) error {
		if err := env.EnsureDocument(ctx, templateID); err != nil {
			return err
		}
		tmpl, err := env.Store.Load(templateID)
		if err != nil {
			return err
		}
		body, err := Apply(ctx, env, tmpl.Body, fctx, item)
		if err != nil {
			return err
		}
		item.Body = body
		return nil
	})
}
