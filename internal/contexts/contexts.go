// Package contexts implements the layered key->resolver environments that
// parameterize template rendering. A composed context tries each layer in
// order; the leftmost layer that resolves a key wins.
package contexts

import (
	"context"
	"errors"

	berrors "github.com/bookforge/bookforge/internal/errors"
	"github.com/bookforge/bookforge/internal/pipeline"
)

// Value is a resolved field: either a string or a list of items paired with
// the context their own fields resolve against.
type Value struct {
	Str  string
	List *List
}

// List is an ordered collection of items exposed as an iterable field. The
// order is whatever the constructing resolver produced (recency-sorted,
// numeric-sorted); composition never re-sorts it.
type List struct {
	Ctx   Context
	Items []*pipeline.Item
}

// StringValue wraps a plain string field.
func StringValue(s string) Value { return Value{Str: s} }

// ListValue wraps an iterable field.
func ListValue(ctx Context, items []*pipeline.Item) Value {
	return Value{List: &List{Ctx: ctx, Items: items}}
}

// Context resolves field names for a document. Resolution may load other
// documents through env (a blocking dependency fetch), so it takes the
// caller's cancellation context.
type Context interface {
	Resolve(ctx context.Context, env *pipeline.Env, key string, item *pipeline.Item) (Value, error)
}

// ResolverFunc adapts a function to the Context interface.
type ResolverFunc func(ctx context.Context, env *pipeline.Env, key string, item *pipeline.Item) (Value, error)

func (f ResolverFunc) Resolve(ctx context.Context, env *pipeline.Env, key string, item *pipeline.Item) (Value, error) {
	return f(ctx, env, key, item)
}

// composed is an ordered set of layers with left-biased resolution.
type composed struct {
	layers []Context
}

// Compose layers contexts left to right; the leftmost layer that can resolve
// a key wins. Composition is associative: nested composed layers flatten.
func Compose(layers ...Context) Context {
	flat := make([]Context, 0, len(layers))
	for _, layer := range layers {
		if c, ok := layer.(*composed); ok {
			flat = append(flat, c.layers...)
			continue
		}
		flat = append(flat, layer)
	}
	return &composed{layers: flat}
}

func (c *composed) Resolve(ctx context.Context, env *pipeline.Env, key string, item *pipeline.Item) (Value, error) {
	for _, layer := range c.layers {
		value, err := layer.Resolve(ctx, env, key, item)
		if err == nil {
			return value, nil
		}
		// A layer that simply does not provide the key falls through to the
		// next one; any other failure is a real error and propagates.
		if errors.Is(err, berrors.ErrMissingField) {
			continue
		}
		return Value{}, err
	}
	return Value{}, berrors.MissingField(key).WithDocument(item.ID)
}

// Field builds a context resolving exactly one key through f.
func Field(key string, f func(ctx context.Context, env *pipeline.Env, item *pipeline.Item) (string, error)) Context {
	return ResolverFunc(func(ctx context.Context, env *pipeline.Env, k string, item *pipeline.Item) (Value, error) {
		if k != key {
			return Value{}, berrors.MissingField(k)
		}
		s, err := f(ctx, env, item)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	})
}

// Const builds a context resolving one key to a fixed value.
func Const(key, value string) Context {
	return Field(key, func(context.Context, *pipeline.Env, *pipeline.Item) (string, error) {
		return value, nil
	})
}

// ListField builds a context exposing an iterable field. The item order
// produced by f is preserved through rendering.
func ListField(key string, itemCtx Context, f func(ctx context.Context, env *pipeline.Env) ([]*pipeline.Item, error)) Context {
	return ResolverFunc(func(ctx context.Context, env *pipeline.Env, k string, item *pipeline.Item) (Value, error) {
		if k != key {
			return Value{}, berrors.MissingField(k)
		}
		items, err := f(ctx, env)
		if err != nil {
			return Value{}, err
		}
		return ListValue(itemCtx, items), nil
	})
}

// Metadata resolves any key present in the item's metadata record.
func Metadata() Context {
	return ResolverFunc(func(_ context.Context, _ *pipeline.Env, key string, item *pipeline.Item) (Value, error) {
		if value, ok := item.Field(key); ok {
			return StringValue(value), nil
		}
		return Value{}, berrors.MissingField(key).WithDocument(item.ID)
	})
}

// Body resolves "body" to the item's current body.
func Body() Context {
	return Field("body", func(_ context.Context, _ *pipeline.Env, item *pipeline.Item) (string, error) {
		return item.Body, nil
	})
}

// URL resolves "url" to the item's root-relative output route.
func URL() Context {
	return ResolverFunc(func(_ context.Context, _ *pipeline.Env, key string, item *pipeline.Item) (Value, error) {
		if key != "url" {
			return Value{}, berrors.MissingField(key)
		}
		if item.Route == "" {
			return Value{}, berrors.MissingField(key).WithDocument(item.ID)
		}
		return StringValue("/" + item.Route), nil
	})
}

// Snapshot resolves one key to a named snapshot of the current document. The
// snapshot must already be saved; reading it otherwise is a configuration
// error, not a fall-through.
func Snapshot(key, name string) Context {
	return ResolverFunc(func(_ context.Context, env *pipeline.Env, k string, item *pipeline.Item) (Value, error) {
		if k != key {
			return Value{}, berrors.MissingField(k)
		}
		body, err := env.Snapshots.Load(item.ID, name)
		if err != nil {
			return Value{}, err
		}
		return StringValue(body), nil
	})
}

// Default is the base layer every page context composes over: the item body
// and its metadata record.
func Default() Context {
	return Compose(Body(), URL(), Metadata())
}
