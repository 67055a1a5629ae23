package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/domain/envelope"
	"github.com/artpar/rentdesk/domain/filter"
	"github.com/artpar/rentdesk/domain/tag"
	"github.com/artpar/rentdesk/ports"
)

// QueryDef describes a cached read returning R for arguments A.
type QueryDef[A, R any] struct {
	Name   string
	Domain string
	Method string // defaults to GET
	Path   string // template for the registry, e.g. /vehicles/{id}

	// URL builds the concrete path (with encoded query string) for args.
	URL   func(args A) (string, error)
	Shape envelope.Shape

	// Provides returns the tags a result carries. It is also called with the
	// zero R when the request fails.
	Provides func(args A, result R) tag.Set
	// Types lists the tag types Provides can return.
	Types []tag.Type
}

// Endpoint returns the registry description of d.
func (d QueryDef[A, R]) Endpoint() registry.Endpoint {
	return registry.Endpoint{
		Name:     d.Name,
		Domain:   d.Domain,
		Kind:     registry.KindQuery,
		Method:   methodOr(d.Method, http.MethodGet),
		Path:     d.Path,
		Provides: d.Types,
	}
}

// Key returns the cache key for args.
func (d QueryDef[A, R]) Key(args A) string {
	return filter.Key(d.Name, args)
}

// MutationDef describes an uncached write returning R for arguments A.
type MutationDef[A, R any] struct {
	Name   string
	Domain string
	Method string
	Path   string

	URL   func(args A) (string, error)
	Body  func(args A) any // nil for no body
	Shape envelope.Shape

	// Invalidates returns the tags to invalidate after success.
	Invalidates func(args A, result R) tag.Set
	// Types lists the tag types Invalidates can return.
	Types []tag.Type
	// Affects lists the tag types whose server data this mutation changes.
	Affects []tag.Type
}

// Endpoint returns the registry description of d.
func (d MutationDef[A, R]) Endpoint() registry.Endpoint {
	return registry.Endpoint{
		Name:        d.Name,
		Domain:      d.Domain,
		Kind:        registry.KindMutation,
		Method:      d.Method,
		Path:        d.Path,
		Invalidates: d.Types,
		Affects:     d.Affects,
	}
}

// Client binds endpoint definitions to a transport, a session and a cache.
type Client struct {
	Cache     *Cache
	Transport ports.Transport
	Session   ports.SessionSource
}

// Request builds the cache request for a query. Argument errors surface
// before any entry is created.
func (d QueryDef[A, R]) Request(cl *Client, args A) (Request, error) {
	path, err := d.URL(args)
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", d.Name, err)
	}

	return Request{
		Key:      d.Key(args),
		Endpoint: d.Name,
		Fetch: func(ctx context.Context) (any, tag.Set, error) {
			var result R
			// The token is read when the request is prepared, so refetches
			// after login or logout use the current credential.
			err := cl.call(ctx, ports.Request{
				Endpoint: d.Name,
				Domain:   d.Domain,
				Method:   methodOr(d.Method, http.MethodGet),
				Path:     path,
			}, d.Shape, &result)
			if err != nil {
				var zero R
				return nil, d.provides(args, zero), fmt.Errorf("%s: %w", d.Name, err)
			}
			return result, d.provides(args, result), nil
		},
	}, nil
}

func (d QueryDef[A, R]) provides(args A, result R) tag.Set {
	if d.Provides == nil {
		return nil
	}
	return d.Provides(args, result)
}

// Query runs a cached read.
func Query[A, R any](ctx context.Context, cl *Client, d QueryDef[A, R], args A) (R, error) {
	var zero R
	req, err := d.Request(cl, args)
	if err != nil {
		return zero, err
	}
	v, err := cl.Cache.Fetch(ctx, req)
	if err != nil {
		return zero, err
	}
	return typed[R](d.Name, v)
}

// Watch subscribes to a query.
func Watch[A, R any](ctx context.Context, cl *Client, d QueryDef[A, R], args A) (*Subscription, error) {
	req, err := d.Request(cl, args)
	if err != nil {
		return nil, err
	}
	return cl.Cache.Subscribe(ctx, req), nil
}

// Mutate runs a write and invalidates its tags on success.
func Mutate[A, R any](ctx context.Context, cl *Client, d MutationDef[A, R], args A) (R, error) {
	var zero R
	path, err := d.URL(args)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", d.Name, err)
	}

	var body any
	if d.Body != nil {
		body = d.Body(args)
	}

	v, err := cl.Cache.Mutate(ctx, d.Name, func(ctx context.Context) (any, tag.Set, error) {
		var result R
		err := cl.call(ctx, ports.Request{
			Endpoint: d.Name,
			Domain:   d.Domain,
			Method:   d.Method,
			Path:     path,
			Body:     body,
		}, d.Shape, &result)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		var tags tag.Set
		if d.Invalidates != nil {
			tags = d.Invalidates(args, result)
		}
		return result, tags, nil
	})
	if err != nil {
		return zero, err
	}
	return typed[R](d.Name, v)
}

// call executes req, unwraps the envelope and decodes into out.
func (cl *Client) call(ctx context.Context, req ports.Request, shape envelope.Shape, out any) error {
	if cl.Session != nil {
		req.Token = cl.Session.Current().Token
	}

	raw, err := cl.Transport.Do(ctx, req)
	if err != nil {
		return err
	}
	data, err := envelope.Unwrap(raw, shape)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func typed[R any](endpoint string, v any) (R, error) {
	if v == nil {
		var zero R
		return zero, nil
	}
	r, ok := v.(R)
	if !ok {
		var zero R
		return zero, fmt.Errorf("%s: cached value has type %T", endpoint, v)
	}
	return r, nil
}

func methodOr(method, def string) string {
	if method == "" {
		return def
	}
	return method
}
