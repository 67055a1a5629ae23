// Package app is the typed data-access layer of the rental platform: one
// query or mutation per backend operation, bound to the query cache.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/artpar/rentdesk/core/querycache"
	"github.com/artpar/rentdesk/core/registry"
	"github.com/artpar/rentdesk/ports"
	"github.com/rs/zerolog"
)

// ErrInvalidArgument is returned before any request when an argument
// cannot form a valid path (for example an empty id).
var ErrInvalidArgument = errors.New("invalid argument")

// Backend domains. Each can be routed to its own base URL.
const (
	DomainVehicles  = "vehicles"
	DomainBookings  = "bookings"
	DomainReviews   = "reviews"
	DomainDashboard = "dashboard"
	DomainAdmin     = "admin"
	DomainPayments  = "payments"
)

// Config wires an API.
type Config struct {
	Cache     *querycache.Cache
	Transport ports.Transport
	Session   ports.SessionSource
	Registry  *registry.Registry // optional; a fresh one is created when nil
	Logger    zerolog.Logger
}

// API exposes every endpoint.
type API struct {
	client   *querycache.Client
	session  ports.SessionSource
	registry *registry.Registry
	logger   zerolog.Logger
}

// New registers all endpoints and returns the API.
func New(cfg Config) (*API, error) {
	if cfg.Cache == nil || cfg.Transport == nil {
		return nil, errors.New("app: cache and transport are required")
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	for _, d := range Definitions() {
		if err := reg.Register(d.Endpoint()); err != nil {
			return nil, err
		}
	}

	return &API{
		client: &querycache.Client{
			Cache:     cfg.Cache,
			Transport: cfg.Transport,
			Session:   cfg.Session,
		},
		session:  cfg.Session,
		registry: reg,
		logger:   cfg.Logger,
	}, nil
}

// Registry returns the endpoint registry.
func (a *API) Registry() *registry.Registry {
	return a.registry
}

// Cache returns the query cache.
func (a *API) Cache() *querycache.Cache {
	return a.client.Cache
}

// Session returns the current session.
func (a *API) Session() ports.Session {
	if a.session == nil {
		return ports.Session{}
	}
	return a.session.Current()
}

// Definition is any query or mutation definition.
type Definition interface {
	Endpoint() registry.Endpoint
}

// Definitions returns every endpoint definition.
func Definitions() []Definition {
	var defs []Definition
	defs = append(defs, vehicleDefinitions()...)
	defs = append(defs, bookingDefinitions()...)
	defs = append(defs, reviewDefinitions()...)
	defs = append(defs, dashboardDefinitions()...)
	defs = append(defs, settingsDefinitions()...)
	defs = append(defs, userDefinitions()...)
	defs = append(defs, paymentDefinitions()...)
	return defs
}

// Watch subscribes to any query definition.
func Watch[A, R any](ctx context.Context, a *API, d querycache.QueryDef[A, R], args A) (*querycache.Subscription, error) {
	return querycache.Watch(ctx, a.client, d, args)
}

// Query runs any query definition.
func Query[A, R any](ctx context.Context, a *API, d querycache.QueryDef[A, R], args A) (R, error) {
	return querycache.Query(ctx, a.client, d, args)
}

// Mutate runs any mutation definition.
func Mutate[A, R any](ctx context.Context, a *API, d querycache.MutationDef[A, R], args A) (R, error) {
	return querycache.Mutate(ctx, a.client, d, args)
}

// Refetch forces a query to hit the backend.
func Refetch[A, R any](ctx context.Context, a *API, d querycache.QueryDef[A, R], args A) (R, error) {
	var zero R
	req, err := d.Request(a.client, args)
	if err != nil {
		return zero, err
	}
	v, err := a.client.Cache.Refetch(ctx, req)
	if err != nil {
		return zero, err
	}
	r, _ := querycache.Value[R](v)
	return r, nil
}

func intPath(prefix string, id int, suffix string) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: id must be positive, got %d", ErrInvalidArgument, id)
	}
	return prefix + "/" + strconv.Itoa(id) + suffix, nil
}

func stringPath(prefix, id, suffix string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return prefix + "/" + url.PathEscape(id) + suffix, nil
}

func fixed(path string) func(struct{}) (string, error) {
	return func(struct{}) (string, error) { return path, nil }
}
