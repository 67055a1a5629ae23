package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/rentdesk/core/events"
	"github.com/rs/zerolog"
)

// Notice is a user-facing message derived from a data-layer event.
type Notice struct {
	Level    string // "success" or "error"
	Endpoint string
	Message  string
}

// RegisterHooks subscribes the logging and notification handlers to the bus.
// notify may be nil.
func RegisterHooks(bus *events.Bus, logger zerolog.Logger, notify func(Notice)) {
	bus.Subscribe(events.MutationSucceeded, func(ctx context.Context, e events.Event) error {
		logger.Info().
			Str("endpoint", e.Endpoint).
			Str("invalidated", e.Tags.String()).
			Msg("mutation succeeded")
		if notify != nil {
			notify(Notice{Level: "success", Endpoint: e.Endpoint, Message: e.Endpoint + " succeeded"})
		}
		return nil
	})

	bus.Subscribe(events.MutationFailed, func(ctx context.Context, e events.Event) error {
		logger.Warn().
			Err(e.Err).
			Str("endpoint", e.Endpoint).
			Msg("mutation failed")
		if notify != nil {
			notify(Notice{Level: "error", Endpoint: e.Endpoint, Message: fmt.Sprintf("%s failed: %v", e.Endpoint, e.Err)})
		}
		return nil
	})

	bus.Subscribe("cache.*", func(ctx context.Context, e events.Event) error {
		logger.Debug().
			Str("event", e.Name).
			Str("endpoint", e.Endpoint).
			Str("key", e.Key).
			Str("tags", e.Tags.String()).
			Interface("meta", e.Meta).
			Msg("cache event")
		return nil
	})

	bus.Subscribe(events.SessionChanged, func(ctx context.Context, e events.Event) error {
		logger.Info().Interface("session", e.Meta).Msg("session changed")
		return nil
	})
}
