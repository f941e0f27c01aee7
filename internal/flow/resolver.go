package flow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
)

// Resolver turns the server-side application state into the one route the
// client should show. It is the only place that reads server state to decide
// placement; pages assert their own transitions separately.
type Resolver struct {
	backend *backend.Client
	log     zerolog.Logger
}

// NewResolver creates a resolver over the backend client.
func NewResolver(client *backend.Client, log zerolog.Logger) *Resolver {
	return &Resolver{backend: client, log: log}
}

// Resolve fetches the profile and maps its state to a route. Any read
// failure fails open to the entry page, never to an error page. When the
// subject exists but has no meaningful state yet, home is written back to
// establish the record on first contact.
func (r *Resolver) Resolve(ctx context.Context) string {
	profile := r.backend.FetchProfile(ctx)
	if profile == nil {
		r.log.Debug().Msg("flow: no profile resolved, falling back to home")
		return RouteHome
	}

	state := ParseState(profile.State)
	if profile.State == "" || State(profile.State) == StateHome {
		// Idempotent; establishes the record on first contact.
		r.backend.SetState(ctx, string(StateHome))
	}

	route := state.Route()
	r.log.Info().Str("state", string(state)).Str("route", route).Msg("flow: resolved server state")
	return route
}
