package flow

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arendahub/miniapp-client/internal/backend"
)

func TestResolveMapsServerState(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"application", "/application"},
		{"waiting", "/waiting"},
		{"contract", "/contract"},
		{"rejected", "/rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			fake := newReviewBackend()
			fake.profile = &backend.Profile{ChatID: 7, State: tt.state}
			resolver := NewResolver(newFlowClient(t, fake), zerolog.Nop())

			if got := resolver.Resolve(context.Background()); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}

			// A settled state is not rewritten.
			if _, states := fake.counts(); len(states) != 0 {
				t.Errorf("state writes = %v, want none", states)
			}
		})
	}
}

func TestResolveFailsOpenToHome(t *testing.T) {
	fake := newReviewBackend()
	fake.profileCode = http.StatusInternalServerError
	resolver := NewResolver(newFlowClient(t, fake), zerolog.Nop())

	if got := resolver.Resolve(context.Background()); got != RouteHome {
		t.Errorf("Resolve() = %q, want %q on fetch failure", got, RouteHome)
	}
	if _, states := fake.counts(); len(states) != 0 {
		t.Errorf("state writes = %v, want none on fetch failure", states)
	}
}

func TestResolveEstablishesRecordOnFirstContact(t *testing.T) {
	for _, state := range []string{"", "home"} {
		fake := newReviewBackend()
		fake.profile = &backend.Profile{ChatID: 7, State: state}
		resolver := NewResolver(newFlowClient(t, fake), zerolog.Nop())

		if got := resolver.Resolve(context.Background()); got != RouteHome {
			t.Errorf("Resolve() = %q, want %q for stored state %q", got, RouteHome, state)
		}
		if _, states := fake.counts(); len(states) != 1 || states[0] != "home" {
			t.Errorf("state writes = %v, want [home] for stored state %q", states, state)
		}
	}
}

func TestResolveUnrecognizedStateRoutesHomeWithoutRewrite(t *testing.T) {
	fake := newReviewBackend()
	fake.profile = &backend.Profile{ChatID: 7, State: "banana"}
	resolver := NewResolver(newFlowClient(t, fake), zerolog.Nop())

	if got := resolver.Resolve(context.Background()); got != RouteHome {
		t.Errorf("Resolve() = %q, want %q", got, RouteHome)
	}
	if _, states := fake.counts(); len(states) != 0 {
		t.Errorf("state writes = %v, want none for unrecognized stored state", states)
	}
}
