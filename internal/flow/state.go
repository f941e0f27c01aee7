// Package flow is the state-synchronization engine: it maps the
// server-authoritative workflow state to client routes, resolves the initial
// placement at boot, applies explicit transitions, and polls for review
// decisions while the subject waits.
package flow

// State is the workflow state driving navigation. The backend owns the
// durable value; the client mirrors it.
type State string

const (
	StateHome        State = "home"
	StateApplication State = "application"
	StateWaiting     State = "waiting"
	StateContract    State = "contract"
	StateRejected    State = "rejected"
)

// Routes in 1:1 correspondence with states.
const (
	RouteHome        = "/"
	RouteApplication = "/application"
	RouteWaiting     = "/waiting"
	RouteContract    = "/contract"
	RouteRejected    = "/rejected"
)

// ParseState maps a stored state string to a State. Empty and unrecognized
// values mean home.
func ParseState(raw string) State {
	switch State(raw) {
	case StateApplication, StateWaiting, StateContract, StateRejected:
		return State(raw)
	default:
		return StateHome
	}
}

// Route returns the route for a state. Unknown states fall back to home,
// mirroring the wildcard route.
func (s State) Route() string {
	switch s {
	case StateApplication:
		return RouteApplication
	case StateWaiting:
		return RouteWaiting
	case StateContract:
		return RouteContract
	case StateRejected:
		return RouteRejected
	default:
		return RouteHome
	}
}

// Transition is an explicit, named state-change request. Transitions are
// applied optimistically to the local route and asserted at the backend, so
// server-durable and client-in-flight authority stay visibly separate.
type Transition struct {
	target State
}

// Target returns the state the transition moves to.
func (t Transition) Target() State {
	return t.target
}

var (
	GoToApplication = Transition{target: StateApplication}
	GoToWaiting     = Transition{target: StateWaiting}
	GoToContract    = Transition{target: StateContract}
	GoToRejected    = Transition{target: StateRejected}
)
