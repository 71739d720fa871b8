// package session owns the lifecycle of a mix generation session.
//
// The Orchestrator holds the single active session, streams progress over
// the transport layer (WebSocket first, SSE after a demotion), applies
// updates to the stage record, and publishes the reconciled MixResult on
// completion. All session state is mutated by the orchestrator only.
package session

// State is the orchestrator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateStreamingPrimary
	StateStreamingFallback
	StateCompleting
	StateComplete
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateStreamingPrimary:
		return "streaming(primary)"
	case StateStreamingFallback:
		return "streaming(fallback)"
	case StateCompleting:
		return "completing"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Streaming reports whether a transport is (or should be) open.
func (s State) Streaming() bool {
	return s == StateStreamingPrimary || s == StateStreamingFallback || s == StateCompleting
}

// Terminal reports whether the session has finished, successfully or not.
// A new Start is valid from any terminal state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateCancelled
}
