package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Session errors. ErrSubmission covers rejected or unreachable
	// generate requests; the session never enters streaming. ErrUpstream
	// carries the backend's error message verbatim. ErrConnectivity means
	// both transports were exhausted mid-session.
	ErrSubmission     = fmt.Errorf("mix submission failed")
	ErrUpstream       = fmt.Errorf("generation failed upstream")
	ErrConnectivity   = fmt.Errorf("lost connection to progress stream")
	ErrTransport      = fmt.Errorf("transport failure")
	ErrSessionActive  = fmt.Errorf("a session is already active")
	ErrNoSession      = fmt.Errorf("no session")
	ErrReconcileFetch = fmt.Errorf("canonical record fetch failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMixNotFound        = fmt.Errorf("mix not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
