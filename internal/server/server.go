// package server hosts the loopback HTTP endpoint for the Spotify OAuth
// authorization code flow.
//
// The auth command starts a short-lived server on the configured redirect
// address, sends the user to the authorization URL, and waits for the
// callback to deliver a token.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which paths it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers and middleware for the callback server.
type Router struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// Use appends middleware. Middleware wraps handlers in reverse order, so
// the first Use is the outermost.
func (r *Router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for one HTTP method and path.
func (r *Router) Handle(method, path string, handler http.Handler) {
	wrapped := r.apply(handler)
	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, req)
	}))
}

// Handler registers every route a Handler serves.
func (r *Router) Handler(handler Handler) {
	wrapped := r.apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements http.Handler for the whole router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// RequestLogger logs each request with its duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			logger.Debug("handled request",
				"method", req.Method, "path", req.URL.Path, "duration", time.Since(start))
		})
	}
}
