package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/duskview/aidj/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the authorization code callback. It validates the
// state parameter, exchanges the code for a token, and delivers exactly
// one result; repeat callbacks are rejected.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	once    sync.Once

	mu  sync.Mutex
	hit bool
}

// NewOAuthHandler creates a callback handler. The state token must be
// unguessable; GenerateID is sufficient.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the paths this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// Result returns the channel that delivers the single callback outcome.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	if r.URL.Query().Get("state") != h.state {
		h.send(OAuthResult{err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.send(OAuthResult{err: fmt.Errorf("%w: %s (%s)", shared.ErrAuthFailed,
			r.URL.Query().Get("error"), r.URL.Query().Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
  <h1>Authorization successful</h1>
  <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// send delivers the result once and closes the channel.
func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// WaitForCallback runs a loopback server at the redirect URI until the
// authorization callback arrives or ctx expires. Returns the exchanged
// token.
func WaitForCallback(ctx context.Context, config *oauth2.Config, state string, logger *log.Logger) (*oauth2.Token, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	redirect, err := url.Parse(config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: invalid redirect uri %q", shared.ErrInvalidConfig, config.RedirectURL)
	}

	handler := NewOAuthHandler(config, state)
	router := NewRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	srv := &http.Server{Addr: redirect.Host, Handler: router}
	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: authorization not completed: %v", shared.ErrAuthFailed, ctx.Err())
	case err := <-errs:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrAuthFailed, err)
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		return result.Token, nil
	}
}
