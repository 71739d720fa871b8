package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/services"
	"github.com/duskview/aidj/internal/shared"
)

// Reconciler resolves the final MixResult for a session from two candidate
// sources: the payload that streamed over the wire and the canonical record
// persisted by the backend.
//
// One source wins entirely per field group. The canonical record's tracks
// and transitions replace the streamed playlist wholesale when the record is
// non-empty; the media URL and duration move together the same way. The two
// sources are never interleaved per track, so transition metadata can never
// straddle mismatched orderings.
type Reconciler struct {
	api    services.MixAPI
	logger *log.Logger
}

// NewReconciler creates a Reconciler backed by the given API client.
func NewReconciler(api services.MixAPI, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{api: api, logger: logger}
}

// Reconcile merges the streamed result with the canonical record for its
// session. The canonical fetch is attempted exactly once; on failure or an
// empty record the streamed result is returned unchanged. Fetch failures
// are recovered here and never surfaced.
func (r *Reconciler) Reconcile(ctx context.Context, streamed *mix.MixResult) *mix.MixResult {
	record, err := r.api.GetMix(ctx, streamed.SessionID)
	if err != nil {
		r.logger.Warn("canonical fetch failed, using streamed payload",
			"session", streamed.SessionID, "error", fmt.Errorf("%w: %v", shared.ErrReconcileFetch, err))
		return streamed
	}

	return merge(streamed, record)
}

// Load rebuilds the MixResult of a past session from its canonical record.
// Used by the session directory; there is no streamed payload to fall back
// to, so fetch errors surface.
func (r *Reconciler) Load(ctx context.Context, sessionID string) (*mix.MixResult, error) {
	record, err := r.api.GetMix(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(record.Tracks) == 0 {
		return nil, fmt.Errorf("%w: session %s has no tracks", shared.ErrMixNotFound, sessionID)
	}
	return services.ResultFromRecord(record), nil
}

// List returns the session directory, newest first.
func (r *Reconciler) List(ctx context.Context, limit, offset int) ([]mix.SessionSummary, error) {
	return r.api.ListMixes(ctx, limit, offset)
}

// merge applies the field-group replacement policy. An invalid record (no
// tracks) forfeits both groups.
func merge(streamed *mix.MixResult, record *services.MixRecord) *mix.MixResult {
	if record == nil || len(record.Tracks) == 0 {
		return streamed
	}

	canonical := services.ResultFromRecord(record)

	result := &mix.MixResult{
		SessionID: streamed.SessionID,
		Prompt:    streamed.Prompt,
		TargetBPM: streamed.TargetBPM,
		Tracks:    canonical.Tracks,
	}
	if canonical.Prompt != "" {
		result.Prompt = canonical.Prompt
	}

	// Media group: URL and duration move together, never mixed across
	// sources.
	if canonical.MixURL != "" {
		result.MixURL = canonical.MixURL
		result.DurationSeconds = canonical.DurationSeconds
	} else {
		result.MixURL = streamed.MixURL
		result.DurationSeconds = streamed.DurationSeconds
	}

	return result
}
