package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/services"
	"github.com/duskview/aidj/internal/shared"
	"github.com/duskview/aidj/internal/transport"
)

// reconcileTimeout bounds the canonical record fetch after completion.
const reconcileTimeout = 10 * time.Second

// updateBuffer is the capacity of the update channel. Slow consumers drop
// intermediate updates rather than stalling the stream.
const updateBuffer = 50

// Update is one published snapshot of the active session.
type Update struct {
	State  State
	Record mix.StageRecord
	Result *mix.MixResult
	Err    error
}

// Orchestrator drives one mix generation session at a time: submit the
// prompt, stream progress over the primary transport, demote to the
// fallback if the primary drops, and reconcile the final result.
//
// Demotion is one-way and happens at most once per session. Every dial,
// cancel and restart bumps an internal epoch; callbacks from a transport
// that has since been replaced carry a stale epoch and are dropped, so a
// closed stream can never mutate session state.
type Orchestrator struct {
	api        services.MixAPI
	primary    transport.Dialer
	fallback   transport.Dialer
	reconciler *Reconciler
	logger     *log.Logger

	mu      sync.Mutex
	state   State
	session *mix.Session
	record  mix.StageRecord
	result  *mix.MixResult
	err     error
	epoch   int
	active  transport.Transport
	demoted bool
	done    chan struct{}

	updates chan Update
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(api services.MixAPI, primary, fallback transport.Dialer, reconciler *Reconciler, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		api:        api,
		primary:    primary,
		fallback:   fallback,
		reconciler: reconciler,
		logger:     logger,
		state:      StateIdle,
		record:     mix.IdleRecord(),
		updates:    make(chan Update, updateBuffer),
	}
}

// Start submits a prompt and begins streaming progress. Any session still
// in flight is cancelled implicitly. Returns the new session id once the
// submission is accepted and a transport is connected.
func (o *Orchestrator) Start(ctx context.Context, prompt string, durationMinutes int) (string, error) {
	if !o.api.Authenticated() {
		return "", fmt.Errorf("%w: authenticate before generating", shared.ErrMissingCredentials)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", shared.ErrInvalidInput)
	}

	o.mu.Lock()
	o.epoch++
	epoch := o.epoch
	old := o.active
	o.active = nil
	o.session = nil
	o.result = nil
	o.err = nil
	o.demoted = false
	o.state = StateSubmitting
	o.record = mix.IdleRecord()
	o.closeDoneLocked()
	o.done = make(chan struct{})
	o.publishLocked()
	o.mu.Unlock()
	if old != nil {
		old.Close()
	}

	resp, err := o.api.GenerateMix(ctx, prompt, durationMinutes)
	if err != nil {
		o.mu.Lock()
		if epoch == o.epoch {
			o.failLocked(err)
		}
		o.mu.Unlock()
		return "", err
	}

	sess := &mix.Session{
		ID:              resp.SessionID,
		Prompt:          prompt,
		DurationMinutes: durationMinutes,
		StartedAt:       time.Now(),
		Skeleton:        resp.SkeletonResult(prompt),
	}

	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: superseded before streaming began", shared.ErrNoSession)
	}
	o.session = sess
	o.mu.Unlock()

	return resp.SessionID, o.connect(ctx, epoch, resp.SessionID)
}

// connect dials the primary transport, falling straight to the fallback if
// the primary cannot be reached at all. Both failing is a connectivity
// failure that terminates the session.
func (o *Orchestrator) connect(ctx context.Context, epoch int, sessionID string) error {
	t, perr := o.primary.Dial(ctx, sessionID)
	if perr == nil {
		o.attach(epoch, t, StateStreamingPrimary)
		return nil
	}
	o.logger.Warn("primary transport unavailable, demoting at dial",
		"transport", o.primary.Name(), "error", perr)

	ft, ferr := o.fallback.Dial(ctx, sessionID)
	if ferr != nil {
		err := fmt.Errorf("%w: %s dial: %v; %s dial: %v",
			shared.ErrConnectivity, o.primary.Name(), perr, o.fallback.Name(), ferr)
		o.mu.Lock()
		if epoch == o.epoch {
			o.failLocked(err)
		}
		o.mu.Unlock()
		return err
	}
	o.attach(epoch, ft, StateStreamingFallback)
	return nil
}

// attach installs a freshly dialed transport and starts consuming it,
// unless the session moved on while the dial was in flight.
func (o *Orchestrator) attach(epoch int, t transport.Transport, st State) {
	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		t.Close()
		return
	}
	o.active = t
	o.state = st
	if st == StateStreamingFallback {
		o.demoted = true
	}
	o.publishLocked()
	o.mu.Unlock()
	go o.consume(epoch, t)
}

func (o *Orchestrator) consume(epoch int, t transport.Transport) {
	for msg := range t.Messages() {
		o.handleMessage(epoch, msg)
	}
	o.handleStreamEnd(epoch, t.Err())
}

func (o *Orchestrator) handleMessage(epoch int, msg transport.Message) {
	o.mu.Lock()
	if epoch != o.epoch || o.state.Terminal() {
		o.mu.Unlock()
		return
	}

	switch msg.Type {
	case transport.TypeConnected:
		// The playlist is interpreted at submit time, so a connected
		// stream means fetching has begun.
		o.applyLocked(mix.StageUpdate{Stage: mix.StageFetching})
		o.mu.Unlock()
	case transport.TypeProgress:
		stage, ok := mix.ParseStage(msg.Progress.Stage)
		if !ok {
			o.logger.Debug("ignoring unknown stage tag", "stage", msg.Progress.Stage)
			o.mu.Unlock()
			return
		}
		if stage == mix.StageError {
			detail := msg.Progress.Detail
			if detail == "" {
				detail = "pipeline failure"
			}
			o.failLocked(fmt.Errorf("%w: %s", shared.ErrUpstream, detail))
			o.mu.Unlock()
			return
		}
		o.applyLocked(mix.StageUpdate{
			Stage:       stage,
			Percent:     msg.Progress.Progress,
			Detail:      msg.Progress.Detail,
			Source:      msg.Progress.Source,
			CurrentItem: msg.Progress.CurrentTrack,
		})
		o.mu.Unlock()
	case transport.TypeComplete:
		o.finish(epoch, msg.Complete)
	case transport.TypeError:
		detail := "upstream failure"
		if msg.Err != nil && msg.Err.Message != "" {
			detail = msg.Err.Message
		}
		o.failLocked(fmt.Errorf("%w: %s", shared.ErrUpstream, detail))
		o.mu.Unlock()
	default:
		o.mu.Unlock()
	}
}

// finish runs completion: reconcile the streamed payload against the
// canonical record and publish the final result. Called with mu held;
// releases it. Reconciliation runs outside the lock, so the epoch is
// rechecked before the result lands.
func (o *Orchestrator) finish(epoch int, data *transport.CompleteData) {
	o.state = StateCompleting

	streamed := &mix.MixResult{SessionID: o.session.ID, Prompt: o.session.Prompt}
	if o.session.Skeleton != nil {
		copied := *o.session.Skeleton
		streamed = &copied
	}
	if data != nil {
		if data.MixURL != "" {
			streamed.MixURL = data.MixURL
		}
		if data.DurationSeconds > 0 {
			streamed.DurationSeconds = data.DurationSeconds
		}
		if data.TargetBPM > 0 {
			streamed.TargetBPM = data.TargetBPM
		}
	}
	o.publishLocked()
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	result := o.reconciler.Reconcile(ctx, streamed)
	cancel()

	o.mu.Lock()
	if epoch != o.epoch {
		o.mu.Unlock()
		return
	}
	o.result = result
	o.state = StateComplete
	o.record = o.record.Apply(mix.StageUpdate{Stage: mix.StageComplete, Percent: 100, Detail: "mix ready"})
	t := o.active
	o.active = nil
	o.closeDoneLocked()
	o.publishLocked()
	o.mu.Unlock()
	if t != nil {
		t.Close()
	}
}

// handleStreamEnd reacts to a transport closing without a completion. A
// lost primary demotes to the fallback once; a lost fallback terminates
// the session with a connectivity error.
func (o *Orchestrator) handleStreamEnd(epoch int, streamErr error) {
	reason := "stream closed before completion"
	if streamErr != nil {
		reason = streamErr.Error()
	}

	o.mu.Lock()
	if epoch != o.epoch || o.state.Terminal() || o.state == StateCompleting {
		o.mu.Unlock()
		return
	}

	switch o.state {
	case StateStreamingPrimary:
		o.epoch++
		next := o.epoch
		o.active = nil
		o.demoted = true
		o.state = StateStreamingFallback
		sessionID := o.session.ID
		o.publishLocked()
		o.mu.Unlock()

		o.logger.Warn("primary stream lost mid-session, demoting", "reason", reason)
		t, err := o.fallback.Dial(context.Background(), sessionID)

		o.mu.Lock()
		if next != o.epoch {
			o.mu.Unlock()
			if t != nil {
				t.Close()
			}
			return
		}
		if err != nil {
			o.failLocked(fmt.Errorf("%w: fallback dial after primary loss: %v", shared.ErrConnectivity, err))
			o.mu.Unlock()
			return
		}
		o.active = t
		o.mu.Unlock()
		go o.consume(next, t)
	case StateStreamingFallback:
		o.failLocked(fmt.Errorf("%w: fallback stream lost: %s", shared.ErrConnectivity, reason))
		o.mu.Unlock()
	default:
		o.mu.Unlock()
	}
}

// Cancel abandons the current session, if any. The stage record resets to
// idle and the transport is torn down. Idempotent; a no-op when idle or
// already cancelled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.state == StateIdle || o.state == StateCancelled {
		o.mu.Unlock()
		return
	}
	o.epoch++
	t := o.active
	o.active = nil
	o.session = nil
	o.result = nil
	o.err = nil
	o.state = StateCancelled
	o.record = mix.IdleRecord()
	o.closeDoneLocked()
	o.publishLocked()
	o.mu.Unlock()
	if t != nil {
		t.Close()
	}
}

// Wait blocks until the session reaches a terminal state or ctx expires.
// Returns the reconciled result on completion, the session error on
// failure, and context.Canceled if the session was cancelled.
func (o *Orchestrator) Wait(ctx context.Context) (*mix.MixResult, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateComplete:
		return o.result, nil
	case StateError:
		return nil, o.err
	case StateCancelled:
		return nil, context.Canceled
	default:
		return nil, shared.ErrNoSession
	}
}

// Updates returns the stream of published session snapshots. The channel
// is buffered; intermediate updates are dropped when the consumer lags.
func (o *Orchestrator) Updates() <-chan Update {
	return o.updates
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Record returns the current stage record.
func (o *Orchestrator) Record() mix.StageRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record
}

// Result returns the reconciled result, or nil before completion. The
// result is never mutated after publication.
func (o *Orchestrator) Result() *mix.MixResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Err returns the terminal session error, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Session returns the active session, or nil.
func (o *Orchestrator) Session() *mix.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Demoted reports whether this session fell back from the primary
// transport. Demotion never reverses within a session.
func (o *Orchestrator) Demoted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.demoted
}

// applyLocked merges a stage update and publishes when it changed
// anything. Duplicate and out-of-order updates are absorbed silently.
func (o *Orchestrator) applyLocked(u mix.StageUpdate) {
	next := o.record.Apply(u)
	if next != o.record {
		o.record = next
		o.publishLocked()
	}
}

// failLocked moves the session to a terminal error state.
func (o *Orchestrator) failLocked(err error) {
	o.err = err
	o.state = StateError
	o.record = o.record.Apply(mix.StageUpdate{Stage: mix.StageError, Detail: err.Error()})
	if o.active != nil {
		o.active.Close()
		o.active = nil
	}
	o.closeDoneLocked()
	o.publishLocked()
}

func (o *Orchestrator) closeDoneLocked() {
	if o.done != nil {
		close(o.done)
		o.done = nil
	}
}

// publishLocked emits a snapshot without blocking. Dropped updates are
// fine; every snapshot carries the full state.
func (o *Orchestrator) publishLocked() {
	u := Update{State: o.state, Record: o.record, Result: o.result, Err: o.err}
	select {
	case o.updates <- u:
	default:
	}
}
