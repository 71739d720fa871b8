package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/repositories"
	"github.com/duskview/aidj/internal/session"
	"github.com/duskview/aidj/internal/shared"
	"github.com/urfave/cli/v3"
)

// MixGenerate submits a prompt and streams generation progress until the
// mix completes. The interactive view is the default; --plain logs
// progress lines instead.
func (r *Runner) MixGenerate(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(cmd.StringArg("prompt"))
	if prompt == "" {
		return fmt.Errorf("%w: a prompt is required", shared.ErrMissingArgument)
	}
	duration := cmd.Int("duration")

	if err := r.ensureCredential(); err != nil {
		return err
	}

	sessionID, err := r.orch.Start(ctx, prompt, duration)
	if err != nil {
		return err
	}
	r.logger.Info("generation started", "session", sessionID)
	r.saveLastSession(sessionID)

	plain := cmd.Bool("plain")
	var result *mix.MixResult
	if plain {
		result, err = r.followPlain(ctx)
	} else {
		result, err = r.followTUI(ctx, prompt)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	if !plain {
		// The interactive view already rendered the result.
		return nil
	}
	return r.printResult(result)
}

// followPlain logs progress updates until the session ends.
func (r *Runner) followPlain(ctx context.Context) (*mix.MixResult, error) {
	done := make(chan struct{})
	var result *mix.MixResult
	var waitErr error
	go func() {
		result, waitErr = r.orch.Wait(ctx)
		close(done)
	}()

	var last mix.StageRecord
	for {
		select {
		case update := <-r.orch.Updates():
			if update.Record != last && !update.Record.Stage.Terminal() {
				last = update.Record
				kv := []any{"stage", last.Stage.String(), "percent", last.Percent}
				if last.CurrentItem != "" {
					kv = append(kv, "track", last.CurrentItem)
				}
				if last.Detail != "" {
					kv = append(kv, "detail", last.Detail)
				}
				r.logger.Info("progress", kv...)
			}
			if update.State == session.StateStreamingFallback {
				r.logger.Warn("streaming over fallback transport")
			}
		case <-done:
			return result, waitErr
		}
	}
}

// MixShow prints a past mix, defaulting to the most recent session.
func (r *Runner) MixShow(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.resolveSessionID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	result, err := r.reconciler.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.printResult(result)
}

// MixList prints the session directory.
func (r *Runner) MixList(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	offset := cmd.Int("offset")

	summaries, err := r.reconciler.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, true)
	}

	if len(summaries) == 0 {
		return r.writePlain("No mixes yet. Run 'aidj mix generate \"your prompt\"'\n")
	}

	for _, s := range summaries {
		r.writePlain("%s  [%s]  %s\n", s.ID, s.Status, s.Prompt)
		if s.MixURL != "" {
			r.writePlain("    %s\n", s.MixURL)
		}
		if s.ErrorMessage != "" {
			r.writePlain("    error: %s\n", s.ErrorMessage)
		}
	}
	return nil
}

// printResult renders a MixResult as plain text.
func (r *Runner) printResult(result *mix.MixResult) error {
	r.writePlainln("Mix %s", result.SessionID)
	if result.Prompt != "" {
		r.writePlain("Prompt:   %s\n", result.Prompt)
	}
	if result.MixURL != "" {
		r.writePlain("URL:      %s\n", result.MixURL)
	}
	if result.DurationSeconds > 0 {
		r.writePlain("Duration: %dm%02ds\n", result.DurationSeconds/60, result.DurationSeconds%60)
	}
	if result.TargetBPM > 0 {
		r.writePlain("BPM:      %.0f\n", result.TargetBPM)
	}
	r.writePlain("\n")

	for i, track := range result.Tracks {
		r.writePlain("%2d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Transition != nil {
			r.writePlain("      %s, %d bars\n", track.Transition.Type, track.Transition.Bars)
		}
	}
	return nil
}

// resolveSessionID falls back to the last generated session when no id is
// given.
func (r *Runner) resolveSessionID(id string) (string, error) {
	if id != "" {
		return id, nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return "", err
	}
	last, err := repositories.NewAppStateRepository(db).Get(repositories.StateKeyLastSession)
	if err != nil {
		return "", err
	}
	if last == "" {
		return "", fmt.Errorf("%w: no session id given and none stored", shared.ErrNoSession)
	}
	return last, nil
}

// saveLastSession records the session id for later 'mix show' and
// 'bookmark add' without arguments. Best effort.
func (r *Runner) saveLastSession(sessionID string) {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("failed to open database for last session", "error", err)
		return
	}
	if err := repositories.NewAppStateRepository(db).Set(repositories.StateKeyLastSession, sessionID); err != nil {
		r.logger.Warn("failed to store last session", "error", err)
	}
}
