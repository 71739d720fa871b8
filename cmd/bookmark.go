package main

import (
	"context"
	"fmt"

	"github.com/duskview/aidj/internal/repositories"
	"github.com/duskview/aidj/internal/shared"
	"github.com/urfave/cli/v3"
)

// BookmarkAdd fetches a mix and pins it locally.
func (r *Runner) BookmarkAdd(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.resolveSessionID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	result, err := r.reconciler.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	bm, err := repositories.NewBookmarkRepository(db).Save(result)
	if err != nil {
		return err
	}

	r.logger.Info("mix bookmarked", "session", bm.SessionID, "tracks", bm.TrackCount)
	return r.writePlain("✓ Bookmarked %s (%d tracks)\n", bm.SessionID, bm.TrackCount)
}

// BookmarkList prints all pinned mixes.
func (r *Runner) BookmarkList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	bookmarks, err := repositories.NewBookmarkRepository(db).List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(bookmarks, true)
	}

	if len(bookmarks) == 0 {
		return r.writePlain("No bookmarks yet. Run 'aidj bookmark add <session-id>'\n")
	}

	for _, bm := range bookmarks {
		r.writePlain("%s  %s\n", bm.SessionID, bm.Prompt)
		r.writePlain("    %s  (%d tracks, %dm%02ds",
			bm.MixURL, bm.TrackCount, bm.DurationSeconds/60, bm.DurationSeconds%60)
		if bm.TargetBPM > 0 {
			r.writePlain(", %.0f bpm", bm.TargetBPM)
		}
		r.writePlain(")\n")
	}
	return nil
}

// BookmarkRemove deletes a pinned mix.
func (r *Runner) BookmarkRemove(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("id")
	if sessionID == "" {
		return fmt.Errorf("%w: a session id is required", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	if err := repositories.NewBookmarkRepository(db).Delete(sessionID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed bookmark for %s\n", sessionID)
}
