package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleResult(sessionID string) *mix.MixResult {
	return &mix.MixResult{
		SessionID:       sessionID,
		Prompt:          "deep house for a rainy night",
		MixURL:          "https://cdn.example.com/mixes/" + sessionID + ".mp3",
		DurationSeconds: 1800,
		TargetBPM:       122,
		Tracks: []mix.Track{
			{
				ID: "t1", Title: "Night Drive", Artist: "Analog City", DurationMS: 312000,
				Transition: &mix.Transition{Type: mix.TransitionCrossfade, Bars: 8},
			},
			{ID: "t2", Title: "Rain Static", Artist: "Vel", DurationMS: 275000},
		},
	}
}

func TestBookmarkRepository(t *testing.T) {
	t.Run("SaveAndGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		saved, err := repo.Save(sampleResult("sess-1"))
		if err != nil {
			t.Fatalf("failed to save bookmark: %v", err)
		}
		if saved.ID == "" {
			t.Error("bookmark ID should be set after save")
		}
		if saved.TrackCount != 2 {
			t.Errorf("TrackCount = %d, want 2", saved.TrackCount)
		}

		got, err := repo.GetBySession("sess-1")
		if err != nil {
			t.Fatalf("failed to get bookmark: %v", err)
		}
		if got.Prompt != "deep house for a rainy night" {
			t.Errorf("Prompt = %q", got.Prompt)
		}
		if got.Result == nil || len(got.Result.Tracks) != 2 {
			t.Fatal("bookmark payload did not round-trip")
		}
		if got.Result.Tracks[0].Transition == nil || got.Result.Tracks[0].Transition.Type != mix.TransitionCrossfade {
			t.Error("track transition lost in payload")
		}
	})

	t.Run("SaveTwiceUpserts", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if _, err := repo.Save(sampleResult("sess-1")); err != nil {
			t.Fatalf("first save: %v", err)
		}

		updated := sampleResult("sess-1")
		updated.MixURL = "https://cdn.example.com/mixes/sess-1-v2.mp3"
		if _, err := repo.Save(updated); err != nil {
			t.Fatalf("second save: %v", err)
		}

		list, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("len(list) = %d, want 1", len(list))
		}
		if list[0].MixURL != updated.MixURL {
			t.Errorf("MixURL = %q, want refreshed url", list[0].MixURL)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if _, err := repo.GetBySession("nope"); !errors.Is(err, shared.ErrMixNotFound) {
			t.Errorf("error = %v, want ErrMixNotFound", err)
		}
	})

	t.Run("SaveRejectsEmptySession", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if _, err := repo.Save(&mix.MixResult{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewBookmarkRepository(db)
		if _, err := repo.Save(sampleResult("sess-1")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.Delete("sess-1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete("sess-1"); !errors.Is(err, shared.ErrMixNotFound) {
			t.Errorf("second delete error = %v, want ErrMixNotFound", err)
		}
	})
}

func TestAppStateRepository(t *testing.T) {
	t.Run("SetGet", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		if err := repo.Set(StateKeyCredential, "token-abc"); err != nil {
			t.Fatalf("set: %v", err)
		}

		got, err := repo.Get(StateKeyCredential)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "token-abc" {
			t.Errorf("value = %q, want token-abc", got)
		}
	})

	t.Run("GetUnsetReturnsEmpty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		got, err := repo.Get(StateKeyLastSession)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "" {
			t.Errorf("value = %q, want empty", got)
		}
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		if err := repo.Set(StateKeyLastSession, "sess-1"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := repo.Set(StateKeyLastSession, "sess-2"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}

		got, _ := repo.Get(StateKeyLastSession)
		if got != "sess-2" {
			t.Errorf("value = %q, want sess-2", got)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAppStateRepository(db)
		if err := repo.Set(StateKeyCredential, "token"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := repo.Delete(StateKeyCredential); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.Delete(StateKeyCredential); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		got, _ := repo.Get(StateKeyCredential)
		if got != "" {
			t.Errorf("value after delete = %q, want empty", got)
		}
	})
}
