package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duskview/aidj/internal/shared"
)

func TestGenerateMix(t *testing.T) {
	t.Run("submits prompt with bearer token", func(t *testing.T) {
		var gotAuth, gotPrompt string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/mix/generate" {
				http.NotFound(w, r)
				return
			}
			gotAuth = r.Header.Get("Authorization")

			var body struct {
				Prompt          string `json:"prompt"`
				DurationMinutes int    `json:"duration_minutes"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			gotPrompt = body.Prompt

			json.NewEncoder(w).Encode(map[string]any{
				"session_id": "sess-1",
				"status":     "accepted",
				"target_bpm": 124,
				"playlist": []map[string]any{
					{"spotify_id": "t1", "title": "Night Drive", "artist": "Analog City",
						"transition": map[string]any{"type": "crossfade", "bars": 8}},
					{"spotify_id": "t2", "title": "Rain Static", "artist": "Vel"},
				},
			})
		}))
		defer srv.Close()

		svc := NewBackendService(srv.URL, "token-abc", srv.Client(), 0)
		resp, err := svc.GenerateMix(context.Background(), "late night drive", 30)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		if gotAuth != "Bearer token-abc" {
			t.Errorf("Authorization = %q", gotAuth)
		}
		if gotPrompt != "late night drive" {
			t.Errorf("prompt = %q", gotPrompt)
		}
		if resp.SessionID != "sess-1" || len(resp.Playlist) != 2 {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("requires credential", func(t *testing.T) {
		svc := NewBackendService("http://localhost:0", "", nil, 0)
		if _, err := svc.GenerateMix(context.Background(), "x", 30); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("error = %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("surfaces backend error body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "prompt too vague"})
		}))
		defer srv.Close()

		svc := NewBackendService(srv.URL, "token", srv.Client(), 0)
		_, err := svc.GenerateMix(context.Background(), "x", 30)
		if !errors.Is(err, shared.ErrSubmission) {
			t.Fatalf("error = %v, want ErrSubmission", err)
		}
	})

	t.Run("rejects response without session id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
		}))
		defer srv.Close()

		svc := NewBackendService(srv.URL, "token", srv.Client(), 0)
		if _, err := svc.GenerateMix(context.Background(), "x", 30); !errors.Is(err, shared.ErrSubmission) {
			t.Fatalf("error = %v, want ErrSubmission", err)
		}
	})
}

func TestGetMix(t *testing.T) {
	t.Run("decodes record", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/mixes/sess-1" {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"session": map[string]any{"id": "sess-1", "prompt": "p", "status": "complete", "cdn_url": "https://cdn/x.mp3"},
				"tracks": []map[string]any{
					{"spotify_id": "t1", "title": "A", "artist": "B", "track_order": 0},
				},
				"transitions": []map[string]any{},
			})
		}))
		defer srv.Close()

		svc := NewBackendService(srv.URL, "token", srv.Client(), 0)
		record, err := svc.GetMix(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if record.Session.MixURL != "https://cdn/x.mp3" || len(record.Tracks) != 1 {
			t.Errorf("record = %+v", record)
		}
	})

	t.Run("maps 404", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
		defer srv.Close()

		svc := NewBackendService(srv.URL, "token", srv.Client(), 0)
		if _, err := svc.GetMix(context.Background(), "nope"); !errors.Is(err, shared.ErrMixNotFound) {
			t.Fatalf("error = %v, want ErrMixNotFound", err)
		}
	})
}

func TestListMixes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		if got := r.URL.Query().Get("offset"); got != "10" {
			t.Errorf("offset = %q, want 10", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"mixes": []map[string]any{
				{"id": "sess-2", "prompt": "b", "status": "complete"},
				{"id": "sess-1", "prompt": "a", "status": "error", "error_message": "boom"},
			},
		})
	}))
	defer srv.Close()

	svc := NewBackendService(srv.URL, "token", srv.Client(), 0)
	mixes, err := svc.ListMixes(context.Background(), 5, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mixes) != 2 || mixes[0].ID != "sess-2" {
		t.Errorf("mixes = %+v", mixes)
	}
	if mixes[1].ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q", mixes[1].ErrorMessage)
	}
}

func TestSkeletonResult(t *testing.T) {
	g := &GenerateResponse{
		SessionID:        "sess-1",
		TargetBPM:        124,
		EstimatedMinutes: 30,
		Playlist: []TrackInfo{
			{SpotifyID: "t1", Title: "A", Artist: "X", Transition: &TransitionConfig{Type: "crossfade", Bars: 8}},
			{SpotifyID: "t2", Title: "B", Artist: "Y", Transition: &TransitionConfig{Type: "echo_out", Bars: 4}},
		},
	}

	result := g.SkeletonResult("my prompt")
	if result.Prompt != "my prompt" || result.DurationSeconds != 1800 {
		t.Errorf("result = %+v", result)
	}
	if result.Tracks[0].Transition == nil {
		t.Error("first track lost its transition")
	}
	// The final track never carries an outbound transition.
	if result.Tracks[1].Transition != nil {
		t.Error("last track should have no transition")
	}
}
