// package services defines clients for the mix generation backend's HTTP API
package services

import (
	"context"

	"github.com/duskview/aidj/internal/mix"
)

// MixAPI is the HTTP surface of the generation backend.
//
// GenerateMix submits a prompt and returns the session id plus the
// pre-stream playlist skeleton. GetMix fetches the canonical persisted
// record for a session. ListMixes returns the session directory.
type MixAPI interface {
	GenerateMix(ctx context.Context, prompt string, durationMinutes int) (*GenerateResponse, error)
	GetMix(ctx context.Context, sessionID string) (*MixRecord, error)
	ListMixes(ctx context.Context, limit, offset int) ([]mix.SessionSummary, error)

	// Authenticated reports whether a generation credential is held.
	Authenticated() bool
}

// GenerateResponse is the body of a successful POST /mix/generate.
type GenerateResponse struct {
	SessionID        string      `json:"session_id"`
	Status           string      `json:"status"`
	Message          string      `json:"message"`
	Playlist         []TrackInfo `json:"playlist"`
	TargetBPM        float64     `json:"target_bpm"`
	EstimatedMinutes float64     `json:"estimated_duration_minutes"`
}

// TrackInfo is a playlist entry as returned by the orchestrator service.
type TrackInfo struct {
	SpotifyID    string            `json:"spotify_id"`
	Title        string            `json:"title"`
	Artist       string            `json:"artist"`
	DurationMS   int               `json:"duration_ms"`
	Key          string            `json:"key"`
	Energy       float64           `json:"energy"`
	Danceability float64           `json:"danceability"`
	Transition   *TransitionConfig `json:"transition,omitempty"`
}

// TransitionConfig mirrors the orchestrator's transition payload.
type TransitionConfig struct {
	Type      string `json:"type"`
	Bars      int    `json:"bars"`
	Direction string `json:"direction,omitempty"`
}

// MixRecord is the canonical persisted record from GET /api/mixes/{id}.
type MixRecord struct {
	Session     mix.SessionSummary `json:"session"`
	Tracks      []RecordTrack      `json:"tracks"`
	Transitions []RecordTransition `json:"transitions"`
}

// RecordTrack is a persisted track row, ordered by TrackOrder.
type RecordTrack struct {
	ID           string  `json:"id"`
	SpotifyID    string  `json:"spotify_id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist"`
	Album        string  `json:"album"`
	DurationMS   int     `json:"duration_ms"`
	Key          string  `json:"key"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	TrackOrder   int     `json:"track_order"`
}

// RecordTransition is a persisted transition row keyed by the orders of the
// tracks it joins.
type RecordTransition struct {
	FromTrackOrder int    `json:"from_track_order"`
	ToTrackOrder   int    `json:"to_track_order"`
	Type           string `json:"transition_type"`
	Bars           int    `json:"transition_bars"`
	Direction      string `json:"transition_direction,omitempty"`
}

// SkeletonResult converts a generate response into the pre-stream MixResult
// skeleton the orchestrator holds until reconciliation.
func (g *GenerateResponse) SkeletonResult(prompt string) *mix.MixResult {
	result := &mix.MixResult{
		SessionID:       g.SessionID,
		Prompt:          prompt,
		TargetBPM:       g.TargetBPM,
		DurationSeconds: int(g.EstimatedMinutes * 60),
		Tracks:          make([]mix.Track, 0, len(g.Playlist)),
	}
	for i, t := range g.Playlist {
		track := mix.Track{
			ID:           t.SpotifyID,
			Title:        t.Title,
			Artist:       t.Artist,
			DurationMS:   t.DurationMS,
			Key:          t.Key,
			Energy:       t.Energy,
			Danceability: t.Danceability,
		}
		// No outbound transition on the final track.
		if t.Transition != nil && i < len(g.Playlist)-1 {
			track.Transition = &mix.Transition{
				Type:      mix.TransitionType(t.Transition.Type),
				Bars:      t.Transition.Bars,
				Direction: t.Transition.Direction,
			}
		}
		result.Tracks = append(result.Tracks, track)
	}
	return result
}

// ResultFromRecord converts the canonical record into a MixResult. Tracks
// keep their persisted order; transitions attach to the track whose order
// matches from_track_order.
func ResultFromRecord(rec *MixRecord) *mix.MixResult {
	byFrom := make(map[int]RecordTransition, len(rec.Transitions))
	for _, tr := range rec.Transitions {
		byFrom[tr.FromTrackOrder] = tr
	}

	result := &mix.MixResult{
		SessionID:       rec.Session.ID,
		Prompt:          rec.Session.Prompt,
		MixURL:          rec.Session.MixURL,
		DurationSeconds: int(rec.Session.EstimatedMinutes * 60),
		Tracks:          make([]mix.Track, 0, len(rec.Tracks)),
	}
	for i, t := range rec.Tracks {
		track := mix.Track{
			ID:           t.SpotifyID,
			Title:        t.Title,
			Artist:       t.Artist,
			DurationMS:   t.DurationMS,
			Key:          t.Key,
			Energy:       t.Energy,
			Danceability: t.Danceability,
		}
		if tr, ok := byFrom[t.TrackOrder]; ok && i < len(rec.Tracks)-1 {
			track.Transition = &mix.Transition{
				Type:      mix.TransitionType(tr.Type),
				Bars:      tr.Bars,
				Direction: tr.Direction,
			}
		}
		result.Tracks = append(result.Tracks, track)
	}
	return result
}
