// package mix defines the data model for AI mix generation sessions.
//
// A Session tracks one generation request from submit to completion. The
// StageRecord stream describes its progress; the MixResult is the final
// playable artifact assembled by reconciliation.
package mix

import "time"

// TransitionType enumerates how one track blends into the next.
type TransitionType string

const (
	TransitionCrossfade   TransitionType = "crossfade"
	TransitionEchoOut     TransitionType = "echo_out"
	TransitionFilterSweep TransitionType = "filter_sweep"
	TransitionBackspin    TransitionType = "backspin"
)

// Transition describes how a track blends into its successor.
// The last track of a playlist carries no transition.
type Transition struct {
	Type      TransitionType `json:"type"`
	Bars      int            `json:"bars"`
	Direction string         `json:"direction,omitempty"`
}

// Track is one entry of a mix playlist.
type Track struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Artist       string      `json:"artist"`
	DurationMS   int         `json:"duration_ms"`
	Key          string      `json:"key"`
	Energy       float64     `json:"energy"`
	Danceability float64     `json:"danceability"`
	Transition   *Transition `json:"transition,omitempty"`
}

// MixResult is the final playable result of a session. Once published by the
// orchestrator it is never mutated; a new mix requires a new session.
type MixResult struct {
	SessionID       string  `json:"session_id"`
	Prompt          string  `json:"prompt"`
	MixURL          string  `json:"mix_url"`
	DurationSeconds int     `json:"duration_seconds"`
	TargetBPM       float64 `json:"target_bpm"`
	Tracks          []Track `json:"tracks"` // insertion order is play order
}

// Session is one in-flight generation request. The orchestrator owns the
// active session exclusively; it is replaced on cancel or on a new start.
type Session struct {
	ID              string
	Prompt          string
	DurationMinutes int
	StartedAt       time.Time
	Skeleton        *MixResult // pre-stream playlist captured at submit
}

// SessionSummary is a directory entry for a previously created session.
type SessionSummary struct {
	ID               string     `json:"id"`
	Prompt           string     `json:"prompt"`
	Status           string     `json:"status"`
	MixURL           string     `json:"cdn_url,omitempty"`
	EstimatedMinutes float64    `json:"estimated_duration_minutes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}
