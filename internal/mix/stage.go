package mix

// Stage is one discrete phase of mix generation. Stages are ordered; a
// session only moves forward through them, except for StageError which is
// reachable from anywhere.
type Stage int

const (
	StageIdle Stage = iota
	StageInterpreting
	StageFetching
	StageDownloading
	StageAnalyzing
	StageRendering
	StageUploading
	StageComplete
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageInterpreting:
		return "interpreting"
	case StageFetching:
		return "fetching"
	case StageDownloading:
		return "downloading"
	case StageAnalyzing:
		return "analyzing"
	case StageRendering:
		return "rendering"
	case StageUploading:
		return "uploading"
	case StageComplete:
		return "complete"
	case StageError:
		return "error"
	default:
		return ""
	}
}

// Terminal reports whether no further stage transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// ParseStage maps a wire stage tag to a Stage. The live pipeline still emits
// the legacy "searching" and "processing" tags, which map to interpreting and
// fetching. Unknown tags return ok=false and must be ignored by the caller.
func ParseStage(tag string) (Stage, bool) {
	switch tag {
	case "idle":
		return StageIdle, true
	case "interpreting", "searching":
		return StageInterpreting, true
	case "fetching", "processing":
		return StageFetching, true
	case "downloading":
		return StageDownloading, true
	case "analyzing":
		return StageAnalyzing, true
	case "rendering":
		return StageRendering, true
	case "uploading":
		return StageUploading, true
	case "complete":
		return StageComplete, true
	case "error":
		return StageError, true
	default:
		return StageIdle, false
	}
}

// StageRecord is the client's view of generation progress: the current
// stage, an overall percentage, and free-text detail from the backend.
// Source identifies which upstream subsystem produced the update (e.g.
// "librespot", "ytdlp") and CurrentItem labels the in-flight track.
type StageRecord struct {
	Stage       Stage  `json:"stage"`
	Percent     int    `json:"percent"`
	Detail      string `json:"detail"`
	Source      string `json:"source,omitempty"`
	CurrentItem string `json:"current_item,omitempty"`
}

// StageUpdate is a partial StageRecord arriving from a transport. Empty
// optional fields retain the prior record's values.
type StageUpdate struct {
	Stage       Stage
	Percent     int
	Detail      string
	Source      string
	CurrentItem string
}

// IdleRecord returns the zero-progress record a new or cancelled session
// starts from.
func IdleRecord() StageRecord {
	return StageRecord{Stage: StageIdle, Percent: 0, Detail: ""}
}

// Apply merges an incoming update into the record and returns the result.
//
// Rules:
//   - a terminal record (complete or error) rejects every further update
//   - an update whose stage is error always applies
//   - an update whose stage would move backward is a no-op
//   - percent never decreases; stage ordering is authoritative, so a
//     forward stage with a lower percent applies but keeps the higher
//     percent
//
// Duplicate updates are idempotent, which makes replays across a transport
// handoff safe. Apply has no side effects.
func (r StageRecord) Apply(in StageUpdate) StageRecord {
	if r.Stage.Terminal() {
		return r
	}

	if in.Stage == StageError {
		r.Stage = StageError
		if in.Detail != "" {
			r.Detail = in.Detail
		}
		return r
	}

	if in.Stage < r.Stage {
		return r
	}

	r.Stage = in.Stage
	if in.Percent > r.Percent {
		r.Percent = in.Percent
	}
	if in.Detail != "" {
		r.Detail = in.Detail
	}
	if in.Source != "" {
		r.Source = in.Source
	}
	if in.CurrentItem != "" {
		r.CurrentItem = in.CurrentItem
	}
	return r
}
