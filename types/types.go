package types

import "time"

// TimeConfidence describes how trustworthy a capture timestamp is.
// Higher values win ties during representative selection.
type TimeConfidence int

const (
	// ConfidenceUnknown means no timestamp could be derived at all.
	ConfidenceUnknown TimeConfidence = iota
	// ConfidenceFileTime means the timestamp came from the file's
	// modification time, which may reflect a copy rather than capture.
	ConfidenceFileTime
	// ConfidenceExact means the timestamp came from embedded capture
	// metadata or a sidecar written at capture time.
	ConfidenceExact
)

// String returns the manifest representation of the confidence tier.
func (c TimeConfidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceFileTime:
		return "filetime"
	default:
		return "unknown"
	}
}

// PhotoRecord holds everything the pipeline knows about one source file.
// Records are immutable once extraction completes; re-extraction produces
// a new record rather than mutating an old one.
type PhotoRecord struct {
	SourcePath     string         `json:"source_path"`
	ContentHash    string         `json:"content_hash"`
	AverageHash    string         `json:"average_hash"`
	PerceptualHash string         `json:"perceptual_hash"`
	Embedding      []float32      `json:"-"`
	CaptureTime    *time.Time     `json:"capture_time,omitempty"`
	TimeConfidence TimeConfidence `json:"time_confidence"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Format         string         `json:"format"`
	FileSize       int64          `json:"file_size"`

	// Unreadable records are excluded from grouping but kept so the
	// manifest can report their fate.
	Unreadable bool  `json:"unreadable,omitempty"`
	Err        error `json:"-"`
}

// Pixels returns the total pixel count used for resolution tie-breaks.
func (r PhotoRecord) Pixels() int {
	return r.Width * r.Height
}

// DuplicateGroup is a set of record indices believed to be the same photo.
// Members are connected by similarity edges under the active thresholds;
// the connection is transitive, not pairwise.
type DuplicateGroup struct {
	ID      int   `json:"id"`
	Members []int `json:"members"`

	// Representative is the arena index of the authoritative copy,
	// -1 until selection has run. The representative is only marked,
	// never moved or deleted from its source.
	Representative int `json:"representative"`
}

// Action is what the plan intends to do with an entry.
type Action string

const (
	// ActionCopy copies the representative's bytes verbatim.
	ActionCopy Action = "copy"
	// ActionCopyConvert converts a RAW representative through the
	// external converter before placing it.
	ActionCopyConvert Action = "copy-convert"
	// ActionSkipExisting marks an entry whose destination already held
	// identical content, making the apply a no-op.
	ActionSkipExisting Action = "skip-existing"
	// ActionSkipDuplicate marks a non-representative group member that
	// stays untouched in its source location.
	ActionSkipDuplicate Action = "skip-duplicate"
)

// PlanEntry is one planned placement. Entries carry everything the
// executor needs so the record arena can be discarded once the plan exists.
type PlanEntry struct {
	GroupID     int            `json:"group_id"`
	SourcePath  string         `json:"source_path"`
	DestPath    string         `json:"dest_path"`
	Action      Action         `json:"action"`
	ContentHash string         `json:"content_hash"`
	CaptureTime *time.Time     `json:"capture_time,omitempty"`
	Confidence  TimeConfidence `json:"time_confidence"`
}

// ConsolidationPlan maps every surviving group to a destination.
// It is built once per run and applied entry by entry; it is never
// partially retried.
type ConsolidationPlan struct {
	DestRoot string      `json:"dest_root"`
	Entries  []PlanEntry `json:"entries"`
}
