package jobs

import (
	"time"

	"split-compositor/internal/layout"
)

// RunID uniquely identifies a composition run.
type RunID string

// Status is the lifecycle state reported for a run.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further updates are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the payload submitted by the queue producer.
type Job struct {
	RunID             RunID         `json:"run_id"`
	PrimaryAssetKey   string        `json:"primary_asset_key"`
	SecondaryAssetKey string        `json:"secondary_asset_key"`
	LayoutConfig      layout.Config `json:"layout_config"`
}

// JobState is the status record of a run.
// A completed run carries OutputAssetKey; a failed one ErrorKind and ErrorDetail.
type JobState struct {
	RunID            RunID  `json:"run_id"`
	Status           Status `json:"status"`
	Stage            string `json:"stage,omitempty"`
	Progress         int    `json:"progress"`
	OutputAssetKey   string `json:"output_asset_key,omitempty"`
	SizeInBytes      int    `json:"size_in_bytes,omitempty"`
	ErrorKind        string `json:"error_kind,omitempty"`
	ErrorDetail      string `json:"error_detail,omitempty"`
	ClientError      bool   `json:"client_error,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`

	// Metadata managed by the service (not exposed in the API).
	Job       Job       `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
