package core

import "io"

// Wizard steps, in order. A draft always sits on exactly one of these.
const (
	StepLocation = 1
	StepInfo     = 2
	StepMedia    = 3
	StepCategory = 4
)

// MediaFile is a raw file handle pending upload. The wizard holds these until
// submit; they are never persisted as-is.
type MediaFile struct {
	Name string
	Data io.Reader
}

// Draft is the transient in-progress marker state owned by the wizard.
// It is a superset of Marker: the marker fields plus the current step and
// any media not yet uploaded. A draft is discarded on submit success or
// explicit close, never partially persisted.
type Draft struct {
	CurrentStep int

	Location    *Location
	Name        string
	Description string
	Category    Category

	// URLs already resolved (set when editing an existing marker).
	Image string
	Audio string

	// Files selected but not yet uploaded.
	PendingImage *MediaFile
	PendingAudio *MediaFile
}

// HasLocation reports whether a coordinate has been recorded.
func (d *Draft) HasLocation() bool {
	return d.Location != nil
}
