// Package wizard drives the four-step marker input sequence: location,
// basic info, media, category. Advancement is gated on per-step validity;
// retreat is always allowed and never loses data. One wizard owns one draft
// for its whole life.
package wizard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/puntomapa/puntomapa/pkg/core"
)

var (
	// ErrClosed is returned once the draft has been discarded, either by a
	// successful submit or an explicit Close.
	ErrClosed = errors.New("wizard is closed")

	// ErrSubmitInFlight is returned when Submit is called while a previous
	// Submit is still running. The first submit runs to completion; it is
	// never raced or canceled.
	ErrSubmitInFlight = errors.New("a submit is already in flight")

	// ErrNotAtFinalStep is returned when Submit is called before step 4.
	ErrNotAtFinalStep = errors.New("submit is only allowed at the category step")

	// ErrAtFinalStep is returned when Advance is called at step 4.
	ErrAtFinalStep = errors.New("already at the final step")
)

// Uploader resolves a pending media file to a stable URL. kind is "image"
// or "audio". The wizard retries only when the user asks; the uploader
// itself must not retry.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string, kind string) (core.UploadResult, error)
}

// Submitter persists the assembled marker. It is the boundary to the
// marker service, either in-process or over HTTP.
type Submitter interface {
	CreateMarker(ctx context.Context, draft core.Draft) (core.Marker, error)
	UpdateMarker(ctx context.Context, id string, patch core.MarkerPatch) (core.Marker, error)
}

// Config is the wizard policy, fixed at construction. Whether media is
// mandatory is an explicit deployment decision, never inferred from which
// code path created the wizard.
type Config struct {
	RequireMedia bool
}

// Wizard is a finite state machine over the four input steps.
type Wizard struct {
	mu        sync.Mutex
	cfg       Config
	uploader  Uploader
	submitter Submitter

	draft      *core.Draft
	editID     string // set when the draft was seeded from an existing marker
	submitting bool
	submitErr  error
}

// New opens a wizard with a fresh draft at the location step.
func New(cfg Config, uploader Uploader, submitter Submitter) *Wizard {
	return &Wizard{
		cfg:       cfg,
		uploader:  uploader,
		submitter: submitter,
		draft:     &core.Draft{CurrentStep: core.StepLocation},
	}
}

// NewFromMarker opens a wizard in edit mode, seeding the draft from an
// existing marker. Resolved media URLs carry over; there are no pending
// files until the user selects new ones.
func NewFromMarker(cfg Config, uploader Uploader, submitter Submitter, m core.Marker) *Wizard {
	loc := m.Location
	return &Wizard{
		cfg:       cfg,
		uploader:  uploader,
		submitter: submitter,
		editID:    m.ID,
		draft: &core.Draft{
			CurrentStep: core.StepLocation,
			Location:    &loc,
			Name:        m.Name,
			Description: m.Description,
			Category:    m.Category,
			Image:       m.Image,
			Audio:       m.Audio,
		},
	}
}

// CurrentStep returns the step the wizard is on, or 0 when closed.
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return 0
	}
	return w.draft.CurrentStep
}

// SubmitErr returns the error of the last failed submit, if any. It is
// cleared by the next submit attempt.
func (w *Wizard) SubmitErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitErr
}

// RecordCoordinate overwrites the draft location with full precision. It is
// callable from any step, since the map stays interactive while the wizard
// is open.
func (w *Wizard) RecordCoordinate(lat, lng float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	w.draft.Location = &core.Location{Lat: lat, Lng: lng}
	return nil
}

// SetInfo records the name and description for the info step.
func (w *Wizard) SetInfo(name, description string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	w.draft.Name = name
	w.draft.Description = description
	return nil
}

// AttachImage records a pending image file, replacing any earlier selection.
// The file is buffered in full so a submit retry replays the same bytes.
func (w *Wizard) AttachImage(filename string, data io.Reader) error {
	buffered, err := bufferMedia(data)
	if err != nil {
		return fmt.Errorf("reading image file: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	w.draft.PendingImage = &core.MediaFile{Name: filename, Data: buffered}
	return nil
}

// AttachAudio records a pending audio file, replacing any earlier selection.
// The file is buffered in full so a submit retry replays the same bytes.
func (w *Wizard) AttachAudio(filename string, data io.Reader) error {
	buffered, err := bufferMedia(data)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	w.draft.PendingAudio = &core.MediaFile{Name: filename, Data: buffered}
	return nil
}

// bufferMedia copies the selected file into memory. A pending file can be
// uploaded more than once (a retry after a failed submit), so the wizard
// must never hold a reader that is spent after the first attempt.
func bufferMedia(data io.Reader) (io.ReadSeeker, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// SelectCategory records the category choice for the final step.
func (w *Wizard) SelectCategory(c core.Category) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	w.draft.Category = c
	return nil
}

// Advance moves to the next step if the current step's required fields are
// present. On a gate failure the step does not change and a validation
// error describes the missing field.
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}

	switch w.draft.CurrentStep {
	case core.StepLocation:
		if !w.draft.HasLocation() {
			return &core.ValidationError{Field: "location", Reason: "both coordinates are required"}
		}
	case core.StepInfo:
		if strings.TrimSpace(w.draft.Name) == "" {
			return &core.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		if strings.TrimSpace(w.draft.Description) == "" {
			return &core.ValidationError{Field: "description", Reason: "must not be empty"}
		}
	case core.StepMedia:
		// media is optional at the step gate; the requireMedia policy is
		// enforced at submit so attaching can happen in either order
	case core.StepCategory:
		return ErrAtFinalStep
	}

	w.draft.CurrentStep++
	return nil
}

// Retreat moves back one step unconditionally. No fields are cleared.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return ErrClosed
	}
	if w.draft.CurrentStep > core.StepLocation {
		w.draft.CurrentStep--
	}
	return nil
}

// Close discards the draft. An in-flight submit still runs to completion.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = nil
}

// Submit freezes the draft, uploads pending media (image then audio) and
// hands the result to the submitter. It is only permitted at step 4.
//
// On upload failure the wizard stays open at step 4 with the error
// retained; the draft is never silently dropped. On success the draft is
// discarded and the canonical marker returned.
func (w *Wizard) Submit(ctx context.Context) (core.Marker, error) {
	w.mu.Lock()
	if w.draft == nil {
		w.mu.Unlock()
		return core.Marker{}, ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return core.Marker{}, ErrSubmitInFlight
	}
	if w.draft.CurrentStep != core.StepCategory {
		w.mu.Unlock()
		return core.Marker{}, ErrNotAtFinalStep
	}
	if err := w.precheck(); err != nil {
		w.mu.Unlock()
		return core.Marker{}, err
	}

	frozen := *w.draft
	w.submitting = true
	w.submitErr = nil
	w.mu.Unlock()

	marker, err := w.submit(ctx, frozen)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.submitErr = err
		return core.Marker{}, err
	}
	w.draft = nil
	return marker, nil
}

// precheck validates the frozen draft before any upload starts, so no media
// is stored for a submit that would be rejected anyway. Caller holds the lock.
func (w *Wizard) precheck() error {
	d := w.draft
	if !d.HasLocation() {
		return &core.ValidationError{Field: "location", Reason: "both coordinates are required"}
	}
	if strings.TrimSpace(d.Name) == "" {
		return &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &core.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !d.Category.Valid() {
		return &core.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", d.Category)}
	}
	if w.cfg.RequireMedia {
		if d.PendingImage == nil && d.Image == "" {
			return &core.ValidationError{Field: "image", Reason: "an image is required"}
		}
		if d.PendingAudio == nil && d.Audio == "" {
			return &core.ValidationError{Field: "audio", Reason: "an audio recording is required"}
		}
	}
	return nil
}

func (w *Wizard) submit(ctx context.Context, d core.Draft) (core.Marker, error) {
	imageURL := d.Image
	audioURL := d.Audio

	if d.PendingImage != nil {
		res, err := w.uploadPending(ctx, d.PendingImage, "image")
		if err != nil {
			return core.Marker{}, err
		}
		imageURL = res.URL
	}
	if d.PendingAudio != nil {
		res, err := w.uploadPending(ctx, d.PendingAudio, "audio")
		if err != nil {
			return core.Marker{}, err
		}
		audioURL = res.URL
	}

	if w.editID != "" {
		patch := core.MarkerPatch{
			Location:    d.Location,
			Name:        &d.Name,
			Description: &d.Description,
			Category:    &d.Category,
		}
		if imageURL != "" {
			patch.Image = &imageURL
		}
		if audioURL != "" {
			patch.Audio = &audioURL
		}
		return w.submitter.UpdateMarker(ctx, w.editID, patch)
	}

	out := core.Draft{
		Location:    d.Location,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Image:       imageURL,
		Audio:       audioURL,
	}
	return w.submitter.CreateMarker(ctx, out)
}

// uploadPending rewinds the buffered file and uploads it. A previous failed
// submit may have consumed the reader partway or in full.
func (w *Wizard) uploadPending(ctx context.Context, f *core.MediaFile, kind string) (core.UploadResult, error) {
	if seeker, ok := f.Data.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return core.UploadResult{}, fmt.Errorf("rewinding %s file: %w", kind, err)
		}
	}
	return w.uploader.Upload(ctx, f.Data, f.Name, kind)
}
