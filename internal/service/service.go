// Package service orchestrates the marker lifecycle: it validates drafts,
// resolves media through the upload gateway, and persists through the
// repository. A create or update is atomic from the caller's perspective:
// either a complete marker comes back, or nothing was persisted.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/puntomapa/puntomapa/internal/upload"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// Repository is the persistence boundary the service writes through.
type Repository interface {
	Create(ctx context.Context, m core.Marker) (core.Marker, error)
	GetByID(ctx context.Context, id string) (core.Marker, error)
	List(ctx context.Context) ([]core.Marker, error)
	Update(ctx context.Context, id string, patch core.MarkerPatch) (core.Marker, error)
	Delete(ctx context.Context, id string) error
}

// ActivityRecorder receives marker and upload activity points. Implementations
// must tolerate being called on the request path; a nil recorder disables it.
type ActivityRecorder interface {
	RecordMarkerActivity(ctx context.Context, action string, category string)
	RecordUpload(ctx context.Context, kind string, ok bool, took time.Duration)
}

// Change is a partial update plus any newly selected media files.
type Change struct {
	Patch        core.MarkerPatch
	PendingImage *core.MediaFile
	PendingAudio *core.MediaFile
}

// MarkerService validates, uploads and persists markers.
type MarkerService struct {
	repo     Repository
	gateway  upload.Gateway
	activity ActivityRecorder
	log      zerolog.Logger

	createdCounter      metric.Int64Counter
	updatedCounter      metric.Int64Counter
	deletedCounter      metric.Int64Counter
	uploadFailedCounter metric.Int64Counter
}

// New creates a marker service. activity may be nil.
func New(repo Repository, gateway upload.Gateway, activity ActivityRecorder, log zerolog.Logger) (*MarkerService, error) {
	s := &MarkerService{
		repo:     repo,
		gateway:  gateway,
		activity: activity,
		log:      log,
	}

	m := meter()
	var err error

	s.createdCounter, err = m.Int64Counter("markers.created",
		metric.WithDescription("Markers successfully created"))
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}
	s.updatedCounter, err = m.Int64Counter("markers.updated",
		metric.WithDescription("Markers successfully updated"))
	if err != nil {
		return nil, fmt.Errorf("creating updated counter: %w", err)
	}
	s.deletedCounter, err = m.Int64Counter("markers.deleted",
		metric.WithDescription("Marker delete requests processed"))
	if err != nil {
		return nil, fmt.Errorf("creating deleted counter: %w", err)
	}
	s.uploadFailedCounter, err = m.Int64Counter("markers.upload_failures",
		metric.WithDescription("Media uploads that failed during create or update"))
	if err != nil {
		return nil, fmt.Errorf("creating upload failure counter: %w", err)
	}

	return s, nil
}

// Create validates the draft, uploads its pending media (image then audio,
// sequentially) and persists the marker. Validation happens before any
// upload so no media is stored for a request that would be rejected anyway.
// If the audio upload fails after the image succeeded, the image URL is
// discarded and nothing is persisted.
func (s *MarkerService) Create(ctx context.Context, draft core.Draft) (core.Marker, error) {
	if err := validateDraft(draft); err != nil {
		return core.Marker{}, err
	}

	imageURL, audioURL, err := s.resolveMedia(ctx, draft.Image, draft.Audio, draft.PendingImage, draft.PendingAudio)
	if err != nil {
		return core.Marker{}, err
	}

	marker := core.Marker{
		Location:    *draft.Location,
		Name:        draft.Name,
		Description: draft.Description,
		Category:    draft.Category,
		Image:       imageURL,
		Audio:       audioURL,
	}

	created, err := s.repo.Create(ctx, marker)
	if err != nil {
		return core.Marker{}, &core.PersistenceError{Op: "create", Err: err}
	}

	s.createdCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(created.Category))))
	if s.activity != nil {
		s.activity.RecordMarkerActivity(ctx, "create", string(created.Category))
	}
	s.log.Info().Str("id", created.ID).Str("category", string(created.Category)).Msg("Marker created")
	return created, nil
}

// Update applies a partial change to an existing marker. New media files are
// uploaded first (image then audio); a patch that carries no media leaves
// the stored URLs untouched. Any upload failure aborts the whole update.
func (s *MarkerService) Update(ctx context.Context, id string, change Change) (core.Marker, error) {
	if err := validatePatch(change.Patch); err != nil {
		return core.Marker{}, err
	}

	patch := change.Patch
	if change.PendingImage != nil {
		res, err := s.uploadOne(ctx, change.PendingImage, upload.KindImage)
		if err != nil {
			return core.Marker{}, err
		}
		patch.Image = &res.URL
	}
	if change.PendingAudio != nil {
		res, err := s.uploadOne(ctx, change.PendingAudio, upload.KindAudio)
		if err != nil {
			// the freshly uploaded image URL (if any) is dropped with the
			// rest of the patch; nothing has been persisted yet
			return core.Marker{}, err
		}
		patch.Audio = &res.URL
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Marker{}, core.ErrNotFound
		}
		return core.Marker{}, &core.PersistenceError{Op: "update", Err: err}
	}

	s.updatedCounter.Add(ctx, 1)
	if s.activity != nil {
		s.activity.RecordMarkerActivity(ctx, "update", string(updated.Category))
	}
	s.log.Info().Str("id", id).Msg("Marker updated")
	return updated, nil
}

// Get returns a single marker.
func (s *MarkerService) Get(ctx context.Context, id string) (core.Marker, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Marker{}, core.ErrNotFound
		}
		return core.Marker{}, &core.PersistenceError{Op: "get", Err: err}
	}
	return m, nil
}

// List returns all markers.
func (s *MarkerService) List(ctx context.Context) ([]core.Marker, error) {
	markers, err := s.repo.List(ctx)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list", Err: err}
	}
	return markers, nil
}

// Delete removes a marker. Deleting an unknown identifier succeeds.
func (s *MarkerService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return &core.PersistenceError{Op: "delete", Err: err}
	}

	s.deletedCounter.Add(ctx, 1)
	if s.activity != nil {
		s.activity.RecordMarkerActivity(ctx, "delete", "")
	}
	return nil
}

// resolveMedia uploads pending files in a fixed order: image, then audio.
// Pre-resolved URLs (from an edit seeding the draft) pass through unchanged.
func (s *MarkerService) resolveMedia(ctx context.Context, imageURL, audioURL string, image, audio *core.MediaFile) (string, string, error) {
	if image != nil {
		res, err := s.uploadOne(ctx, image, upload.KindImage)
		if err != nil {
			return "", "", err
		}
		imageURL = res.URL
	}
	if audio != nil {
		res, err := s.uploadOne(ctx, audio, upload.KindAudio)
		if err != nil {
			return "", "", err
		}
		audioURL = res.URL
	}
	return imageURL, audioURL, nil
}

// uploadOne runs a single gateway upload and records its outcome. The
// service never retries; retry policy belongs to the interactive caller.
func (s *MarkerService) uploadOne(ctx context.Context, file *core.MediaFile, kind upload.Kind) (core.UploadResult, error) {
	start := time.Now()
	res, err := s.gateway.Upload(ctx, file.Data, file.Name, kind)
	took := time.Since(start)

	if s.activity != nil {
		s.activity.RecordUpload(ctx, string(kind), err == nil, took)
	}
	if err != nil {
		s.uploadFailedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("Media upload failed")
		return core.UploadResult{}, err
	}
	return res, nil
}

func validateDraft(d core.Draft) error {
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
	return nil
}

func validatePatch(p core.MarkerPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return &core.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if p.Category != nil && !p.Category.Valid() {
		return &core.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", *p.Category)}
	}
	return nil
}
