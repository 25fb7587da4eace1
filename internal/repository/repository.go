// Package repository is the persistence boundary for markers: CRUD over an
// identifier-keyed store. Identifiers are assigned here on create and are
// immutable afterwards.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/puntomapa/puntomapa/internal/model"
	"github.com/puntomapa/puntomapa/internal/model/convert"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// MarkerRepository persists markers through GORM.
type MarkerRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a marker repository on top of an open DB handle.
func New(db *gorm.DB, log zerolog.Logger) *MarkerRepository {
	return &MarkerRepository{db: db, log: log}
}

// Create stores a new marker, assigning its identifier and timestamps.
// The returned marker is the canonical persisted record.
func (r *MarkerRepository) Create(ctx context.Context, m core.Marker) (core.Marker, error) {
	m.ID = uuid.NewString()

	rec := convert.CoreToMarker(m)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return core.Marker{}, fmt.Errorf("creating marker: %w", err)
	}

	r.log.Debug().Str("id", rec.ID).Str("name", rec.Name).Msg("Marker created")
	return convert.MarkerToCore(rec), nil
}

// GetByID returns the marker with the given identifier.
func (r *MarkerRepository) GetByID(ctx context.Context, id string) (core.Marker, error) {
	var rec model.Marker
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Marker{}, core.ErrNotFound
	}
	if err != nil {
		return core.Marker{}, fmt.Errorf("fetching marker %s: %w", id, err)
	}
	return convert.MarkerToCore(rec), nil
}

// List returns all markers in creation order.
func (r *MarkerRepository) List(ctx context.Context) ([]core.Marker, error) {
	var recs []model.Marker
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing markers: %w", err)
	}

	markers := make([]core.Marker, 0, len(recs))
	for _, rec := range recs {
		markers = append(markers, convert.MarkerToCore(rec))
	}
	return markers, nil
}

// Update applies the non-nil fields of patch to an existing marker and
// returns the updated record. A patch that omits image/audio leaves the
// stored URLs untouched. Returns core.ErrNotFound for unknown identifiers.
func (r *MarkerRepository) Update(ctx context.Context, id string, patch core.MarkerPatch) (core.Marker, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return core.Marker{}, err
	}

	if patch.Location != nil {
		current.Location = *patch.Location
	}
	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.Description != nil {
		current.Description = *patch.Description
	}
	if patch.Category != nil {
		current.Category = *patch.Category
	}
	if patch.Image != nil {
		current.Image = *patch.Image
	}
	if patch.Audio != nil {
		current.Audio = *patch.Audio
	}

	rec := convert.CoreToMarker(current)
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return core.Marker{}, fmt.Errorf("updating marker %s: %w", id, err)
	}

	r.log.Debug().Str("id", id).Msg("Marker updated")
	return r.GetByID(ctx, id)
}

// Delete removes a marker. Deleting an identifier that does not exist is
// treated as success; callers cannot distinguish a missing marker from an
// already-deleted one.
func (r *MarkerRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&model.Marker{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting marker %s: %w", id, err)
	}
	r.log.Debug().Str("id", id).Msg("Marker deleted")
	return nil
}
