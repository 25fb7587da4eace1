// Package convert provides functions to convert between GORM models and core models.
package convert

import (
	"gorm.io/datatypes"

	"github.com/puntomapa/puntomapa/internal/model"
	"github.com/puntomapa/puntomapa/pkg/core"
)

// CoreToMarker converts a core.Marker to a GORM model.Marker.
func CoreToMarker(m core.Marker) model.Marker {
	return model.Marker{
		ID:          m.ID,
		Location:    datatypes.NewJSONType(m.Location),
		Name:        m.Name,
		Description: m.Description,
		Category:    string(m.Category),
		Image:       m.Image,
		Audio:       m.Audio,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// MarkerToCore converts a GORM model.Marker back to a core.Marker.
func MarkerToCore(m model.Marker) core.Marker {
	return core.Marker{
		ID:          m.ID,
		Location:    m.Location.Data(),
		Name:        m.Name,
		Description: m.Description,
		Category:    core.Category(m.Category),
		Image:       m.Image,
		Audio:       m.Audio,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
