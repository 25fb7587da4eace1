package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/puntomapa/puntomapa/pkg/core"
)

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema.
var DatabaseModels = []interface{}{
	&Marker{},
}

// Marker is the persisted form of a core.Marker. The location is stored as a
// JSON document: float64 coordinates round-trip through JSON without loss, so
// the value read back is bit-identical to the one captured on the client.
type Marker struct {
	ID          string                            `json:"id" gorm:"primarykey;size:36"`
	Location    datatypes.JSONType[core.Location] `json:"location" gorm:"not null"`
	Name        string                            `json:"name" gorm:"size:255;not null"`
	Description string                            `json:"description" gorm:"not null"`
	Category    string                            `json:"category" gorm:"size:32;not null;index:idx_markers_category"`
	Image       string                            `json:"image" gorm:"size:512"`
	Audio       string                            `json:"audio" gorm:"size:512"`
	CreatedAt   time.Time                         `json:"createdAt"`
	UpdatedAt   time.Time                         `json:"updatedAt"`
}

func (*Marker) TableName() string {
	return "markers"
}
