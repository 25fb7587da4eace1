package core

import "time"

// Location is a WGS84 coordinate pair captured from the map. Values are
// carried through capture, transport and persistence without rounding.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Category classifies a marker. The set is closed; anything else is rejected
// at validation time.
type Category string

const (
	CategoryEscuela       Category = "escuela"
	CategoryMonumento     Category = "monumento"
	CategoryMuseo         Category = "museo"
	CategoryMastil        Category = "mastil"
	CategoryFerrocarril   Category = "ferrocarril"
	CategoryMunicipalidad Category = "municipalidad"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryEscuela,
	CategoryMonumento,
	CategoryMuseo,
	CategoryMastil,
	CategoryFerrocarril,
	CategoryMunicipalidad,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Marker is a persisted geolocated point of interest with optional media.
type Marker struct {
	ID          string    `json:"id"`
	Location    Location  `json:"location"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Image       string    `json:"image,omitempty"`
	Audio       string    `json:"audio,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarkerPatch is a partial update. Nil fields are left untouched by the
// repository, so a patch that omits image/audio preserves the stored URLs.
type MarkerPatch struct {
	Location    *Location `json:"location,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Image       *string   `json:"image,omitempty"`
	Audio       *string   `json:"audio,omitempty"`
}

// UploadResult is the uniform success shape of a media upload, regardless of
// which storage backend handled it. A missing URL is never a valid success.
type UploadResult struct {
	URL string `json:"url"`
}
