package domain

import (
	"time"
)

// Product represents a product in the catalog.
//
// Image holds the canonical Media Store URL without any cache-busting
// suffix; the stored value is never rewritten by reads. An empty Image
// means no image has been uploaded for this product. ImagePublicID is the
// Media Store key persisted at upload time so deletion does not have to
// re-derive it from the URL string.
type Product struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Category      string    `json:"category" db:"category"`
	Image         string    `json:"image" db:"image"`
	ImagePublicID string    `json:"-" db:"image_public_id"`
	ImageVersion  int       `json:"-" db:"image_version"`
	NewPrice      float64   `json:"new_price" db:"new_price"`
	OldPrice      float64   `json:"old_price" db:"old_price"`
	Available     bool      `json:"available" db:"available"`
	Features      []string  `json:"features" db:"features"`
	Date          time.Time `json:"date" db:"date"`
}

// ProductUpdate describes a shallow partial update: nil fields are left
// untouched.
type ProductUpdate struct {
	Name      *string   `json:"name"`
	Category  *string   `json:"category"`
	NewPrice  *float64  `json:"new_price"`
	OldPrice  *float64  `json:"old_price"`
	Available *bool     `json:"available"`
	Features  *[]string `json:"features"`
}
