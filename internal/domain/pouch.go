package domain

import "time"

// Pouch is a nicotine pouch product in the catalog. Default pouches are
// seeded and shared; custom pouches belong to the user who created them.
type Pouch struct {
	ID         int64     `json:"id" db:"id"`
	Brand      string    `json:"brand" db:"brand"`
	NicotineMg float64   `json:"nicotine_mg" db:"nicotine_mg"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedBy  *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
