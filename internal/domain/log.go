package domain

import "time"

// Log is one consumption entry. It references a catalog pouch or carries a
// free-form brand and strength.
type Log struct {
	ID               int64         `json:"id" db:"id"`
	UserID           int64         `json:"user_id" db:"user_id"`
	LogDate          time.Time     `json:"log_date" db:"log_date"`
	LogTime          NullTimeOfDay `json:"log_time" db:"log_time"`
	PouchID          *int64        `json:"pouch_id,omitempty" db:"pouch_id"`
	CustomBrand      *string       `json:"custom_brand,omitempty" db:"custom_brand"`
	CustomNicotineMg *float64      `json:"custom_nicotine_mg,omitempty" db:"custom_nicotine_mg"`
	Quantity         int           `json:"quantity" db:"quantity"`
	Notes            *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`

	// Joined from the pouch catalog when present.
	PouchBrand      *string  `json:"pouch_brand,omitempty" db:"pouch_brand"`
	PouchNicotineMg *float64 `json:"pouch_nicotine_mg,omitempty" db:"pouch_nicotine_mg"`
}

// NicotinePerPouch returns the strength of a single pouch in mg.
func (l Log) NicotinePerPouch() float64 {
	if l.PouchNicotineMg != nil {
		return *l.PouchNicotineMg
	}
	if l.CustomNicotineMg != nil {
		return *l.CustomNicotineMg
	}
	return 0
}

// TotalNicotine returns quantity times per-pouch strength.
func (l Log) TotalNicotine() float64 {
	return float64(l.Quantity) * l.NicotinePerPouch()
}

// DailyTotal aggregates one day of consumption.
type DailyTotal struct {
	Date    time.Time `json:"date" db:"log_date"`
	Pouches int       `json:"pouches" db:"pouches"`
	Mg      float64   `json:"mg" db:"mg"`
}

// HourlyTotal aggregates pouches logged within one hour of the day.
type HourlyTotal struct {
	Hour    int `json:"hour" db:"hour"`
	Pouches int `json:"pouches" db:"pouches"`
}

// BrandName returns the catalog brand, the custom brand, or "Unknown".
func (l Log) BrandName() string {
	if l.PouchBrand != nil {
		return *l.PouchBrand
	}
	if l.CustomBrand != nil {
		return *l.CustomBrand
	}
	return "Unknown"
}
