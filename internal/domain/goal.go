package domain

import "time"

// GoalType selects what a goal limits.
type GoalType string

const (
	GoalDailyPouches GoalType = "daily_pouches"
	GoalDailyMg      GoalType = "daily_mg"
)

// Goal is a user-defined consumption ceiling with streak tracking.
type Goal struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	GoalType    GoalType   `json:"goal_type" db:"goal_type"`
	TargetValue float64    `json:"target_value" db:"target_value"`

	CurrentStreak int `json:"current_streak" db:"current_streak"`
	BestStreak    int `json:"best_streak" db:"best_streak"`

	StartDate time.Time  `json:"start_date" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`
	IsActive  bool       `json:"is_active" db:"is_active"`

	EnableNotifications   bool    `json:"enable_notifications" db:"enable_notifications"`
	NotificationThreshold float64 `json:"notification_threshold" db:"notification_threshold"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GoalProgress is a goal's standing for a single day.
type GoalProgress struct {
	GoalID     int64    `json:"goal_id"`
	GoalType   GoalType `json:"goal_type"`
	Current    float64  `json:"current"`
	Target     float64  `json:"target"`
	Percentage float64  `json:"percentage"`
	Achieved   bool     `json:"achieved"`
}
