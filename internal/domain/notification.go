package domain

import "time"

// Channel is a notification delivery mechanism.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelDiscord Channel = "discord"
)

// Category classifies what a notification is about.
type Category string

const (
	CategoryGoalReminder  Category = "goal_reminder"
	CategoryAchievement   Category = "achievement"
	CategoryDailyReminder Category = "daily_reminder"
	CategoryWeeklyReport  Category = "weekly_report"
	CategoryTest          Category = "test"
)

// DeliveryStatus is the queue state of a notification.
//
// Transitions are monotonic: pending -> sent, or pending -> failed once
// attempts reach max_attempts. A failed record is never retried
// automatically.
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
)

// Notification is one queued delivery. The recipient is snapshotted at
// enqueue time so later preference changes do not redirect it.
type Notification struct {
	ID            int64          `json:"id" db:"id"`
	UserID        int64          `json:"user_id" db:"user_id"`
	Channel       Channel        `json:"channel" db:"channel"`
	Category      Category       `json:"category" db:"category"`
	Subject       string         `json:"subject" db:"subject"`
	Message       string         `json:"message" db:"message"`
	Recipient     string         `json:"recipient" db:"recipient"`
	Status        DeliveryStatus `json:"status" db:"status"`
	Attempts      int            `json:"attempts" db:"attempts"`
	MaxAttempts   int            `json:"max_attempts" db:"max_attempts"`
	ScheduledFor  time.Time      `json:"scheduled_for" db:"scheduled_for"`
	LastAttemptAt *time.Time     `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	ErrorMessage  *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// Exhausted reports whether the record has used all delivery attempts.
func (n Notification) Exhausted() bool {
	return n.Attempts >= n.MaxAttempts
}
