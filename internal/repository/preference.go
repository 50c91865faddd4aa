package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// PreferenceRepository handles per-user notification preference rows.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

const preferenceColumns = `id, user_id, channel, goal_notifications, daily_reminders, weekly_reports, achievement_notifications, discord_webhook, reminder_time, quiet_hours_start, quiet_hours_end, created_at, updated_at`

// FindByUserID retrieves the preference row for a user.
func (r *PreferenceRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Preference, error) {
	var pref domain.Preference
	err := r.db.GetContext(ctx, &pref,
		`SELECT `+preferenceColumns+` FROM user_preferences WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find preferences for user %d: %w", userID, err)
	}
	return &pref, nil
}

// Create inserts a preference row and returns it. A user has at most one
// row; a second insert conflicts.
func (r *PreferenceRepository) Create(ctx context.Context, pref domain.Preference) (*domain.Preference, error) {
	var result domain.Preference
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO user_preferences (user_id, channel, goal_notifications, daily_reminders, weekly_reports, achievement_notifications, discord_webhook, reminder_time, quiet_hours_start, quiet_hours_end)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+preferenceColumns,
		pref.UserID, pref.Channel, pref.GoalNotifications, pref.DailyReminders,
		pref.WeeklyReports, pref.AchievementNotifications, pref.DiscordWebhook,
		pref.ReminderTime, pref.QuietHoursStart, pref.QuietHoursEnd,
	).StructScan(&result)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create preferences: %w", err)
	}
	return &result, nil
}

// Update overwrites the mutable preference fields for a user.
func (r *PreferenceRepository) Update(ctx context.Context, pref domain.Preference) (*domain.Preference, error) {
	var result domain.Preference
	err := r.db.QueryRowxContext(ctx,
		`UPDATE user_preferences
		 SET channel = $2,
		     goal_notifications = $3,
		     daily_reminders = $4,
		     weekly_reports = $5,
		     achievement_notifications = $6,
		     discord_webhook = $7,
		     reminder_time = $8,
		     quiet_hours_start = $9,
		     quiet_hours_end = $10,
		     updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING `+preferenceColumns,
		pref.UserID, pref.Channel, pref.GoalNotifications, pref.DailyReminders,
		pref.WeeklyReports, pref.AchievementNotifications, pref.DiscordWebhook,
		pref.ReminderTime, pref.QuietHoursStart, pref.QuietHoursEnd,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update preferences for user %d: %w", pref.UserID, err)
	}
	return &result, nil
}
