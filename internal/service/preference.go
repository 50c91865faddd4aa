package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sumire/pouchlog/internal/domain"
)

// PreferenceStore defines the preference data access interface.
type PreferenceStore interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.Preference, error)
	Create(ctx context.Context, pref domain.Preference) (*domain.Preference, error)
	Update(ctx context.Context, pref domain.Preference) (*domain.Preference, error)
}

// PreferenceService manages per-user notification settings. Reads always hit
// storage so callers see up-to-date values.
type PreferenceService struct {
	prefs PreferenceStore
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(prefs PreferenceStore) *PreferenceService {
	return &PreferenceService{prefs: prefs}
}

// GetOrCreate returns the user's preferences, creating the default row on
// first access.
func (s *PreferenceService) GetOrCreate(ctx context.Context, userID int64) (*domain.Preference, error) {
	pref, err := s.prefs.FindByUserID(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created, err := s.prefs.Create(ctx, domain.DefaultPreference(userID))
	if err != nil {
		// Lost a race with a concurrent first access; re-read.
		if errors.Is(err, domain.ErrConflict) {
			return s.prefs.FindByUserID(ctx, userID)
		}
		return nil, err
	}

	slog.Info("created default preferences", "user_id", userID)
	return created, nil
}

// UpdatePreferenceInput carries the mutable settings. Time fields use
// "HH:MM"; an empty string clears the field.
type UpdatePreferenceInput struct {
	Channel                  domain.NotificationChannelPref `json:"channel" form:"channel" validate:"required,oneof=none email discord both"`
	GoalNotifications        bool                           `json:"goal_notifications" form:"goal_notifications"`
	DailyReminders           bool                           `json:"daily_reminders" form:"daily_reminders"`
	WeeklyReports            bool                           `json:"weekly_reports" form:"weekly_reports"`
	AchievementNotifications bool                           `json:"achievement_notifications" form:"achievement_notifications"`
	DiscordWebhook           string                         `json:"discord_webhook" form:"discord_webhook" validate:"omitempty,url"`
	ReminderTime             string                         `json:"reminder_time" form:"reminder_time"`
	QuietHoursStart          string                         `json:"quiet_hours_start" form:"quiet_hours_start"`
	QuietHoursEnd            string                         `json:"quiet_hours_end" form:"quiet_hours_end"`
}

// Update applies new settings and returns the stored row.
func (s *PreferenceService) Update(ctx context.Context, userID int64, in UpdatePreferenceInput) (*domain.Preference, error) {
	pref, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	pref.Channel = in.Channel
	pref.GoalNotifications = in.GoalNotifications
	pref.DailyReminders = in.DailyReminders
	pref.WeeklyReports = in.WeeklyReports
	pref.AchievementNotifications = in.AchievementNotifications

	if in.DiscordWebhook == "" {
		pref.DiscordWebhook = nil
	} else {
		pref.DiscordWebhook = &in.DiscordWebhook
	}

	if pref.ReminderTime, err = parseOptionalTime(in.ReminderTime); err != nil {
		return nil, fmt.Errorf("reminder_time: %w", err)
	}
	if pref.QuietHoursStart, err = parseOptionalTime(in.QuietHoursStart); err != nil {
		return nil, fmt.Errorf("quiet_hours_start: %w", err)
	}
	if pref.QuietHoursEnd, err = parseOptionalTime(in.QuietHoursEnd); err != nil {
		return nil, fmt.Errorf("quiet_hours_end: %w", err)
	}

	// A half-configured quiet window behaves like no window at all; reject
	// it so the user notices.
	if pref.QuietHoursStart.Valid != pref.QuietHoursEnd.Valid {
		return nil, fmt.Errorf("%w: quiet hours require both start and end", domain.ErrInvalidInput)
	}

	return s.prefs.Update(ctx, *pref)
}

func parseOptionalTime(s string) (domain.NullTimeOfDay, error) {
	if s == "" {
		return domain.NullTimeOfDay{}, nil
	}
	t, err := domain.ParseTimeOfDay(s)
	if err != nil {
		return domain.NullTimeOfDay{}, err
	}
	return domain.NullTimeOfDay{TimeOfDay: t, Valid: true}, nil
}
