package domain

import "time"

// NotificationChannelPref selects which channels a user wants.
type NotificationChannelPref string

const (
	ChannelPrefNone    NotificationChannelPref = "none"
	ChannelPrefEmail   NotificationChannelPref = "email"
	ChannelPrefDiscord NotificationChannelPref = "discord"
	ChannelPrefBoth    NotificationChannelPref = "both"
)

// Preference holds a user's notification settings. One row per user,
// created with defaults at signup.
type Preference struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`

	Channel NotificationChannelPref `json:"channel" db:"channel"`

	GoalNotifications        bool `json:"goal_notifications" db:"goal_notifications"`
	DailyReminders           bool `json:"daily_reminders" db:"daily_reminders"`
	WeeklyReports            bool `json:"weekly_reports" db:"weekly_reports"`
	AchievementNotifications bool `json:"achievement_notifications" db:"achievement_notifications"`

	DiscordWebhook *string `json:"discord_webhook,omitempty" db:"discord_webhook"`

	ReminderTime    NullTimeOfDay `json:"reminder_time" db:"reminder_time"`
	QuietHoursStart NullTimeOfDay `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd   NullTimeOfDay `json:"quiet_hours_end" db:"quiet_hours_end"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference returns the settings a new account starts with.
func DefaultPreference(userID int64) Preference {
	return Preference{
		UserID:                   userID,
		Channel:                  ChannelPrefEmail,
		GoalNotifications:        true,
		DailyReminders:           false,
		WeeklyReports:            false,
		AchievementNotifications: true,
	}
}

// CategoryEnabled reports whether the user accepts the given category.
// Categories without an explicit toggle (e.g. test messages) are allowed.
func (p Preference) CategoryEnabled(category Category) bool {
	switch category {
	case CategoryGoalReminder:
		return p.GoalNotifications
	case CategoryDailyReminder:
		return p.DailyReminders
	case CategoryWeeklyReport:
		return p.WeeklyReports
	case CategoryAchievement:
		return p.AchievementNotifications
	default:
		return true
	}
}

// ChannelEnabled reports whether deliveries over the given channel are wanted.
func (p Preference) ChannelEnabled(ch Channel) bool {
	switch p.Channel {
	case ChannelPrefBoth:
		return true
	case ChannelPrefEmail:
		return ch == ChannelEmail
	case ChannelPrefDiscord:
		return ch == ChannelDiscord
	default:
		return false
	}
}

// InQuietHours reports whether at falls inside the configured quiet window.
// The window may wrap midnight: 22:00-06:00 contains 23:30 and 02:00.
func (p Preference) InQuietHours(at time.Time) bool {
	if !p.QuietHoursStart.Valid || !p.QuietHoursEnd.Valid {
		return false
	}
	now := at.Hour()*60 + at.Minute()
	start := p.QuietHoursStart.TimeOfDay.Minutes()
	end := p.QuietHoursEnd.TimeOfDay.Minutes()
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}

// QuietHoursEndAfter returns the next moment the quiet window closes after at.
func (p Preference) QuietHoursEndAfter(at time.Time) time.Time {
	end := p.QuietHoursEnd.TimeOfDay.On(at)
	if !end.After(at) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}
