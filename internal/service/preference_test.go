package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/domain"
)

func TestPreferenceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesSettings", func(t *testing.T) {
		store := &mockPreferenceStore{pref: domain.DefaultPreference(1)}
		svc := NewPreferenceService(store)

		pref, err := svc.Update(ctx, 1, UpdatePreferenceInput{
			Channel:         domain.ChannelPrefBoth,
			DailyReminders:  true,
			DiscordWebhook:  "https://discord.com/api/webhooks/1/x",
			ReminderTime:    "09:00",
			QuietHoursStart: "22:00",
			QuietHoursEnd:   "06:00",
		})
		require.NoError(t, err)
		require.Equal(t, domain.ChannelPrefBoth, pref.Channel)
		require.True(t, pref.DailyReminders)
		require.NotNil(t, pref.DiscordWebhook)
		require.True(t, pref.ReminderTime.Valid)
		require.Equal(t, "09:00", pref.ReminderTime.TimeOfDay.String())
	})

	t.Run("ClearsOptionalFields", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		reminder, _ := domain.ParseTimeOfDay("09:00")
		pref.ReminderTime = domain.NullTimeOfDay{TimeOfDay: reminder, Valid: true}
		store := &mockPreferenceStore{pref: pref}
		svc := NewPreferenceService(store)

		updated, err := svc.Update(ctx, 1, UpdatePreferenceInput{Channel: domain.ChannelPrefEmail})
		require.NoError(t, err)
		require.False(t, updated.ReminderTime.Valid)
		require.Nil(t, updated.DiscordWebhook)
	})

	t.Run("RejectsHalfConfiguredQuietWindow", func(t *testing.T) {
		svc := NewPreferenceService(&mockPreferenceStore{pref: domain.DefaultPreference(1)})

		_, err := svc.Update(ctx, 1, UpdatePreferenceInput{
			Channel:         domain.ChannelPrefEmail,
			QuietHoursStart: "22:00",
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("RejectsMalformedTime", func(t *testing.T) {
		svc := NewPreferenceService(&mockPreferenceStore{pref: domain.DefaultPreference(1)})

		_, err := svc.Update(ctx, 1, UpdatePreferenceInput{
			Channel:      domain.ChannelPrefEmail,
			ReminderTime: "25:99",
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
