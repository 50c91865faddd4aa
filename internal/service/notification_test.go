package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/domain"
	"github.com/sumire/pouchlog/internal/notify"
)

type mockNotificationStore struct {
	created []domain.Notification
}

func (m *mockNotificationStore) Create(_ context.Context, n domain.Notification) (*domain.Notification, error) {
	n.ID = int64(len(m.created) + 1)
	n.Status = domain.StatusPending
	m.created = append(m.created, n)
	return &n, nil
}

func (m *mockNotificationStore) ListByUser(context.Context, int64, int) ([]domain.Notification, error) {
	return m.created, nil
}

type mockUserStore struct {
	user domain.User
}

func (m *mockUserStore) FindByID(context.Context, int64) (*domain.User, error) {
	u := m.user
	return &u, nil
}

type mockPreferenceStore struct {
	pref domain.Preference
}

func (m *mockPreferenceStore) FindByUserID(context.Context, int64) (*domain.Preference, error) {
	p := m.pref
	return &p, nil
}

func (m *mockPreferenceStore) Create(_ context.Context, p domain.Preference) (*domain.Preference, error) {
	return &p, nil
}

func (m *mockPreferenceStore) Update(_ context.Context, p domain.Preference) (*domain.Preference, error) {
	m.pref = p
	return &p, nil
}

type mockMailer struct {
	sent []string
}

func (m *mockMailer) Send(to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

func (m *mockMailer) Configured() bool { return true }

type mockWebhook struct {
	embeds []notify.Embed
}

func (m *mockWebhook) Send(_ context.Context, _ string, embed notify.Embed) error {
	m.embeds = append(m.embeds, embed)
	return nil
}

func newTestNotificationService(pref domain.Preference, user domain.User) (*NotificationService, *mockNotificationStore) {
	queue := &mockNotificationStore{}
	svc := NewNotificationService(
		queue,
		&mockUserStore{user: user},
		NewPreferenceService(&mockPreferenceStore{pref: pref}),
		&mockMailer{},
		&mockWebhook{},
		3,
	)
	return svc, queue
}

func testUser() domain.User {
	return domain.User{ID: 1, Email: "user@example.com", Timezone: "UTC", DisplayName: "Test"}
}

func TestQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("EnqueuesPendingRecord", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		svc, queue := newTestNotificationService(pref, testUser())
		now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		err := svc.Queue(ctx, 1, domain.ChannelEmail, domain.CategoryGoalReminder, "subject", "message", "")
		require.NoError(t, err)
		require.Len(t, queue.created, 1)

		rec := queue.created[0]
		require.Equal(t, domain.StatusPending, rec.Status)
		require.Equal(t, "user@example.com", rec.Recipient, "recipient resolved from the account email")
		require.Equal(t, 3, rec.MaxAttempts)
		require.Equal(t, now, rec.ScheduledFor)
	})

	t.Run("DisabledCategoryIsSilentNoOp", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		pref.DailyReminders = false
		svc, queue := newTestNotificationService(pref, testUser())

		err := svc.Queue(ctx, 1, domain.ChannelEmail, domain.CategoryDailyReminder, "s", "m", "")
		require.NoError(t, err)
		require.Empty(t, queue.created)
	})

	t.Run("DisabledChannelIsSilentNoOp", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		pref.Channel = domain.ChannelPrefNone
		svc, queue := newTestNotificationService(pref, testUser())

		err := svc.Queue(ctx, 1, domain.ChannelEmail, domain.CategoryGoalReminder, "s", "m", "")
		require.NoError(t, err)
		require.Empty(t, queue.created)
	})

	t.Run("MissingRecipientIsRejected", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		pref.Channel = domain.ChannelPrefBoth // discord enabled but no webhook stored
		svc, queue := newTestNotificationService(pref, testUser())

		err := svc.Queue(ctx, 1, domain.ChannelDiscord, domain.CategoryGoalReminder, "s", "m", "")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		require.Empty(t, queue.created)
	})

	t.Run("QuietHoursDeferDelivery", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		start, _ := domain.ParseTimeOfDay("22:00")
		end, _ := domain.ParseTimeOfDay("06:00")
		pref.QuietHoursStart = domain.NullTimeOfDay{TimeOfDay: start, Valid: true}
		pref.QuietHoursEnd = domain.NullTimeOfDay{TimeOfDay: end, Valid: true}

		svc, queue := newTestNotificationService(pref, testUser())
		now := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		err := svc.Queue(ctx, 1, domain.ChannelEmail, domain.CategoryGoalReminder, "s", "m", "")
		require.NoError(t, err)
		require.Len(t, queue.created, 1)

		wantEnd := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
		require.Equal(t, wantEnd, queue.created[0].ScheduledFor, "deferred to quiet window end, not dropped")
	})

	t.Run("QueueBothSkipsChannelWithoutRecipient", func(t *testing.T) {
		pref := domain.DefaultPreference(1)
		pref.Channel = domain.ChannelPrefBoth
		svc, queue := newTestNotificationService(pref, testUser())

		svc.QueueBoth(ctx, 1, domain.CategoryGoalReminder, "s", "m")

		require.Len(t, queue.created, 1, "email goes out, discord silently skipped")
		require.Equal(t, domain.ChannelEmail, queue.created[0].Channel)
	})
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("EmailDispatch", func(t *testing.T) {
		mailer := &mockMailer{}
		svc := NewNotificationService(&mockNotificationStore{}, &mockUserStore{user: testUser()},
			NewPreferenceService(&mockPreferenceStore{pref: domain.DefaultPreference(1)}), mailer, &mockWebhook{}, 3)

		err := svc.Deliver(ctx, domain.Notification{
			Channel: domain.ChannelEmail, Recipient: "user@example.com", Subject: "s", Message: "m",
		})
		require.NoError(t, err)
		require.Equal(t, []string{"user@example.com"}, mailer.sent)
	})

	t.Run("DiscordDispatchCarriesCategoryColor", func(t *testing.T) {
		hook := &mockWebhook{}
		svc := NewNotificationService(&mockNotificationStore{}, &mockUserStore{user: testUser()},
			NewPreferenceService(&mockPreferenceStore{pref: domain.DefaultPreference(1)}), &mockMailer{}, hook, 3)

		err := svc.Deliver(ctx, domain.Notification{
			Channel: domain.ChannelDiscord, Category: domain.CategoryWeeklyReport,
			Recipient: "https://discord.com/api/webhooks/1/x", Subject: "s", Message: "m",
		})
		require.NoError(t, err)
		require.Len(t, hook.embeds, 1)
		require.Equal(t, notify.EmbedColor(domain.CategoryWeeklyReport), hook.embeds[0].Color)
	})

	t.Run("UnknownChannelErrors", func(t *testing.T) {
		svc, _ := newTestNotificationService(domain.DefaultPreference(1), testUser())
		err := svc.Deliver(ctx, domain.Notification{Channel: "pigeon"})
		require.Error(t, err)
	})
}
