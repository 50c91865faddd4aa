package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/sumire/pouchlog/internal/domain"
	"github.com/sumire/pouchlog/internal/notify"
)

// NotificationStore defines the queue data access interface.
type NotificationStore interface {
	Create(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
}

// EmailSender delivers a rendered email message.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
	Configured() bool
}

// WebhookSender posts an embed to a Discord-compatible webhook.
type WebhookSender interface {
	Send(ctx context.Context, webhookURL string, embed notify.Embed) error
}

// UserStore defines the user lookup interface consumed by notifications.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// NotificationService builds notification payloads, enqueues them behind the
// preference gate, and performs delivery calls for the background worker.
type NotificationService struct {
	queue       NotificationStore
	users       UserStore
	prefs       *PreferenceService
	mailer      EmailSender
	discord     WebhookSender
	maxAttempts int
	now         func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(queue NotificationStore, users UserStore, prefs *PreferenceService, mailer EmailSender, discord WebhookSender, maxAttempts int) *NotificationService {
	return &NotificationService{
		queue:       queue,
		users:       users,
		prefs:       prefs,
		mailer:      mailer,
		discord:     discord,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Queue validates the request against the user's preferences and inserts a
// pending record. A disabled channel or category is a silent no-op, not an
// error: callers must not depend on delivery. During quiet hours the record
// is deferred to the end of the window, never dropped.
//
// An empty recipient resolves to the user's email address or stored Discord
// webhook; if nothing resolves the queue request is rejected.
func (s *NotificationService) Queue(ctx context.Context, userID int64, channel domain.Channel, category domain.Category, subject, message, recipient string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}

	pref, err := s.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}

	if !pref.ChannelEnabled(channel) || !pref.CategoryEnabled(category) {
		slog.Debug("notification suppressed by preferences",
			"user_id", userID, "channel", channel, "category", category)
		return nil
	}

	if recipient == "" {
		switch channel {
		case domain.ChannelEmail:
			recipient = user.Email
		case domain.ChannelDiscord:
			if pref.DiscordWebhook != nil {
				recipient = *pref.DiscordWebhook
			}
		}
	}
	if recipient == "" {
		return fmt.Errorf("%w: no recipient for %s notification", domain.ErrInvalidInput, channel)
	}

	// The recipient is snapshotted here; later settings changes must not
	// redirect in-flight notifications.
	scheduledFor := s.now()
	if local := scheduledFor.In(user.Location()); pref.InQuietHours(local) {
		scheduledFor = pref.QuietHoursEndAfter(local)
	}

	record, err := s.queue.Create(ctx, domain.Notification{
		UserID:       userID,
		Channel:      channel,
		Category:     category,
		Subject:      subject,
		Message:      message,
		Recipient:    recipient,
		MaxAttempts:  s.maxAttempts,
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		return err
	}

	slog.Info("queued notification",
		"id", record.ID, "user_id", userID, "channel", channel,
		"category", category, "scheduled_for", record.ScheduledFor)
	return nil
}

// QueueBoth enqueues the same payload on both channels, letting the
// preference gate filter each one independently. Recipient resolution
// errors are logged and swallowed; callers treat delivery as best effort.
func (s *NotificationService) QueueBoth(ctx context.Context, userID int64, category domain.Category, subject, message string) {
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelDiscord} {
		if err := s.Queue(ctx, userID, ch, category, subject, message, ""); err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				slog.Debug("skipping channel without recipient", "user_id", userID, "channel", ch)
				continue
			}
			slog.Error("failed to queue notification", "user_id", userID, "channel", ch, "error", err)
		}
	}
}

// Deliver performs the transport call for one record, dispatched by channel.
func (s *NotificationService) Deliver(ctx context.Context, n domain.Notification) error {
	switch n.Channel {
	case domain.ChannelEmail:
		return s.sendEmail(n)
	case domain.ChannelDiscord:
		return s.sendDiscord(ctx, n)
	default:
		return fmt.Errorf("unknown notification channel %q", n.Channel)
	}
}

func (s *NotificationService) sendEmail(n domain.Notification) error {
	if !s.mailer.Configured() {
		return fmt.Errorf("email not configured")
	}
	return s.mailer.Send(n.Recipient, n.Subject, renderEmailHTML(n))
}

func (s *NotificationService) sendDiscord(ctx context.Context, n domain.Notification) error {
	return s.discord.Send(ctx, n.Recipient, notify.Embed{
		Title:       n.Subject,
		Description: n.Message,
		Color:       notify.EmbedColor(n.Category),
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Footer:      &notify.EmbedFooter{Text: "pouchlog"},
	})
}

// TestWebhook sends a synchronous probe message, bypassing the queue. Used
// by the settings screen; the returned string is shown to the user.
func (s *NotificationService) TestWebhook(ctx context.Context, webhookURL string) (bool, string) {
	err := s.discord.Send(ctx, webhookURL, notify.Embed{
		Title:       "Webhook Test",
		Description: "This is a test message from pouchlog to verify your Discord webhook is working correctly.",
		Color:       0x10b981,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Footer:      &notify.EmbedFooter{Text: "pouchlog - Test Message"},
	})
	if err != nil {
		return false, fmt.Sprintf("Webhook test failed: %v", err)
	}
	return true, "Test message sent successfully!"
}

// History returns the user's most recent notification records.
func (s *NotificationService) History(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.queue.ListByUser(ctx, userID, limit)
}

var genericEmailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>{{.Subject}}</h2>
  <div>{{.Body}}</div>
  <hr>
  <p style="color: #6b7280; font-size: 12px;">Sent by pouchlog. Manage notifications in your settings.</p>
</body>
</html>`))

// renderEmailHTML wraps a plain message in the generic layout. Messages that
// already carry markup (weekly reports) are used as-is.
func renderEmailHTML(n domain.Notification) string {
	trimmed := strings.TrimSpace(n.Message)
	body := template.HTML(template.HTMLEscapeString(trimmed))
	if strings.HasPrefix(trimmed, "<") {
		body = template.HTML(trimmed)
	}

	var sb strings.Builder
	err := genericEmailTmpl.Execute(&sb, struct {
		Subject string
		Body    template.HTML
	}{Subject: n.Subject, Body: body})
	if err != nil {
		return trimmed
	}
	return sb.String()
}
