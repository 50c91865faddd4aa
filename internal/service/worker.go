package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sumire/pouchlog/internal/config"
	"github.com/sumire/pouchlog/internal/domain"
)

// WorkerQueue defines queue access for the background processor.
type WorkerQueue interface {
	SelectDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	Update(ctx context.Context, n domain.Notification) error
	RecentlySent(ctx context.Context, userID int64, category domain.Category, since time.Time) (bool, error)
	RecentlyQueued(ctx context.Context, userID int64, category domain.Category, since time.Time) (bool, error)
}

// Dispatcher performs the delivery call for one record.
type Dispatcher interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// NotificationQueuer enqueues new notifications from scheduled tasks.
type NotificationQueuer interface {
	Queue(ctx context.Context, userID int64, channel domain.Channel, category domain.Category, subject, message, recipient string) error
	QueueBoth(ctx context.Context, userID int64, category domain.Category, subject, message string)
}

// ReminderDirectory lists users opted into scheduled notifications.
type ReminderDirectory interface {
	ListWithDailyReminders(ctx context.Context) ([]domain.User, error)
	ListWithWeeklyReports(ctx context.Context) ([]domain.User, error)
}

// TokenJanitor removes expired verification tokens.
type TokenJanitor interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Worker is the polling background processor. It owns the notification
// queue's state transitions and drives the periodic tasks. The design
// assumes a single worker instance; running two may double-send.
type Worker struct {
	cfg        config.WorkerConfig
	queue      WorkerQueue
	dispatcher Dispatcher
	notifier   NotificationQueuer
	users      ReminderDirectory
	prefs      *PreferenceService
	goals      GoalStore
	goalSvc    *GoalService
	stats      *StatsService
	tokens     TokenJanitor
	now        func() time.Time

	lastReminderSweep time.Time
	lastGoalCheck     time.Time
	lastMaintenance   time.Time
}

// NewWorker creates a Worker. Scheduled-task collaborators may be nil, in
// which case only queue processing runs; tests use this.
func NewWorker(cfg config.WorkerConfig, queue WorkerQueue, dispatcher Dispatcher, notifier NotificationQueuer,
	users ReminderDirectory, prefs *PreferenceService, goals GoalStore, goalSvc *GoalService,
	stats *StatsService, tokens TokenJanitor) *Worker {
	return &Worker{
		cfg:        cfg,
		queue:      queue,
		dispatcher: dispatcher,
		notifier:   notifier,
		users:      users,
		prefs:      prefs,
		goals:      goals,
		goalSvc:    goalSvc,
		stats:      stats,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Run polls until the context is cancelled. Task errors are logged; the loop
// itself never dies.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("background worker started",
		"poll_interval", w.cfg.PollInterval,
		"batch_size", w.cfg.BatchSize,
		"max_attempts", w.cfg.MaxAttempts)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("background worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	now := w.now()

	if n, err := w.ProcessQueue(ctx); err != nil {
		slog.Error("queue processing failed", "error", err)
	} else if n > 0 {
		slog.Info("processed notification queue", "count", n)
	}

	if now.Sub(w.lastReminderSweep) >= time.Minute {
		w.lastReminderSweep = now
		if err := w.SendDailyReminders(ctx); err != nil {
			slog.Error("daily reminder sweep failed", "error", err)
		}
		if err := w.SendWeeklyReports(ctx); err != nil {
			slog.Error("weekly report sweep failed", "error", err)
		}
	}

	if now.Sub(w.lastGoalCheck) >= 30*time.Minute {
		w.lastGoalCheck = now
		if err := w.CheckGoalThresholds(ctx); err != nil {
			slog.Error("goal threshold check failed", "error", err)
		}
	}

	if now.Sub(w.lastMaintenance) >= 24*time.Hour {
		w.lastMaintenance = now
		w.runMaintenance(ctx)
	}
}

// ProcessQueue runs one poll cycle: select due pending records oldest first,
// deliver each, and write back the resulting state. One record's failure
// never aborts the batch, and no record is touched twice in a cycle.
func (w *Worker) ProcessQueue(ctx context.Context) (int, error) {
	now := w.now()

	records, err := w.queue.SelectDue(ctx, now, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		attemptAt := now
		rec.LastAttemptAt = &attemptAt

		if err := w.dispatcher.Deliver(ctx, rec); err != nil {
			rec.Attempts++
			msg := err.Error()
			rec.ErrorMessage = &msg

			if rec.Exhausted() {
				rec.Status = domain.StatusFailed
				slog.Warn("notification permanently failed",
					"id", rec.ID, "channel", rec.Channel, "attempts", rec.Attempts, "error", err)
			} else {
				// Flat backoff: the record stays pending and is
				// reconsidered on a later cycle.
				rec.ScheduledFor = now.Add(w.cfg.RetryBackoff)
				slog.Info("notification delivery failed, will retry",
					"id", rec.ID, "attempt", rec.Attempts, "next_at", rec.ScheduledFor, "error", err)
			}
		} else {
			rec.Status = domain.StatusSent
			rec.ErrorMessage = nil
		}

		if err := w.queue.Update(ctx, rec); err != nil {
			slog.Error("failed to persist notification state", "id", rec.ID, "error", err)
		}
	}

	return len(records), nil
}

// SendDailyReminders queues a reminder for each opted-in user whose local
// wall clock matches their preferred time, at minute precision. A 23 hour
// dedup window prevents double fires around DST shifts and restarts.
func (w *Worker) SendDailyReminders(ctx context.Context) error {
	if w.users == nil || w.prefs == nil || w.notifier == nil {
		return nil
	}

	users, err := w.users.ListWithDailyReminders(ctx)
	if err != nil {
		return err
	}

	now := w.now()
	sent := 0
	for _, user := range users {
		pref, err := w.prefs.GetOrCreate(ctx, user.ID)
		if err != nil {
			slog.Error("load preferences for reminder", "user_id", user.ID, "error", err)
			continue
		}
		if !pref.ReminderTime.Valid {
			continue
		}

		local := now.In(user.Location())
		target := pref.ReminderTime.TimeOfDay
		if local.Hour() != target.Hour || local.Minute() != target.Minute {
			continue
		}

		recent, err := w.queue.RecentlyQueued(ctx, user.ID, domain.CategoryDailyReminder, now.Add(-23*time.Hour))
		if err != nil {
			slog.Error("reminder dedup check failed", "user_id", user.ID, "error", err)
			continue
		}
		if recent {
			continue
		}

		w.notifier.QueueBoth(ctx, user.ID, domain.CategoryDailyReminder,
			"Daily Tracking Reminder",
			"Don't forget to log your nicotine usage today! Consistent tracking helps you stay on top of your goals.")
		sent++
	}

	if sent > 0 {
		slog.Info("queued daily reminders", "count", sent)
	}
	return nil
}

// SendWeeklyReports queues a progress report for opted-in users on Monday
// mornings (local time), once per week.
func (w *Worker) SendWeeklyReports(ctx context.Context) error {
	if w.users == nil || w.stats == nil || w.notifier == nil {
		return nil
	}

	users, err := w.users.ListWithWeeklyReports(ctx)
	if err != nil {
		return err
	}

	now := w.now()
	sent := 0
	for _, user := range users {
		local := now.In(user.Location())
		if local.Weekday() != time.Monday || local.Hour() < 10 {
			continue
		}

		recent, err := w.queue.RecentlyQueued(ctx, user.ID, domain.CategoryWeeklyReport, now.Add(-6*24*time.Hour))
		if err != nil {
			slog.Error("weekly report dedup check failed", "user_id", user.ID, "error", err)
			continue
		}
		if recent {
			continue
		}

		summary, err := w.stats.WeekInReview(ctx, user.ID, local)
		if err != nil {
			slog.Error("build weekly report", "user_id", user.ID, "error", err)
			continue
		}

		err = w.notifier.Queue(ctx, user.ID, domain.ChannelEmail, domain.CategoryWeeklyReport,
			"Your Weekly Progress Report", renderWeeklyReport(summary), "")
		if err != nil {
			slog.Error("queue weekly report", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		slog.Info("queued weekly reports", "count", sent)
	}
	return nil
}

// CheckGoalThresholds queues warnings for goals approaching their daily
// ceiling, with a 4 hour dedup window per user.
func (w *Worker) CheckGoalThresholds(ctx context.Context) error {
	if w.goals == nil || w.goalSvc == nil || w.notifier == nil {
		return nil
	}

	goals, err := w.goals.ListActiveWithNotifications(ctx)
	if err != nil {
		return err
	}

	now := w.now()
	today := dateOnly(now)
	alerts := 0
	for _, goal := range goals {
		progress, err := w.goalSvc.Progress(ctx, goal, today)
		if err != nil {
			slog.Error("compute goal progress", "goal_id", goal.ID, "error", err)
			continue
		}

		threshold := goal.NotificationThreshold * 100
		if progress.Percentage < threshold || progress.Percentage > 100 {
			continue
		}

		recent, err := w.queue.RecentlyQueued(ctx, goal.UserID, domain.CategoryGoalReminder, now.Add(-4*time.Hour))
		if err != nil {
			slog.Error("goal alert dedup check failed", "user_id", goal.UserID, "error", err)
			continue
		}
		if recent {
			continue
		}

		subject := "Goal Threshold Alert"
		message := fmt.Sprintf("You're at %.0f%% of your %s goal (%.0f/%.0f). Stay mindful of your usage!",
			progress.Percentage, goalTypeLabel(goal.GoalType), progress.Current, progress.Target)
		w.notifier.QueueBoth(ctx, goal.UserID, domain.CategoryGoalReminder, subject, message)
		alerts++
	}

	if alerts > 0 {
		slog.Info("queued goal threshold alerts", "count", alerts)
	}
	return nil
}

// runMaintenance performs the daily housekeeping pass: streak scoring for
// the day that just ended and expired-token cleanup.
func (w *Worker) runMaintenance(ctx context.Context) {
	now := w.now()

	if w.goals != nil && w.goalSvc != nil {
		yesterday := dateOnly(now).AddDate(0, 0, -1)
		goals, err := w.goals.ListActive(ctx)
		if err != nil {
			slog.Error("list active goals for streaks", "error", err)
		} else {
			seen := make(map[int64]bool)
			for _, g := range goals {
				if seen[g.UserID] {
					continue
				}
				seen[g.UserID] = true
				if err := w.goalSvc.EvaluateStreaks(ctx, g.UserID, yesterday); err != nil {
					slog.Error("evaluate streaks", "user_id", g.UserID, "error", err)
				}
			}
		}
	}

	if w.tokens != nil {
		cleaned, err := w.tokens.DeleteExpired(ctx, now)
		if err != nil {
			slog.Error("cleanup expired tokens", "error", err)
		} else if cleaned > 0 {
			slog.Info("cleaned up expired verification tokens", "count", cleaned)
		}
	}
}

func renderWeeklyReport(s *WeeklySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h3>Week of %s - %s</h3>", s.WeekStart.Format("January 2"), s.WeekEnd.Format("January 2, 2006"))
	b.WriteString("<h4>Usage Summary</h4><ul>")
	fmt.Fprintf(&b, "<li><strong>Total Pouches:</strong> %d</li>", s.TotalPouches)
	fmt.Fprintf(&b, "<li><strong>Total Nicotine:</strong> %.1fmg</li>", s.TotalMg)
	fmt.Fprintf(&b, "<li><strong>Daily Average:</strong> %.1f pouches</li>", s.DailyAvg)
	b.WriteString("</ul><h4>Goals Progress</h4>")

	if len(s.Goals) == 0 {
		b.WriteString("<p>No active goals. Consider setting some goals to track your progress!</p>")
	} else {
		b.WriteString("<ul>")
		for _, g := range s.Goals {
			status := "In Progress"
			if g.Achieved {
				status = "Achieved"
			}
			fmt.Fprintf(&b, "<li><strong>%s:</strong> %.0f/%.0f - %s</li>",
				goalTypeLabel(g.GoalType), g.Current, g.Target, status)
		}
		b.WriteString("</ul>")
	}

	b.WriteString("<p>Keep up the great work! Remember, every small step counts towards your health goals.</p>")
	return b.String()
}
