package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/config"
	"github.com/sumire/pouchlog/internal/domain"
)

type fakeQueue struct {
	records map[int64]*domain.Notification
}

func newFakeQueue(records ...domain.Notification) *fakeQueue {
	q := &fakeQueue{records: make(map[int64]*domain.Notification)}
	for i := range records {
		rec := records[i]
		q.records[rec.ID] = &rec
	}
	return q
}

func (q *fakeQueue) SelectDue(_ context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var due []domain.Notification
	for _, rec := range q.records {
		if rec.Status == domain.StatusPending && !rec.ScheduledFor.After(now) {
			due = append(due, *rec)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (q *fakeQueue) Update(_ context.Context, n domain.Notification) error {
	q.records[n.ID] = &n
	return nil
}

func (q *fakeQueue) RecentlySent(context.Context, int64, domain.Category, time.Time) (bool, error) {
	return false, nil
}

func (q *fakeQueue) RecentlyQueued(context.Context, int64, domain.Category, time.Time) (bool, error) {
	return false, nil
}

type scriptedDispatcher struct {
	calls int
	err   error
}

func (d *scriptedDispatcher) Deliver(context.Context, domain.Notification) error {
	d.calls++
	return d.err
}

func testWorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
		MaxAttempts:  3,
		RetryBackoff: 5 * time.Minute,
	}
}

func pendingRecord(id int64, scheduledFor time.Time) domain.Notification {
	return domain.Notification{
		ID:           id,
		UserID:       1,
		Channel:      domain.ChannelEmail,
		Category:     domain.CategoryDailyReminder,
		Subject:      "subject",
		Message:      "message",
		Recipient:    "user@example.com",
		Status:       domain.StatusPending,
		MaxAttempts:  3,
		ScheduledFor: scheduledFor,
	}
}

func TestProcessQueue(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("SuccessfulDeliveryMarksSent", func(t *testing.T) {
		queue := newFakeQueue(pendingRecord(1, base))
		dispatcher := &scriptedDispatcher{}
		w := NewWorker(testWorkerConfig(), queue, dispatcher, nil, nil, nil, nil, nil, nil, nil)
		w.now = func() time.Time { return base }

		n, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, 1, dispatcher.calls)

		rec := queue.records[1]
		require.Equal(t, domain.StatusSent, rec.Status)
		require.NotNil(t, rec.LastAttemptAt)
		require.Equal(t, base, *rec.LastAttemptAt)
		require.Nil(t, rec.ErrorMessage)
	})

	t.Run("SentRecordIsNeverReprocessed", func(t *testing.T) {
		queue := newFakeQueue(pendingRecord(1, base))
		dispatcher := &scriptedDispatcher{}
		w := NewWorker(testWorkerConfig(), queue, dispatcher, nil, nil, nil, nil, nil, nil, nil)
		w.now = func() time.Time { return base }

		_, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)

		w.now = func() time.Time { return base.Add(time.Hour) }
		n, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, 1, dispatcher.calls, "exactly one delivery call for a record that succeeded")
	})

	t.Run("FailureRetriesWithFlatBackoffThenFails", func(t *testing.T) {
		queue := newFakeQueue(pendingRecord(1, base))
		dispatcher := &scriptedDispatcher{err: errors.New("discord returned status 500")}
		w := NewWorker(testWorkerConfig(), queue, dispatcher, nil, nil, nil, nil, nil, nil, nil)

		// First attempt fails: still pending, pushed out one flat backoff.
		w.now = func() time.Time { return base }
		_, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)

		rec := queue.records[1]
		require.Equal(t, domain.StatusPending, rec.Status)
		require.Equal(t, 1, rec.Attempts)
		require.Equal(t, base.Add(5*time.Minute), rec.ScheduledFor)
		require.NotNil(t, rec.ErrorMessage)

		// Not yet due: nothing happens.
		w.now = func() time.Time { return base.Add(2 * time.Minute) }
		n, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, 1, dispatcher.calls)

		// Second attempt fails: backoff stays flat, not exponential.
		w.now = func() time.Time { return base.Add(5 * time.Minute) }
		_, err = w.ProcessQueue(context.Background())
		require.NoError(t, err)

		rec = queue.records[1]
		require.Equal(t, domain.StatusPending, rec.Status)
		require.Equal(t, 2, rec.Attempts)
		require.Equal(t, base.Add(10*time.Minute), rec.ScheduledFor)

		// Third attempt exhausts the budget: terminal failure.
		w.now = func() time.Time { return base.Add(10 * time.Minute) }
		_, err = w.ProcessQueue(context.Background())
		require.NoError(t, err)

		rec = queue.records[1]
		require.Equal(t, domain.StatusFailed, rec.Status)
		require.Equal(t, 3, rec.Attempts)
		require.Equal(t, 3, dispatcher.calls)

		// A failed record is never picked up again.
		w.now = func() time.Time { return base.Add(24 * time.Hour) }
		n, err = w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Zero(t, n)
		require.Equal(t, 3, dispatcher.calls)
	})

	t.Run("FutureRecordsAreNotSelected", func(t *testing.T) {
		queue := newFakeQueue(pendingRecord(1, base.Add(time.Hour)))
		dispatcher := &scriptedDispatcher{}
		w := NewWorker(testWorkerConfig(), queue, dispatcher, nil, nil, nil, nil, nil, nil, nil)
		w.now = func() time.Time { return base }

		n, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Zero(t, n)
		require.Zero(t, dispatcher.calls)
	})

	t.Run("OneFailureDoesNotAbortTheBatch", func(t *testing.T) {
		queue := newFakeQueue(pendingRecord(1, base), pendingRecord(2, base))
		dispatcher := &flakyDispatcher{failID: 1}
		w := NewWorker(testWorkerConfig(), queue, dispatcher, nil, nil, nil, nil, nil, nil, nil)
		w.now = func() time.Time { return base }

		n, err := w.ProcessQueue(context.Background())
		require.NoError(t, err)
		require.Equal(t, 2, n)

		require.Equal(t, domain.StatusPending, queue.records[1].Status)
		require.Equal(t, 1, queue.records[1].Attempts)
		require.Equal(t, domain.StatusSent, queue.records[2].Status)
	})
}

type flakyDispatcher struct {
	failID int64
}

func (d *flakyDispatcher) Deliver(_ context.Context, n domain.Notification) error {
	if n.ID == d.failID {
		return errors.New("smtp connection refused")
	}
	return nil
}

type recordingQueuer struct {
	both []domain.Category
}

func (r *recordingQueuer) Queue(context.Context, int64, domain.Channel, domain.Category, string, string, string) error {
	return nil
}

func (r *recordingQueuer) QueueBoth(_ context.Context, _ int64, category domain.Category, _, _ string) {
	r.both = append(r.both, category)
}

type staticDirectory struct {
	users []domain.User
}

func (d *staticDirectory) ListWithDailyReminders(context.Context) ([]domain.User, error) {
	return d.users, nil
}

func (d *staticDirectory) ListWithWeeklyReports(context.Context) ([]domain.User, error) {
	return d.users, nil
}

type dedupQueue struct {
	fakeQueue
	queued bool
}

func (q *dedupQueue) RecentlyQueued(context.Context, int64, domain.Category, time.Time) (bool, error) {
	return q.queued, nil
}

func TestSendDailyReminders(t *testing.T) {
	ctx := context.Background()

	newReminderWorker := func(reminderTime string, queued bool) (*Worker, *recordingQueuer, *dedupQueue) {
		pref := domain.DefaultPreference(1)
		pref.DailyReminders = true
		if reminderTime != "" {
			parsed, err := domain.ParseTimeOfDay(reminderTime)
			require.NoError(t, err)
			pref.ReminderTime = domain.NullTimeOfDay{TimeOfDay: parsed, Valid: true}
		}

		queue := &dedupQueue{fakeQueue: *newFakeQueue(), queued: queued}
		notifier := &recordingQueuer{}
		directory := &staticDirectory{users: []domain.User{{ID: 1, Email: "u@example.com", Timezone: "UTC"}}}
		prefs := NewPreferenceService(&mockPreferenceStore{pref: pref})

		w := NewWorker(testWorkerConfig(), queue, &scriptedDispatcher{}, notifier,
			directory, prefs, nil, nil, nil, nil)
		return w, notifier, queue
	}

	t.Run("FiresOnMinuteMatch", func(t *testing.T) {
		w, notifier, _ := newReminderWorker("09:30", false)
		w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 45, 0, time.UTC) }

		require.NoError(t, w.SendDailyReminders(ctx))
		require.Equal(t, []domain.Category{domain.CategoryDailyReminder}, notifier.both)
	})

	t.Run("SkipsOnMinuteMismatch", func(t *testing.T) {
		w, notifier, _ := newReminderWorker("09:30", false)
		w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 31, 0, 0, time.UTC) }

		require.NoError(t, w.SendDailyReminders(ctx))
		require.Empty(t, notifier.both)
	})

	t.Run("SkipsWithoutConfiguredTime", func(t *testing.T) {
		w, notifier, _ := newReminderWorker("", false)
		w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }

		require.NoError(t, w.SendDailyReminders(ctx))
		require.Empty(t, notifier.both)
	})

	t.Run("DedupWindowSuppressesSecondFire", func(t *testing.T) {
		w, notifier, _ := newReminderWorker("09:30", true)
		w.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }

		require.NoError(t, w.SendDailyReminders(ctx))
		require.Empty(t, notifier.both)
	})
}

func TestCheckGoalThresholds(t *testing.T) {
	ctx := context.Background()

	newThresholdWorker := func(pouches int, queued bool) (*Worker, *recordingQueuer) {
		goal := activeGoal(1, domain.GoalDailyPouches, 10)
		goal.EnableNotifications = true
		goal.NotificationThreshold = 0.8
		goals := newMockGoalStore(goal)

		goalSvc := NewGoalService(goals, &mockLogStore{pouches: pouches}, nil)
		queue := &dedupQueue{fakeQueue: *newFakeQueue(), queued: queued}
		notifier := &recordingQueuer{}

		w := NewWorker(testWorkerConfig(), queue, &scriptedDispatcher{}, notifier,
			nil, nil, goals, goalSvc, nil, nil)
		w.now = func() time.Time { return time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) }
		return w, notifier
	}

	t.Run("AlertsAtThreshold", func(t *testing.T) {
		w, notifier := newThresholdWorker(8, false) // 80% of 10
		require.NoError(t, w.CheckGoalThresholds(ctx))
		require.Equal(t, []domain.Category{domain.CategoryGoalReminder}, notifier.both)
	})

	t.Run("QuietBelowThreshold", func(t *testing.T) {
		w, notifier := newThresholdWorker(7, false)
		require.NoError(t, w.CheckGoalThresholds(ctx))
		require.Empty(t, notifier.both)
	})

	t.Run("QuietOnceOverTarget", func(t *testing.T) {
		// Past 100% the ceiling is already blown; the achievement flow
		// handles that, not the threshold warning.
		w, notifier := newThresholdWorker(12, false)
		require.NoError(t, w.CheckGoalThresholds(ctx))
		require.Empty(t, notifier.both)
	})

	t.Run("DedupSuppressesRepeat", func(t *testing.T) {
		w, notifier := newThresholdWorker(8, true)
		require.NoError(t, w.CheckGoalThresholds(ctx))
		require.Empty(t, notifier.both)
	})
}
