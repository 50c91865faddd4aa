package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/domain"
)

type mockGoalStore struct {
	goals   map[int64]*domain.Goal
	streaks map[int64][2]int
}

func newMockGoalStore(goals ...domain.Goal) *mockGoalStore {
	s := &mockGoalStore{goals: make(map[int64]*domain.Goal), streaks: make(map[int64][2]int)}
	for i := range goals {
		g := goals[i]
		s.goals[g.ID] = &g
	}
	return s
}

func (s *mockGoalStore) FindByID(_ context.Context, id int64) (*domain.Goal, error) {
	g, ok := s.goals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *mockGoalStore) ListByUser(_ context.Context, userID int64) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *mockGoalStore) ListActiveByUser(ctx context.Context, userID int64) ([]domain.Goal, error) {
	all, _ := s.ListByUser(ctx, userID)
	var out []domain.Goal
	for _, g := range all {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *mockGoalStore) ListActive(context.Context) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, g := range s.goals {
		if g.IsActive {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *mockGoalStore) ListActiveWithNotifications(context.Context) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, g := range s.goals {
		if g.IsActive && g.EnableNotifications {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *mockGoalStore) Create(_ context.Context, g domain.Goal) (*domain.Goal, error) {
	g.ID = int64(len(s.goals) + 1)
	s.goals[g.ID] = &g
	copied := g
	return &copied, nil
}

func (s *mockGoalStore) Update(_ context.Context, g domain.Goal) (*domain.Goal, error) {
	s.goals[g.ID] = &g
	copied := g
	return &copied, nil
}

func (s *mockGoalStore) UpdateStreak(_ context.Context, id int64, current, best int) error {
	s.streaks[id] = [2]int{current, best}
	if g, ok := s.goals[id]; ok {
		g.CurrentStreak, g.BestStreak = current, best
	}
	return nil
}

type mockLogStore struct {
	pouches int
	mg      float64
}

func (s *mockLogStore) FindByID(context.Context, int64) (*domain.Log, error) { return nil, domain.ErrNotFound }
func (s *mockLogStore) ListByUser(context.Context, int64, time.Time, time.Time, int, int) ([]domain.Log, error) {
	return nil, nil
}
func (s *mockLogStore) Create(_ context.Context, l domain.Log) (*domain.Log, error)  { return &l, nil }
func (s *mockLogStore) Update(_ context.Context, l domain.Log) (*domain.Log, error)  { return &l, nil }
func (s *mockLogStore) Delete(context.Context, int64) error                          { return nil }
func (s *mockLogStore) DailySeries(context.Context, int64, time.Time, time.Time) ([]domain.DailyTotal, error) {
	return nil, nil
}
func (s *mockLogStore) HourlyDistribution(context.Context, int64, time.Time, time.Time) ([]domain.HourlyTotal, error) {
	return nil, nil
}
func (s *mockLogStore) TotalsBetween(context.Context, int64, time.Time, time.Time) (int, float64, error) {
	return s.pouches, s.mg, nil
}

func activeGoal(id int64, goalType domain.GoalType, target float64) domain.Goal {
	return domain.Goal{
		ID:          id,
		UserID:      1,
		GoalType:    goalType,
		TargetValue: target,
		IsActive:    true,
	}
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("PouchGoalUnderTargetIsAchieved", func(t *testing.T) {
		svc := NewGoalService(newMockGoalStore(), &mockLogStore{pouches: 4}, nil)

		p, err := svc.Progress(ctx, activeGoal(1, domain.GoalDailyPouches, 8), day)
		require.NoError(t, err)
		require.Equal(t, 4.0, p.Current)
		require.Equal(t, 50.0, p.Percentage)
		require.True(t, p.Achieved)
	})

	t.Run("MgGoalOverTargetIsNotAchieved", func(t *testing.T) {
		svc := NewGoalService(newMockGoalStore(), &mockLogStore{pouches: 10, mg: 60}, nil)

		p, err := svc.Progress(ctx, activeGoal(1, domain.GoalDailyMg, 50), day)
		require.NoError(t, err)
		require.Equal(t, 60.0, p.Current)
		require.Equal(t, 120.0, p.Percentage)
		require.False(t, p.Achieved)
	})
}

func TestEvaluateStreaks(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	newService := func(goals *mockGoalStore, logs LogStore) (*GoalService, *mockNotificationStore) {
		queue := &mockNotificationStore{}
		notifier := NewNotificationService(queue, &mockUserStore{user: testUser()},
			NewPreferenceService(&mockPreferenceStore{pref: domain.DefaultPreference(1)}),
			&mockMailer{}, &mockWebhook{}, 3)
		return NewGoalService(goals, logs, notifier), queue
	}

	t.Run("AchievedDayExtendsStreak", func(t *testing.T) {
		goal := activeGoal(1, domain.GoalDailyPouches, 8)
		goal.CurrentStreak, goal.BestStreak = 3, 5
		store := newMockGoalStore(goal)
		svc, _ := newService(store, &mockLogStore{pouches: 4})

		require.NoError(t, svc.EvaluateStreaks(ctx, 1, day))
		require.Equal(t, [2]int{4, 5}, store.streaks[1])
	})

	t.Run("MissedDayResetsStreakButKeepsBest", func(t *testing.T) {
		goal := activeGoal(1, domain.GoalDailyPouches, 8)
		goal.CurrentStreak, goal.BestStreak = 12, 12
		store := newMockGoalStore(goal)
		svc, _ := newService(store, &mockLogStore{pouches: 20})

		require.NoError(t, svc.EvaluateStreaks(ctx, 1, day))
		require.Equal(t, [2]int{0, 12}, store.streaks[1])
	})

	t.Run("MilestoneQueuesAchievement", func(t *testing.T) {
		goal := activeGoal(1, domain.GoalDailyPouches, 8)
		goal.CurrentStreak, goal.BestStreak = 6, 6
		store := newMockGoalStore(goal)
		svc, queue := newService(store, &mockLogStore{pouches: 4})

		require.NoError(t, svc.EvaluateStreaks(ctx, 1, day))
		require.Equal(t, [2]int{7, 7}, store.streaks[1])
		require.Len(t, queue.created, 1)
		require.Equal(t, domain.CategoryAchievement, queue.created[0].Category)
	})

	t.Run("NonMilestoneStaysQuiet", func(t *testing.T) {
		goal := activeGoal(1, domain.GoalDailyPouches, 8)
		goal.CurrentStreak = 8
		store := newMockGoalStore(goal)
		svc, queue := newService(store, &mockLogStore{pouches: 4})

		require.NoError(t, svc.EvaluateStreaks(ctx, 1, day))
		require.Empty(t, queue.created)
	})
}
