package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumire/pouchlog/internal/domain"
)

// GoalStore defines the goal data access interface.
type GoalStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Goal, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Goal, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]domain.Goal, error)
	ListActive(ctx context.Context) ([]domain.Goal, error)
	ListActiveWithNotifications(ctx context.Context) ([]domain.Goal, error)
	Create(ctx context.Context, goal domain.Goal) (*domain.Goal, error)
	Update(ctx context.Context, goal domain.Goal) (*domain.Goal, error)
	UpdateStreak(ctx context.Context, id int64, current, best int) error
}

// Streak lengths that earn an achievement notification.
var streakMilestones = []int{7, 14, 30, 60, 100}

// GoalService manages consumption goals and streaks.
type GoalService struct {
	goals    GoalStore
	logs     LogStore
	notifier *NotificationService
}

// NewGoalService creates a new GoalService.
func NewGoalService(goals GoalStore, logs LogStore, notifier *NotificationService) *GoalService {
	return &GoalService{goals: goals, logs: logs, notifier: notifier}
}

// GoalInput is the payload for creating or updating a goal.
type GoalInput struct {
	GoalType              domain.GoalType `json:"goal_type" form:"goal_type" validate:"required,oneof=daily_pouches daily_mg"`
	TargetValue           float64         `json:"target_value" form:"target_value" validate:"required,gt=0"`
	EndDate               string          `json:"end_date" form:"end_date"`
	EnableNotifications   bool            `json:"enable_notifications" form:"enable_notifications"`
	NotificationThreshold float64         `json:"notification_threshold" form:"notification_threshold" validate:"omitempty,gt=0,lte=1"`
}

// Create starts a new active goal for the user.
func (s *GoalService) Create(ctx context.Context, userID int64, in GoalInput) (*domain.Goal, error) {
	goal := domain.Goal{
		UserID:                userID,
		GoalType:              in.GoalType,
		TargetValue:           in.TargetValue,
		StartDate:             time.Now().UTC().Truncate(24 * time.Hour),
		IsActive:              true,
		EnableNotifications:   in.EnableNotifications,
		NotificationThreshold: in.NotificationThreshold,
	}
	if goal.NotificationThreshold == 0 {
		goal.NotificationThreshold = 0.8
	}
	if in.EndDate != "" {
		end, err := time.Parse("2006-01-02", in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end_date %q", domain.ErrInvalidInput, in.EndDate)
		}
		goal.EndDate = &end
	}
	return s.goals.Create(ctx, goal)
}

// List returns all of the user's goals.
func (s *GoalService) List(ctx context.Context, userID int64) ([]domain.Goal, error) {
	return s.goals.ListByUser(ctx, userID)
}

// Update rewrites a goal owned by the user.
func (s *GoalService) Update(ctx context.Context, userID, goalID int64, in GoalInput, active bool) (*domain.Goal, error) {
	goal, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	goal.GoalType = in.GoalType
	goal.TargetValue = in.TargetValue
	goal.IsActive = active
	goal.EnableNotifications = in.EnableNotifications
	if in.NotificationThreshold > 0 {
		goal.NotificationThreshold = in.NotificationThreshold
	}
	goal.EndDate = nil
	if in.EndDate != "" {
		end, err := time.Parse("2006-01-02", in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end_date %q", domain.ErrInvalidInput, in.EndDate)
		}
		goal.EndDate = &end
	}

	return s.goals.Update(ctx, *goal)
}

// Deactivate retires a goal without deleting its history.
func (s *GoalService) Deactivate(ctx context.Context, userID, goalID int64) (*domain.Goal, error) {
	goal, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	goal.IsActive = false
	return s.goals.Update(ctx, *goal)
}

func (s *GoalService) ownedGoal(ctx context.Context, userID, goalID int64) (*domain.Goal, error) {
	goal, err := s.goals.FindByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return goal, nil
}

// Progress computes a goal's standing for one day. Staying at or under the
// target counts as achieved.
func (s *GoalService) Progress(ctx context.Context, goal domain.Goal, day time.Time) (domain.GoalProgress, error) {
	pouches, mg, err := s.logs.TotalsBetween(ctx, goal.UserID, day, day)
	if err != nil {
		return domain.GoalProgress{}, err
	}

	current := float64(pouches)
	if goal.GoalType == domain.GoalDailyMg {
		current = mg
	}

	p := domain.GoalProgress{
		GoalID:   goal.ID,
		GoalType: goal.GoalType,
		Current:  current,
		Target:   goal.TargetValue,
		Achieved: current <= goal.TargetValue,
	}
	if goal.TargetValue > 0 {
		p.Percentage = current / goal.TargetValue * 100
	}
	return p, nil
}

// ProgressForUser returns today's progress for every active goal.
func (s *GoalService) ProgressForUser(ctx context.Context, userID int64, day time.Time) ([]domain.GoalProgress, error) {
	goals, err := s.goals.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := make([]domain.GoalProgress, 0, len(goals))
	for _, g := range goals {
		p, err := s.Progress(ctx, g, day)
		if err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, nil
}

// EvaluateStreaks scores each active goal for the given (usually just
// completed) day, updates streak counters, and queues achievement
// notifications when a milestone or a new personal best is reached.
func (s *GoalService) EvaluateStreaks(ctx context.Context, userID int64, day time.Time) error {
	goals, err := s.goals.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, goal := range goals {
		progress, err := s.Progress(ctx, goal, day)
		if err != nil {
			return err
		}

		current, best := goal.CurrentStreak, goal.BestStreak
		if progress.Achieved {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}

		if err := s.goals.UpdateStreak(ctx, goal.ID, current, best); err != nil {
			return err
		}

		if progress.Achieved && isMilestone(current) {
			subject := "Goal Milestone Reached!"
			message := fmt.Sprintf("Congratulations! You've stayed within your %s goal for %d days in a row.",
				goalTypeLabel(goal.GoalType), current)
			s.notifier.QueueBoth(ctx, userID, domain.CategoryAchievement, subject, message)
			slog.Info("streak milestone reached", "user_id", userID, "goal_id", goal.ID, "streak", current)
		}
	}
	return nil
}

func isMilestone(streak int) bool {
	for _, m := range streakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

func goalTypeLabel(t domain.GoalType) string {
	switch t {
	case domain.GoalDailyPouches:
		return "daily pouches"
	case domain.GoalDailyMg:
		return "daily nicotine"
	default:
		return string(t)
	}
}
