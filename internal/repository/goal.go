package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// GoalRepository handles consumption goals.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository creates a new GoalRepository.
func NewGoalRepository(db *sqlx.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

const goalColumns = `id, user_id, goal_type, target_value, current_streak, best_streak, start_date, end_date, is_active, enable_notifications, notification_threshold, created_at, updated_at`

// FindByID retrieves a goal by ID.
func (r *GoalRepository) FindByID(ctx context.Context, id int64) (*domain.Goal, error) {
	var goal domain.Goal
	err := r.db.GetContext(ctx, &goal,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find goal by id %d: %w", id, err)
	}
	return &goal, nil
}

// ListByUser returns all of a user's goals, newest first.
func (r *GoalRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Goal, error) {
	var goals []domain.Goal
	err := r.db.SelectContext(ctx, &goals,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals for user %d: %w", userID, err)
	}
	return goals, nil
}

// ListActiveByUser returns the user's active goals.
func (r *GoalRepository) ListActiveByUser(ctx context.Context, userID int64) ([]domain.Goal, error) {
	var goals []domain.Goal
	err := r.db.SelectContext(ctx, &goals,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active goals for user %d: %w", userID, err)
	}
	return goals, nil
}

// ListActive returns every active goal across all users.
func (r *GoalRepository) ListActive(ctx context.Context) ([]domain.Goal, error) {
	var goals []domain.Goal
	err := r.db.SelectContext(ctx, &goals,
		`SELECT `+goalColumns+` FROM goals WHERE is_active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list active goals: %w", err)
	}
	return goals, nil
}

// ListActiveWithNotifications returns every active goal that has threshold
// alerts enabled, across all users. Consumed by the background worker.
func (r *GoalRepository) ListActiveWithNotifications(ctx context.Context) ([]domain.Goal, error) {
	var goals []domain.Goal
	err := r.db.SelectContext(ctx, &goals,
		`SELECT `+goalColumns+` FROM goals WHERE is_active = TRUE AND enable_notifications = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list goals with notifications: %w", err)
	}
	return goals, nil
}

// Create inserts a new goal.
func (r *GoalRepository) Create(ctx context.Context, goal domain.Goal) (*domain.Goal, error) {
	var result domain.Goal
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO goals (user_id, goal_type, target_value, start_date, end_date, is_active, enable_notifications, notification_threshold)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+goalColumns,
		goal.UserID, goal.GoalType, goal.TargetValue, goal.StartDate, goal.EndDate,
		goal.IsActive, goal.EnableNotifications, goal.NotificationThreshold,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &result, nil
}

// Update rewrites a goal's settings.
func (r *GoalRepository) Update(ctx context.Context, goal domain.Goal) (*domain.Goal, error) {
	var result domain.Goal
	err := r.db.QueryRowxContext(ctx,
		`UPDATE goals
		 SET goal_type = $2, target_value = $3, end_date = $4, is_active = $5,
		     enable_notifications = $6, notification_threshold = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+goalColumns,
		goal.ID, goal.GoalType, goal.TargetValue, goal.EndDate, goal.IsActive,
		goal.EnableNotifications, goal.NotificationThreshold,
	).StructScan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update goal %d: %w", goal.ID, err)
	}
	return &result, nil
}

// UpdateStreak persists streak counters after a daily evaluation.
func (r *GoalRepository) UpdateStreak(ctx context.Context, id int64, current, best int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET current_streak = $2, best_streak = $3, updated_at = NOW() WHERE id = $1`,
		id, current, best)
	if err != nil {
		return fmt.Errorf("update streak for goal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
