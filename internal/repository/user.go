package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, provider, provider_id, display_name, timezone, email_verified, created_at, updated_at`

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id %d: %w", id, err)
	}
	return &user, nil
}

// FindByEmail retrieves a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// Create inserts a new local account and returns it.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash, provider, provider_id, display_name, timezone)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		user.Email, user.PasswordHash, user.Provider, user.ProviderID, user.DisplayName, user.Timezone,
	).StructScan(&result)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &result, nil
}

// UpsertOAuth creates or updates an account keyed by provider + provider_id.
// OAuth accounts count as email-verified.
func (r *UserRepository) UpsertOAuth(ctx context.Context, user domain.User) (*domain.User, error) {
	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, provider, provider_id, display_name, timezone, email_verified)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET email = EXCLUDED.email,
		               display_name = EXCLUDED.display_name,
		               updated_at = NOW()
		 RETURNING `+userColumns,
		user.Email, user.Provider, user.ProviderID, user.DisplayName, user.Timezone,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("upsert oauth user: %w", err)
	}
	return &result, nil
}

// MarkEmailVerified flags the account's address as confirmed.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProfile updates display name and timezone.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, displayName, timezone string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = $2, timezone = $3, updated_at = NOW() WHERE id = $1`,
		id, displayName, timezone)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const prefixedUserColumns = `u.id, u.email, u.password_hash, u.provider, u.provider_id, u.display_name, u.timezone, u.email_verified, u.created_at, u.updated_at`

// ListWithDailyReminders returns users who opted into daily reminders and
// have at least one channel enabled.
func (r *UserRepository) ListWithDailyReminders(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+prefixedUserColumns+`
		 FROM users u
		 JOIN user_preferences p ON p.user_id = u.id
		 WHERE p.daily_reminders = TRUE AND p.channel <> 'none'`)
	if err != nil {
		return nil, fmt.Errorf("list daily reminder users: %w", err)
	}
	return users, nil
}

// ListWithWeeklyReports returns users who opted into weekly reports and
// have at least one channel enabled.
func (r *UserRepository) ListWithWeeklyReports(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+prefixedUserColumns+`
		 FROM users u
		 JOIN user_preferences p ON p.user_id = u.id
		 WHERE p.weekly_reports = TRUE AND p.channel <> 'none'`)
	if err != nil {
		return nil, fmt.Errorf("list weekly report users: %w", err)
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
