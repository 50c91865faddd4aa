package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// VerificationRepository handles email verification tokens.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

const verificationColumns = `id, user_id, token, expires_at, verified_at, created_at`

// Create stores a fresh token for a user.
func (r *VerificationRepository) Create(ctx context.Context, v domain.EmailVerification) (*domain.EmailVerification, error) {
	var result domain.EmailVerification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO email_verifications (user_id, token, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING `+verificationColumns,
		v.UserID, v.Token, v.ExpiresAt,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create verification token: %w", err)
	}
	return &result, nil
}

// FindByToken retrieves a token record.
func (r *VerificationRepository) FindByToken(ctx context.Context, token string) (*domain.EmailVerification, error) {
	var v domain.EmailVerification
	err := r.db.GetContext(ctx, &v,
		`SELECT `+verificationColumns+` FROM email_verifications WHERE token = $1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	return &v, nil
}

// MarkVerified records when the token was used.
func (r *VerificationRepository) MarkVerified(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_verifications SET verified_at = $2 WHERE id = $1 AND verified_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("mark token verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}

// DeleteExpired removes unused tokens past their TTL and returns the count.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE verified_at IS NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
