package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// PouchRepository handles the pouch catalog.
type PouchRepository struct {
	db *sqlx.DB
}

// NewPouchRepository creates a new PouchRepository.
func NewPouchRepository(db *sqlx.DB) *PouchRepository {
	return &PouchRepository{db: db}
}

const pouchColumns = `id, brand, nicotine_mg, is_default, created_by, created_at`

// FindByID retrieves a pouch by ID.
func (r *PouchRepository) FindByID(ctx context.Context, id int64) (*domain.Pouch, error) {
	var pouch domain.Pouch
	err := r.db.GetContext(ctx, &pouch,
		`SELECT `+pouchColumns+` FROM pouches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find pouch by id %d: %w", id, err)
	}
	return &pouch, nil
}

// ListForUser returns the default catalog plus the user's custom pouches,
// ordered by brand then strength.
func (r *PouchRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Pouch, error) {
	var pouches []domain.Pouch
	err := r.db.SelectContext(ctx, &pouches,
		`SELECT `+pouchColumns+` FROM pouches
		 WHERE is_default = TRUE OR created_by = $1
		 ORDER BY brand ASC, nicotine_mg ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pouches for user %d: %w", userID, err)
	}
	return pouches, nil
}

// Create inserts a custom pouch.
func (r *PouchRepository) Create(ctx context.Context, pouch domain.Pouch) (*domain.Pouch, error) {
	var result domain.Pouch
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO pouches (brand, nicotine_mg, is_default, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+pouchColumns,
		pouch.Brand, pouch.NicotineMg, pouch.IsDefault, pouch.CreatedBy,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create pouch: %w", err)
	}
	return &result, nil
}

// SeedDefaults inserts default catalog entries that are not present yet and
// returns how many were added.
func (r *PouchRepository) SeedDefaults(ctx context.Context, pouches []domain.Pouch) (int, error) {
	added := 0
	for _, p := range pouches {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO pouches (brand, nicotine_mg, is_default)
			 SELECT $1, $2, TRUE
			 WHERE NOT EXISTS (
			     SELECT 1 FROM pouches WHERE brand = $1 AND nicotine_mg = $2 AND is_default = TRUE
			 )`,
			p.Brand, p.NicotineMg)
		if err != nil {
			return added, fmt.Errorf("seed pouch %s %.1fmg: %w", p.Brand, p.NicotineMg, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}
