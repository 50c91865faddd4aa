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

// LogRepository handles consumption log entries and their aggregates.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new LogRepository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

const logColumns = `l.id, l.user_id, l.log_date, l.log_time, l.pouch_id, l.custom_brand, l.custom_nicotine_mg, l.quantity, l.notes, l.created_at, p.brand AS pouch_brand, p.nicotine_mg AS pouch_nicotine_mg`

const logFrom = ` FROM logs l LEFT JOIN pouches p ON p.id = l.pouch_id `

// FindByID retrieves a log entry with its pouch details joined in.
func (r *LogRepository) FindByID(ctx context.Context, id int64) (*domain.Log, error) {
	var entry domain.Log
	err := r.db.GetContext(ctx, &entry,
		`SELECT `+logColumns+logFrom+`WHERE l.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find log by id %d: %w", id, err)
	}
	return &entry, nil
}

// ListByUser returns the user's entries between two dates inclusive, newest
// first.
func (r *LogRepository) ListByUser(ctx context.Context, userID int64, start, end time.Time, limit, offset int) ([]domain.Log, error) {
	var entries []domain.Log
	err := r.db.SelectContext(ctx, &entries,
		`SELECT `+logColumns+logFrom+`
		 WHERE l.user_id = $1 AND l.log_date >= $2 AND l.log_date <= $3
		 ORDER BY l.log_date DESC, l.log_time DESC NULLS LAST, l.id DESC
		 LIMIT $4 OFFSET $5`,
		userID, start, end, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list logs for user %d: %w", userID, err)
	}
	return entries, nil
}

// Create inserts a log entry and returns it with pouch details joined.
func (r *LogRepository) Create(ctx context.Context, entry domain.Log) (*domain.Log, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO logs (user_id, log_date, log_time, pouch_id, custom_brand, custom_nicotine_mg, quantity, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		entry.UserID, entry.LogDate, entry.LogTime, entry.PouchID,
		entry.CustomBrand, entry.CustomNicotineMg, entry.Quantity, entry.Notes,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update rewrites a log entry's mutable fields.
func (r *LogRepository) Update(ctx context.Context, entry domain.Log) (*domain.Log, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE logs
		 SET log_date = $2, log_time = $3, pouch_id = $4, custom_brand = $5, custom_nicotine_mg = $6, quantity = $7, notes = $8
		 WHERE id = $1`,
		entry.ID, entry.LogDate, entry.LogTime, entry.PouchID,
		entry.CustomBrand, entry.CustomNicotineMg, entry.Quantity, entry.Notes)
	if err != nil {
		return nil, fmt.Errorf("update log %d: %w", entry.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, entry.ID)
}

// Delete removes a log entry.
func (r *LogRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete log %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DailySeries returns per-day pouch and nicotine totals between two dates.
// Days with no logs are absent; callers fill gaps.
func (r *LogRepository) DailySeries(ctx context.Context, userID int64, start, end time.Time) ([]domain.DailyTotal, error) {
	var totals []domain.DailyTotal
	err := r.db.SelectContext(ctx, &totals,
		`SELECT l.log_date,
		        COALESCE(SUM(l.quantity), 0) AS pouches,
		        COALESCE(SUM(l.quantity * COALESCE(p.nicotine_mg, l.custom_nicotine_mg, 0)), 0) AS mg
		 `+logFrom+`
		 WHERE l.user_id = $1 AND l.log_date >= $2 AND l.log_date <= $3
		 GROUP BY l.log_date
		 ORDER BY l.log_date ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("daily series for user %d: %w", userID, err)
	}
	return totals, nil
}

// HourlyDistribution returns pouch counts grouped by hour of day for entries
// that carry a time component.
func (r *LogRepository) HourlyDistribution(ctx context.Context, userID int64, start, end time.Time) ([]domain.HourlyTotal, error) {
	var totals []domain.HourlyTotal
	err := r.db.SelectContext(ctx, &totals,
		`SELECT CAST(LEFT(l.log_time, 2) AS INT) AS hour,
		        COALESCE(SUM(l.quantity), 0) AS pouches
		 FROM logs l
		 WHERE l.user_id = $1 AND l.log_date >= $2 AND l.log_date <= $3 AND l.log_time IS NOT NULL
		 GROUP BY hour
		 ORDER BY hour ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("hourly distribution for user %d: %w", userID, err)
	}
	return totals, nil
}

// TotalsBetween returns summed pouches and nicotine for a date range.
func (r *LogRepository) TotalsBetween(ctx context.Context, userID int64, start, end time.Time) (int, float64, error) {
	var row struct {
		Pouches int     `db:"pouches"`
		Mg      float64 `db:"mg"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT COALESCE(SUM(l.quantity), 0) AS pouches,
		        COALESCE(SUM(l.quantity * COALESCE(p.nicotine_mg, l.custom_nicotine_mg, 0)), 0) AS mg
		 `+logFrom+`
		 WHERE l.user_id = $1 AND l.log_date >= $2 AND l.log_date <= $3`,
		userID, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("totals for user %d: %w", userID, err)
	}
	return row.Pouches, row.Mg, nil
}
