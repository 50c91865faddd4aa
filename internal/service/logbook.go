package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sumire/pouchlog/internal/cache"
	"github.com/sumire/pouchlog/internal/domain"
)

// LogStore defines the consumption log data access interface.
type LogStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Log, error)
	ListByUser(ctx context.Context, userID int64, start, end time.Time, limit, offset int) ([]domain.Log, error)
	Create(ctx context.Context, entry domain.Log) (*domain.Log, error)
	Update(ctx context.Context, entry domain.Log) (*domain.Log, error)
	Delete(ctx context.Context, id int64) error
	DailySeries(ctx context.Context, userID int64, start, end time.Time) ([]domain.DailyTotal, error)
	HourlyDistribution(ctx context.Context, userID int64, start, end time.Time) ([]domain.HourlyTotal, error)
	TotalsBetween(ctx context.Context, userID int64, start, end time.Time) (int, float64, error)
}

// LogbookService manages consumption entries.
type LogbookService struct {
	logs    LogStore
	pouches PouchStore
	charts  *cache.Cache
}

// NewLogbookService creates a new LogbookService.
func NewLogbookService(logs LogStore, pouches PouchStore, charts *cache.Cache) *LogbookService {
	return &LogbookService{logs: logs, pouches: pouches, charts: charts}
}

// LogInput is the payload for creating or updating an entry. Either a
// catalog pouch ID or a custom brand with strength must be given.
type LogInput struct {
	LogDate          string   `json:"log_date" form:"log_date" validate:"required"`
	LogTime          string   `json:"log_time" form:"log_time"`
	PouchID          *int64   `json:"pouch_id" form:"pouch_id"`
	CustomBrand      string   `json:"custom_brand" form:"custom_brand" validate:"max=80"`
	CustomNicotineMg *float64 `json:"custom_nicotine_mg" form:"custom_nicotine_mg" validate:"omitempty,gt=0,lte=100"`
	Quantity         int      `json:"quantity" form:"quantity" validate:"required,min=1,max=100"`
	Notes            string   `json:"notes" form:"notes" validate:"max=1000"`
}

func (s *LogbookService) entryFromInput(ctx context.Context, userID int64, in LogInput) (domain.Log, error) {
	date, err := time.Parse("2006-01-02", in.LogDate)
	if err != nil {
		return domain.Log{}, fmt.Errorf("%w: invalid log_date %q", domain.ErrInvalidInput, in.LogDate)
	}

	entry := domain.Log{
		UserID:   userID,
		LogDate:  date,
		Quantity: in.Quantity,
	}

	if in.LogTime != "" {
		t, err := domain.ParseTimeOfDay(in.LogTime)
		if err != nil {
			return domain.Log{}, err
		}
		entry.LogTime = domain.NullTimeOfDay{TimeOfDay: t, Valid: true}
	}
	if in.Notes != "" {
		entry.Notes = &in.Notes
	}

	switch {
	case in.PouchID != nil:
		pouch, err := s.pouches.FindByID(ctx, *in.PouchID)
		if err != nil {
			return domain.Log{}, fmt.Errorf("resolve pouch: %w", err)
		}
		if !pouch.IsDefault && (pouch.CreatedBy == nil || *pouch.CreatedBy != userID) {
			return domain.Log{}, domain.ErrForbidden
		}
		entry.PouchID = &pouch.ID
	case in.CustomBrand != "" && in.CustomNicotineMg != nil:
		entry.CustomBrand = &in.CustomBrand
		entry.CustomNicotineMg = in.CustomNicotineMg
	default:
		return domain.Log{}, fmt.Errorf("%w: either pouch_id or custom brand with strength is required", domain.ErrInvalidInput)
	}

	return entry, nil
}

// Create records a new entry.
func (s *LogbookService) Create(ctx context.Context, userID int64, in LogInput) (*domain.Log, error) {
	entry, err := s.entryFromInput(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	created, err := s.logs.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.charts.Invalidate(ctx, userID)
	return created, nil
}

// List returns entries between two dates, defaulting to the last 30 days.
func (s *LogbookService) List(ctx context.Context, userID int64, start, end time.Time, limit, offset int) ([]domain.Log, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.logs.ListByUser(ctx, userID, start, end, limit, offset)
}

// Update rewrites an entry owned by the user.
func (s *LogbookService) Update(ctx context.Context, userID, logID int64, in LogInput) (*domain.Log, error) {
	existing, err := s.logs.FindByID(ctx, logID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, domain.ErrForbidden
	}

	entry, err := s.entryFromInput(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	entry.ID = logID

	updated, err := s.logs.Update(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.charts.Invalidate(ctx, userID)
	return updated, nil
}

// Delete removes an entry owned by the user.
func (s *LogbookService) Delete(ctx context.Context, userID, logID int64) error {
	existing, err := s.logs.FindByID(ctx, logID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return domain.ErrForbidden
	}

	if err := s.logs.Delete(ctx, logID); err != nil {
		return err
	}
	s.charts.Invalidate(ctx, userID)
	return nil
}
