package service

import (
	"context"
	"fmt"

	"github.com/sumire/pouchlog/internal/domain"
)

// PouchStore defines the pouch catalog data access interface.
type PouchStore interface {
	FindByID(ctx context.Context, id int64) (*domain.Pouch, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Pouch, error)
	Create(ctx context.Context, pouch domain.Pouch) (*domain.Pouch, error)
	SeedDefaults(ctx context.Context, pouches []domain.Pouch) (int, error)
}

// CatalogService manages the pouch catalog.
type CatalogService struct {
	pouches PouchStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(pouches PouchStore) *CatalogService {
	return &CatalogService{pouches: pouches}
}

// List returns default pouches plus the user's custom ones.
func (s *CatalogService) List(ctx context.Context, userID int64) ([]domain.Pouch, error) {
	return s.pouches.ListForUser(ctx, userID)
}

// CreatePouchInput is the payload for adding a custom pouch.
type CreatePouchInput struct {
	Brand      string  `json:"brand" form:"brand" validate:"required,max=80"`
	NicotineMg float64 `json:"nicotine_mg" form:"nicotine_mg" validate:"required,gt=0,lte=100"`
}

// CreateCustom adds a user-owned pouch to the catalog.
func (s *CatalogService) CreateCustom(ctx context.Context, userID int64, in CreatePouchInput) (*domain.Pouch, error) {
	return s.pouches.Create(ctx, domain.Pouch{
		Brand:      in.Brand,
		NicotineMg: in.NicotineMg,
		IsDefault:  false,
		CreatedBy:  &userID,
	})
}

// Seed inserts the default catalog, skipping entries already present.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	added, err := s.pouches.SeedDefaults(ctx, DefaultCatalog())
	if err != nil {
		return added, fmt.Errorf("seed default pouches: %w", err)
	}
	return added, nil
}

// DefaultCatalog returns the seeded brand/strength matrix.
func DefaultCatalog() []domain.Pouch {
	entries := []struct {
		brand string
		mgs   []float64
	}{
		{"ZYN", []float64{1.5, 3, 6, 9, 11, 14}},
		{"VELO", []float64{2, 4, 7}},
		{"ON!", []float64{2, 4, 8}},
		{"Rogue", []float64{3, 6, 12}},
		{"Lucy", []float64{4, 8, 12}},
		{"DZRT", []float64{3, 6, 7, 10}},
		{"FRE", []float64{3, 6, 9}},
		{"LOOP", []float64{5, 9, 12}},
		{"KILLA", []float64{16}},
	}

	var pouches []domain.Pouch
	for _, e := range entries {
		for _, mg := range e.mgs {
			pouches = append(pouches, domain.Pouch{Brand: e.brand, NicotineMg: mg, IsDefault: true})
		}
	}
	return pouches
}
