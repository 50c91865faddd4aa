package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/domain"
)

type memoryLogStore struct {
	mockLogStore
	entries map[int64]*domain.Log
	nextID  int64
}

func newMemoryLogStore() *memoryLogStore {
	return &memoryLogStore{entries: make(map[int64]*domain.Log)}
}

func (s *memoryLogStore) FindByID(_ context.Context, id int64) (*domain.Log, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *memoryLogStore) Create(_ context.Context, entry domain.Log) (*domain.Log, error) {
	s.nextID++
	entry.ID = s.nextID
	s.entries[entry.ID] = &entry
	copied := entry
	return &copied, nil
}

func (s *memoryLogStore) Delete(_ context.Context, id int64) error {
	delete(s.entries, id)
	return nil
}

type mockPouchStore struct {
	pouches map[int64]*domain.Pouch
}

func (s *mockPouchStore) FindByID(_ context.Context, id int64) (*domain.Pouch, error) {
	p, ok := s.pouches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *mockPouchStore) ListForUser(context.Context, int64) ([]domain.Pouch, error) { return nil, nil }
func (s *mockPouchStore) Create(_ context.Context, p domain.Pouch) (*domain.Pouch, error) {
	return &p, nil
}
func (s *mockPouchStore) SeedDefaults(context.Context, []domain.Pouch) (int, error) { return 0, nil }

func ptr[T any](v T) *T { return &v }

func TestLogbookCreate(t *testing.T) {
	ctx := context.Background()

	pouches := &mockPouchStore{pouches: map[int64]*domain.Pouch{
		1: {ID: 1, Brand: "ZYN", NicotineMg: 6, IsDefault: true},
		2: {ID: 2, Brand: "Private", NicotineMg: 9, CreatedBy: ptr(int64(99))},
	}}

	t.Run("CatalogPouchEntry", func(t *testing.T) {
		svc := NewLogbookService(newMemoryLogStore(), pouches, nil)

		entry, err := svc.Create(ctx, 1, LogInput{
			LogDate:  "2026-03-02",
			LogTime:  "14:30",
			PouchID:  ptr(int64(1)),
			Quantity: 2,
		})
		require.NoError(t, err)
		require.Equal(t, int64(1), *entry.PouchID)
		require.True(t, entry.LogTime.Valid)
	})

	t.Run("CustomBrandEntry", func(t *testing.T) {
		svc := NewLogbookService(newMemoryLogStore(), pouches, nil)

		entry, err := svc.Create(ctx, 1, LogInput{
			LogDate:          "2026-03-02",
			CustomBrand:      "Corner Shop",
			CustomNicotineMg: ptr(11.0),
			Quantity:         1,
		})
		require.NoError(t, err)
		require.Nil(t, entry.PouchID)
		require.Equal(t, "Corner Shop", *entry.CustomBrand)
	})

	t.Run("RejectsEntryWithNeitherSource", func(t *testing.T) {
		svc := NewLogbookService(newMemoryLogStore(), pouches, nil)

		_, err := svc.Create(ctx, 1, LogInput{LogDate: "2026-03-02", Quantity: 1})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("RejectsAnotherUsersCustomPouch", func(t *testing.T) {
		svc := NewLogbookService(newMemoryLogStore(), pouches, nil)

		_, err := svc.Create(ctx, 1, LogInput{
			LogDate:  "2026-03-02",
			PouchID:  ptr(int64(2)),
			Quantity: 1,
		})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("RejectsBadDate", func(t *testing.T) {
		svc := NewLogbookService(newMemoryLogStore(), pouches, nil)

		_, err := svc.Create(ctx, 1, LogInput{LogDate: "03/02/2026", PouchID: ptr(int64(1)), Quantity: 1})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogbookOwnership(t *testing.T) {
	ctx := context.Background()
	store := newMemoryLogStore()
	store.entries[7] = &domain.Log{ID: 7, UserID: 2, LogDate: time.Now(), Quantity: 1}

	svc := NewLogbookService(store, &mockPouchStore{pouches: map[int64]*domain.Pouch{}}, nil)

	t.Run("DeleteByNonOwnerIsForbidden", func(t *testing.T) {
		err := svc.Delete(ctx, 1, 7)
		require.ErrorIs(t, err, domain.ErrForbidden)
		require.Contains(t, store.entries, int64(7))
	})

	t.Run("OwnerCanDelete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, 2, 7))
		require.NotContains(t, store.entries, int64(7))
	})
}
