package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	pkgpagination "github.com/barflowhq/barflow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTransactionsRepo struct {
	rows    []models.TransactionLogEntry
	lastOpt listQuery
	err     error
}

func (s *stubTransactionsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubTransactionsRepo) Append(ctx context.Context, entries []models.TransactionLogEntry) error {
	s.rows = append(s.rows, entries...)
	return s.err
}

func (s *stubTransactionsRepo) List(ctx context.Context, opts listQuery) ([]models.TransactionLogEntry, error) {
	s.lastOpt = opts
	if s.err != nil {
		return nil, s.err
	}
	if opts.limit < len(s.rows) {
		return s.rows[:opts.limit], nil
	}
	return s.rows, nil
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected constructor error")
	}
}

func TestListRejectsInvalidTypeFilter(t *testing.T) {
	svc, err := NewService(&stubTransactionsRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	bogus := enums.TransactionType("NOT_A_TYPE")
	_, err = svc.List(context.Background(), ListParams{Filters: ListFilters{Type: &bogus}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRejectsInvertedDateRange(t *testing.T) {
	svc, err := NewService(&stubTransactionsRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	from := time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err = svc.List(context.Background(), ListParams{Filters: ListFilters{DateFrom: &from, DateTo: &to}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListCursorPointsAtLastReturnedRow(t *testing.T) {
	now := time.Now().UTC()
	repo := &stubTransactionsRepo{}
	for i := 0; i < 3; i++ {
		repo.rows = append(repo.rows, models.TransactionLogEntry{
			ID:        uuid.New(),
			Type:      enums.TransactionTypeReserve,
			StoreID:   uuid.New(),
			SkuID:     uuid.New(),
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{Params: pkgpagination.Params{Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected a next cursor")
	}

	cursor, err := pkgpagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID != repo.rows[1].ID {
		t.Fatalf("cursor should point at the last returned row")
	}
	if repo.lastOpt.limit != 3 {
		t.Fatalf("expected buffered limit 3, got %d", repo.lastOpt.limit)
	}
}

func TestListPagesWithoutSkippingBoundaryRows(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	seeded := make(map[uuid.UUID]bool, 5)
	for i := 0; i < 5; i++ {
		entry := seedEntry(t, db, enums.TransactionTypeReserve, nil, base.Add(time.Duration(i)*time.Minute))
		seeded[entry.ID] = false
	}

	cursor := ""
	pages := 0
	for {
		result, err := svc.List(ctx, ListParams{Params: pkgpagination.Params{Limit: 2, Cursor: cursor}})
		if err != nil {
			t.Fatalf("list page %d: %v", pages, err)
		}
		for _, item := range result.Items {
			seen, ok := seeded[item.ID]
			if !ok {
				t.Fatalf("unexpected entry %s", item.ID)
			}
			if seen {
				t.Fatalf("entry %s returned twice", item.ID)
			}
			seeded[item.ID] = true
		}
		pages++
		if result.Cursor == "" {
			break
		}
		cursor = result.Cursor
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
	}

	for id, seen := range seeded {
		if !seen {
			t.Fatalf("entry %s never returned, page boundary skipped it", id)
		}
	}
}
