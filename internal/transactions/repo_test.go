package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:transactions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.TransactionLogEntry{}); err != nil {
		t.Fatalf("migrate transaction log: %v", err)
	}
	return db
}

func seedEntry(t *testing.T, db *gorm.DB, entryType enums.TransactionType, orderID *uuid.UUID, createdAt time.Time) models.TransactionLogEntry {
	t.Helper()
	entry := models.TransactionLogEntry{
		ID:               uuid.New(),
		Type:             entryType,
		StoreID:          uuid.New(),
		SkuID:            uuid.New(),
		QuantityDelta:    decimal.NewFromInt(5),
		BalanceBefore:    decimal.Zero,
		BalanceAfter:     decimal.NewFromInt(5),
		ReferenceOrderID: orderID,
		CreatedAt:        createdAt,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return entry
}

func TestRepositoryAppendAndListByOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	orderID := uuid.New()

	entries := []models.TransactionLogEntry{
		{
			ID:               uuid.New(),
			Type:             enums.TransactionTypeReserve,
			StoreID:          uuid.New(),
			SkuID:            uuid.New(),
			QuantityDelta:    decimal.NewFromInt(45),
			BalanceBefore:    decimal.Zero,
			BalanceAfter:     decimal.NewFromInt(45),
			ReferenceOrderID: &orderID,
		},
	}
	if err := repo.Append(ctx, entries); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, nil); err != nil {
		t.Fatalf("append empty: %v", err)
	}

	rows, err := repo.List(ctx, listQuery{referenceOrderID: &orderID, limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(rows))
	}
	if rows[0].Type != enums.TransactionTypeReserve {
		t.Fatalf("unexpected type %s", rows[0].Type)
	}
	if !rows[0].QuantityDelta.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("unexpected delta %s", rows[0].QuantityDelta)
	}
}

func TestRepositoryListFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	orderID := uuid.New()
	seedEntry(t, db, enums.TransactionTypeReserve, &orderID, base)
	seedEntry(t, db, enums.TransactionTypeBomDeduction, &orderID, base.Add(time.Hour))
	seedEntry(t, db, enums.TransactionTypeManualAdjustment, nil, base.Add(48*time.Hour))

	reserveType := enums.TransactionTypeReserve
	rows, err := repo.List(ctx, listQuery{entryType: &reserveType, limit: 10})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != enums.TransactionTypeReserve {
		t.Fatalf("type filter returned %d rows", len(rows))
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(2 * time.Hour)
	rows, err = repo.List(ctx, listQuery{dateFrom: &from, dateTo: &to, limit: 10})
	if err != nil {
		t.Fatalf("list by range: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != enums.TransactionTypeBomDeduction {
		t.Fatalf("date filter returned %d rows", len(rows))
	}

	rows, err = repo.List(ctx, listQuery{referenceOrderID: &orderID, limit: 10})
	if err != nil {
		t.Fatalf("list by order: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("order filter returned %d rows", len(rows))
	}
}
