package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
)

func setupLedgerRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InventoryLedgerRow{}))
	return db
}

func TestRepositoryGetOrCreateIsLazy(t *testing.T) {
	t.Parallel()

	db := setupLedgerRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	skuID := uuid.New()

	_, err := repo.Find(ctx, storeID, skuID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	row, err := repo.GetOrCreate(ctx, storeID, skuID)
	require.NoError(t, err)
	assert.Equal(t, storeID, row.StoreID)
	assert.Equal(t, skuID, row.SkuID)
	assert.True(t, row.OnHand.IsZero())
	assert.True(t, row.Reserved.IsZero())

	again, err := repo.GetOrCreate(ctx, storeID, skuID)
	require.NoError(t, err)
	assert.Equal(t, row.StoreID, again.StoreID)
	assert.Equal(t, row.SkuID, again.SkuID)

	var count int64
	require.NoError(t, db.Model(&models.InventoryLedgerRow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRepositorySavePersistsQuantities(t *testing.T) {
	t.Parallel()

	db := setupLedgerRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row, err := repo.GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	row.OnHand = decimal.NewFromInt(120)
	row.Reserved = decimal.NewFromInt(30)
	row.SafetyStock = decimal.NewFromInt(25)
	require.NoError(t, repo.Save(ctx, row))

	loaded, err := repo.Find(ctx, row.StoreID, row.SkuID)
	require.NoError(t, err)
	assert.True(t, loaded.OnHand.Equal(decimal.NewFromInt(120)), "on_hand = %s", loaded.OnHand)
	assert.True(t, loaded.Reserved.Equal(decimal.NewFromInt(30)), "reserved = %s", loaded.Reserved)
	assert.True(t, loaded.Available().Equal(decimal.NewFromInt(90)), "available = %s", loaded.Available())
}

func TestRepositoryWithTxRebinds(t *testing.T) {
	t.Parallel()

	db := setupLedgerRepoDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	skuID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repo.WithTx(tx).GetOrCreate(ctx, storeID, skuID)
		return err
	})
	require.NoError(t, err)

	row, err := repo.Find(ctx, storeID, skuID)
	require.NoError(t, err)
	assert.Equal(t, skuID, row.SkuID)
}
