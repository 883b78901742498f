package fulfillment

import (
	"context"
	"io"
	"testing"

	"github.com/barflowhq/barflow-backend/internal/ledger"
	"github.com/barflowhq/barflow-backend/internal/recipes"
	"github.com/barflowhq/barflow-backend/internal/reservations"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type engine struct {
	db           *gorm.DB
	svc          Service
	reservations reservations.Service
	ledger       ledger.Service
	recipes      recipes.Service
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.InventoryLedgerRow{},
		&models.RecipeVersion{},
		&models.RecipeComponent{},
		&models.BomSnapshot{},
		&models.BomSnapshotLine{},
		&models.Reservation{},
		&models.ReservationComponent{},
		&models.TransactionLogEntry{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "fulfillment-test", Output: io.Discard})
	runner := gormRunner{db: db}
	txnsRepo := transactions.NewRepository(db)
	reservationsRepo := reservations.NewRepository(db)
	snapshotsRepo := snapshots.NewRepository(db)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db), txnsRepo, runner, ledger.NewLockManager(), nil, logg)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	recipesSvc, err := recipes.NewService(recipes.NewRepository(db))
	if err != nil {
		t.Fatalf("recipes service: %v", err)
	}
	reservationsSvc, err := reservations.NewService(reservationsRepo, recipesSvc, snapshotsRepo, txnsRepo, ledgerSvc, runner, nil)
	if err != nil {
		t.Fatalf("reservations service: %v", err)
	}
	svc, err := NewService(reservationsRepo, snapshotsRepo, txnsRepo, ledgerSvc, runner, nil)
	if err != nil {
		t.Fatalf("fulfillment service: %v", err)
	}

	return &engine{db: db, svc: svc, reservations: reservationsSvc, ledger: ledgerSvc, recipes: recipesSvc}
}

func (e *engine) seedStock(t *testing.T, storeID, skuID uuid.UUID, onHand int64) {
	t.Helper()
	_, err := e.ledger.ApplyDelta(context.Background(), nil, ledger.DeltaInput{
		StoreID:     storeID,
		SkuID:       skuID,
		OnHandDelta: decimal.NewFromInt(onHand),
		Operation:   "seed",
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (e *engine) publishRecipe(t *testing.T, productID uuid.UUID, components map[uuid.UUID]int64) {
	t.Helper()
	inputs := make([]recipes.ComponentInput, 0, len(components))
	for skuID, perUnit := range components {
		inputs = append(inputs, recipes.ComponentInput{
			ComponentSkuID:  skuID,
			QuantityPerUnit: decimal.NewFromInt(perUnit),
			Unit:            enums.UnitMilliliter,
		})
	}
	if _, err := e.recipes.Publish(context.Background(), recipes.PublishInput{ProductID: productID, Components: inputs}); err != nil {
		t.Fatalf("publish recipe: %v", err)
	}
}

func (e *engine) reserve(t *testing.T, orderID, storeID, productID uuid.UUID, quantity int64) {
	t.Helper()
	_, err := e.reservations.Reserve(context.Background(), reservations.ReserveInput{
		OrderID: orderID,
		StoreID: storeID,
		Items:   []reservations.LineItem{{SkuID: productID, Quantity: decimal.NewFromInt(quantity)}},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
}

func (e *engine) ledgerRow(t *testing.T, storeID, skuID uuid.UUID) *ledger.RowView {
	t.Helper()
	view, err := e.ledger.Get(context.Background(), storeID, skuID)
	if err != nil {
		t.Fatalf("get ledger row: %v", err)
	}
	return view
}

func TestFulfillConservesQuantities(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderID := uuid.New()

	e.seedStock(t, storeID, whiskey, 1000)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderID, storeID, cocktail, 1)

	result, err := e.svc.Fulfill(ctx, orderID, storeID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if result.Status != enums.ReservationStatusCompleted || result.Replayed {
		t.Fatalf("unexpected result %+v", result)
	}

	row := e.ledgerRow(t, storeID, whiskey)
	if !row.OnHand.Equal(decimal.NewFromInt(955)) {
		t.Fatalf("expected on-hand 955, got %s", row.OnHand)
	}
	if !row.Reserved.IsZero() {
		t.Fatalf("fulfillment must release the reserved amount, got %s", row.Reserved)
	}

	var entries []models.TransactionLogEntry
	if err := e.db.Where("reference_order_id = ? AND type = ?", orderID, enums.TransactionTypeBomDeduction).Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one BOM_DEDUCTION entry, got %d", len(entries))
	}
	if !entries[0].QuantityDelta.Equal(decimal.NewFromInt(-45)) {
		t.Fatalf("unexpected delta %s", entries[0].QuantityDelta)
	}
	if !entries[0].BalanceBefore.Equal(decimal.NewFromInt(1000)) || !entries[0].BalanceAfter.Equal(decimal.NewFromInt(955)) {
		t.Fatalf("unexpected balances %s -> %s", entries[0].BalanceBefore, entries[0].BalanceAfter)
	}
}

func TestFulfillIsIdempotentOnCompleted(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderID := uuid.New()

	e.seedStock(t, storeID, whiskey, 100)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderID, storeID, cocktail, 1)

	if _, err := e.svc.Fulfill(ctx, orderID, storeID); err != nil {
		t.Fatalf("first fulfill: %v", err)
	}
	second, err := e.svc.Fulfill(ctx, orderID, storeID)
	if err != nil {
		t.Fatalf("second fulfill: %v", err)
	}
	if !second.Replayed {
		t.Fatal("second fulfill must replay")
	}

	row := e.ledgerRow(t, storeID, whiskey)
	if !row.OnHand.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("replay must not deduct twice, on-hand %s", row.OnHand)
	}
}

func TestFulfillAfterCancelFailsWithInvalidState(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderID := uuid.New()

	e.seedStock(t, storeID, whiskey, 100)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderID, storeID, cocktail, 1)

	if _, err := e.svc.Cancel(ctx, orderID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := e.svc.Fulfill(ctx, orderID, storeID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	row := e.ledgerRow(t, storeID, whiskey)
	if !row.OnHand.Equal(decimal.NewFromInt(100)) || !row.Reserved.IsZero() {
		t.Fatalf("cancelled order must not touch stock: %+v", row)
	}
}

func TestCancelReleasesAndRepeatsAsNoop(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderID := uuid.New()

	e.seedStock(t, storeID, whiskey, 100)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderID, storeID, cocktail, 1)

	first, err := e.svc.Cancel(ctx, orderID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if first.Status != enums.ReservationStatusCancelled || first.Replayed {
		t.Fatalf("unexpected result %+v", first)
	}

	row := e.ledgerRow(t, storeID, whiskey)
	if !row.Reserved.IsZero() || !row.OnHand.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cancel must only release reserved: %+v", row)
	}

	var releases int64
	e.db.Model(&models.TransactionLogEntry{}).
		Where("reference_order_id = ? AND type = ?", orderID, enums.TransactionTypeReservationRelease).
		Count(&releases)
	if releases != 1 {
		t.Fatalf("expected one release entry, got %d", releases)
	}

	second, err := e.svc.Cancel(ctx, orderID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if !second.Replayed {
		t.Fatal("second cancel must be a no-op")
	}

	e.db.Model(&models.TransactionLogEntry{}).
		Where("reference_order_id = ? AND type = ?", orderID, enums.TransactionTypeReservationRelease).
		Count(&releases)
	if releases != 1 {
		t.Fatalf("repeated cancel must not double-release, got %d entries", releases)
	}
}

func TestFulfillUsesSnapshotNotCurrentRecipe(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeID := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderID := uuid.New()

	e.seedStock(t, storeID, whiskey, 1000)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderID, storeID, cocktail, 1)

	// a recipe edit after the order is placed must not change the deduction
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 60})

	if _, err := e.svc.Fulfill(ctx, orderID, storeID); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	row := e.ledgerRow(t, storeID, whiskey)
	if !row.OnHand.Equal(decimal.NewFromInt(955)) {
		t.Fatalf("deduction must use the frozen 45ml, got on-hand %s", row.OnHand)
	}
}

func TestFulfillUnknownOrderFailsWithNotFound(t *testing.T) {
	t.Parallel()

	e := newEngine(t)

	_, err := e.svc.Fulfill(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFulfillRejectsMismatchedStore(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	ctx := context.Background()
	storeA := uuid.New()
	storeB := uuid.New()
	whiskey := uuid.New()
	cocktail := uuid.New()
	orderA := uuid.New()
	orderB := uuid.New()

	e.seedStock(t, storeA, whiskey, 1000)
	e.seedStock(t, storeB, whiskey, 1000)
	e.publishRecipe(t, cocktail, map[uuid.UUID]int64{whiskey: 45})
	e.reserve(t, orderA, storeA, cocktail, 1)
	e.reserve(t, orderB, storeB, cocktail, 1)

	_, err := e.svc.Fulfill(ctx, orderA, storeB)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for wrong store, got %v", err)
	}

	rowA := e.ledgerRow(t, storeA, whiskey)
	if !rowA.OnHand.Equal(decimal.NewFromInt(1000)) || !rowA.Reserved.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("order A's store must be untouched: %+v", rowA)
	}
	rowB := e.ledgerRow(t, storeB, whiskey)
	if !rowB.OnHand.Equal(decimal.NewFromInt(1000)) || !rowB.Reserved.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("order B's store must be untouched: %+v", rowB)
	}

	if _, err := e.svc.Fulfill(ctx, orderA, storeA); err != nil {
		t.Fatalf("fulfill with the right store: %v", err)
	}
}
