package recipes

import (
	"context"
	"testing"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:recipes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.RecipeVersion{}, &models.RecipeComponent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestPublishAssignsSequentialVersions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := uuid.New()
	whiskey := uuid.New()

	first, err := svc.Publish(ctx, PublishInput{
		ProductID: productID,
		Components: []ComponentInput{
			{ComponentSkuID: whiskey, QuantityPerUnit: decimal.NewFromInt(45), Unit: enums.UnitMilliliter},
		},
	})
	if err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}

	second, err := svc.Publish(ctx, PublishInput{
		ProductID: productID,
		Components: []ComponentInput{
			{ComponentSkuID: whiskey, QuantityPerUnit: decimal.NewFromInt(60), Unit: enums.UnitMilliliter},
		},
	})
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	sku := uuid.New()

	tests := []struct {
		name  string
		input PublishInput
	}{
		{name: "missing product", input: PublishInput{Components: []ComponentInput{{ComponentSkuID: sku, QuantityPerUnit: decimal.NewFromInt(1), Unit: enums.UnitMilliliter}}}},
		{name: "no components", input: PublishInput{ProductID: uuid.New()}},
		{name: "zero quantity", input: PublishInput{ProductID: uuid.New(), Components: []ComponentInput{{ComponentSkuID: sku, Unit: enums.UnitMilliliter}}}},
		{name: "bad unit", input: PublishInput{ProductID: uuid.New(), Components: []ComponentInput{{ComponentSkuID: sku, QuantityPerUnit: decimal.NewFromInt(1), Unit: "barrels"}}}},
		{name: "duplicate component", input: PublishInput{ProductID: uuid.New(), Components: []ComponentInput{
			{ComponentSkuID: sku, QuantityPerUnit: decimal.NewFromInt(1), Unit: enums.UnitMilliliter},
			{ComponentSkuID: sku, QuantityPerUnit: decimal.NewFromInt(2), Unit: enums.UnitMilliliter},
		}}},
	}

	for _, tt := range tests {
		_, err := svc.Publish(ctx, tt.input)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestResolveUsesLatestVersionAndMultiplies(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := uuid.New()
	whiskey := uuid.New()
	bitters := uuid.New()

	if _, err := svc.Publish(ctx, PublishInput{
		ProductID: productID,
		Components: []ComponentInput{
			{ComponentSkuID: whiskey, QuantityPerUnit: decimal.NewFromInt(45), Unit: enums.UnitMilliliter},
		},
	}); err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	latest, err := svc.Publish(ctx, PublishInput{
		ProductID: productID,
		Components: []ComponentInput{
			{ComponentSkuID: whiskey, QuantityPerUnit: decimal.NewFromInt(60), Unit: enums.UnitMilliliter},
			{ComponentSkuID: bitters, QuantityPerUnit: decimal.NewFromInt(5), Unit: enums.UnitMilliliter},
		},
	})
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}

	resolved, err := svc.Resolve(ctx, productID, decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 components, got %d", len(resolved))
	}
	byID := make(map[uuid.UUID]ResolvedComponent, len(resolved))
	for _, component := range resolved {
		byID[component.ComponentSkuID] = component
		if component.RecipeVersionID != latest.ID || component.Version != 2 {
			t.Fatalf("resolve must use latest version, got %+v", component)
		}
	}
	if !byID[whiskey].Quantity.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected 180ml whiskey, got %s", byID[whiskey].Quantity)
	}
	if !byID[bitters].Quantity.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15ml bitters, got %s", byID[bitters].Quantity)
	}
}

func TestResolveUnknownProductFailsWithRecipeNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Resolve(context.Background(), uuid.New(), decimal.NewFromInt(1))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRecipeNotFound {
		t.Fatalf("expected recipe not found, got %v", err)
	}
}

func TestResolveEmptyRecipeFailsWithEmptyRecipe(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	productID := uuid.New()

	// a version with zero components can only exist from legacy data; seed directly
	version := &models.RecipeVersion{ID: uuid.New(), ProductID: productID, Version: 1}
	if err := db.Create(version).Error; err != nil {
		t.Fatalf("seed empty version: %v", err)
	}

	_, err := svc.Resolve(ctx, productID, decimal.NewFromInt(1))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeEmptyRecipe {
		t.Fatalf("expected empty recipe error, got %v", err)
	}
}
