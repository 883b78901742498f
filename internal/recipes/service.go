package recipes

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service resolves finished-product SKUs into raw-material component
// requirements and publishes new recipe versions.
type Service interface {
	Publish(ctx context.Context, input PublishInput) (*models.RecipeVersion, error)
	Resolve(ctx context.Context, productID uuid.UUID, quantity decimal.Decimal) ([]ResolvedComponent, error)
}

// PublishInput describes a new recipe revision for one finished product.
type PublishInput struct {
	ProductID  uuid.UUID
	Components []ComponentInput
}

// ComponentInput is one raw material line of a recipe being published.
type ComponentInput struct {
	ComponentSkuID  uuid.UUID
	QuantityPerUnit decimal.Decimal
	Unit            enums.Unit
}

// ResolvedComponent is one raw-material requirement, already multiplied by the
// requested finished-product quantity.
type ResolvedComponent struct {
	ComponentSkuID  uuid.UUID
	Quantity        decimal.Decimal
	Unit            enums.Unit
	RecipeVersionID uuid.UUID
	Version         int
}

type service struct {
	repo Repository
}

// NewService wires a recipes service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recipes repository required")
	}
	return &service{repo: repo}, nil
}

// Publish stores the components as the next immutable version for the
// product. Existing versions are never modified; orders that froze an earlier
// version keep consuming it through their snapshots.
func (s *service) Publish(ctx context.Context, input PublishInput) (*models.RecipeVersion, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if len(input.Components) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe requires at least one component")
	}

	components := make([]models.RecipeComponent, 0, len(input.Components))
	seen := make(map[uuid.UUID]struct{}, len(input.Components))
	for _, component := range input.Components {
		if component.ComponentSkuID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "component sku id required")
		}
		if component.QuantityPerUnit.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "component quantity must be positive")
		}
		if !component.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", component.Unit))
		}
		if _, ok := seen[component.ComponentSkuID]; ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate component sku")
		}
		seen[component.ComponentSkuID] = struct{}{}
		components = append(components, models.RecipeComponent{
			ComponentSkuID:  component.ComponentSkuID,
			QuantityPerUnit: component.QuantityPerUnit,
			Unit:            component.Unit,
		})
	}

	current, err := s.repo.MaxVersion(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read recipe versions")
	}

	version := &models.RecipeVersion{
		ProductID:  input.ProductID,
		Version:    current + 1,
		Components: components,
	}
	if err := s.repo.CreateVersion(ctx, version); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish recipe version")
	}
	return version, nil
}

// Resolve expands a finished-product quantity into component requirements
// using the currently published version. Freezing that result for an order is
// the reservation engine's job, not the resolver's.
func (s *service) Resolve(ctx context.Context, productID uuid.UUID, quantity decimal.Decimal) ([]ResolvedComponent, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	version, err := s.repo.FindLatestVersion(ctx, productID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeRecipeNotFound, fmt.Sprintf("no published recipe for product %s", productID)).
				WithDetails(map[string]any{"product_id": productID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
	}
	if len(version.Components) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyRecipe, fmt.Sprintf("recipe for product %s has no components", productID)).
			WithDetails(map[string]any{"product_id": productID.String()})
	}

	resolved := make([]ResolvedComponent, 0, len(version.Components))
	for _, component := range version.Components {
		resolved = append(resolved, ResolvedComponent{
			ComponentSkuID:  component.ComponentSkuID,
			Quantity:        component.QuantityPerUnit.Mul(quantity),
			Unit:            component.Unit,
			RecipeVersionID: version.ID,
			Version:         version.Version,
		})
	}
	return resolved, nil
}
