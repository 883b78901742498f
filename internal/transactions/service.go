package transactions

import (
	"context"
	"fmt"

	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	pkgpagination "github.com/barflowhq/barflow-backend/pkg/pagination"
)

// Service exposes the read side of the transaction log. Writes happen through
// the Repository inside the engine services' transactions.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
}

// NewService wires a transaction log service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Filters.Type != nil && !params.Filters.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type filter")
	}
	if params.Filters.DateFrom != nil && params.Filters.DateTo != nil && params.Filters.DateTo.Before(*params.Filters.DateFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		referenceOrderID: params.Filters.ReferenceOrderID,
		entryType:        params.Filters.Type,
		storeID:          params.Filters.StoreID,
		skuID:            params.Filters.SkuID,
		dateFrom:         params.Filters.DateFrom,
		dateTo:           params.Filters.DateTo,
		limit:            pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		// the cursor must point at the last row handed out, not the overflow
		// row, or the strict comparison skips the boundary entry
		last := rows[limit-1]
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}
