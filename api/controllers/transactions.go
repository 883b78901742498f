package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barflowhq/barflow-backend/api/responses"
	"github.com/barflowhq/barflow-backend/api/validators"
	"github.com/barflowhq/barflow-backend/internal/transactions"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
	"github.com/barflowhq/barflow-backend/pkg/pagination"
)

// TransactionList returns a filtered, cursor-paginated page of the audit log.
func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := buildTransactionFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), transactions.ListParams{
			Filters: *filters,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func buildTransactionFilters(r *http.Request) (*transactions.ListFilters, error) {
	filters := &transactions.ListFilters{}

	if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id filter")
		}
		filters.ReferenceOrderID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("store_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store_id filter")
		}
		filters.StoreID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("sku_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sku_id filter")
		}
		filters.SkuID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		entryType := enums.TransactionType(raw)
		filters.Type = &entryType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from filter, expected RFC3339")
		}
		filters.DateFrom = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to filter, expected RFC3339")
		}
		filters.DateTo = &t
	}
	return filters, nil
}
