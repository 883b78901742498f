package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/api/responses"
	"github.com/barflowhq/barflow-backend/api/validators"
	"github.com/barflowhq/barflow-backend/internal/ledger"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
)

// LedgerRow returns the current ledger state for one (store, SKU) pair. The
// read is lock-free and may trail an in-flight reservation.
func LedgerRow(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, skuID, err := parseLedgerKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), storeID, skuID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type receiveStockRequest struct {
	StoreID  uuid.UUID       `json:"store_id" validate:"required"`
	SkuID    uuid.UUID       `json:"sku_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceiveStock books an inbound delivery into on-hand stock.
func ReceiveStock(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req receiveStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ReceiveStock(r.Context(), ledger.ReceiveStockInput{
			StoreID:  req.StoreID,
			SkuID:    req.SkuID,
			Quantity: req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type safetyStockRequest struct {
	SafetyStock decimal.Decimal `json:"safety_stock"`
}

// SetSafetyStock updates the low-water threshold for one ledger row.
func SetSafetyStock(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, skuID, err := parseLedgerKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req safetyStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SetSafetyStock(r.Context(), storeID, skuID, req.SafetyStock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseLedgerKey(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	rawStore := strings.TrimSpace(chi.URLParam(r, "storeId"))
	rawSku := strings.TrimSpace(chi.URLParam(r, "skuId"))
	if rawStore == "" || rawSku == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and sku id are required")
	}
	storeID, err := uuid.Parse(rawStore)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}
	skuID, err := uuid.Parse(rawSku)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sku id")
	}
	return storeID, skuID, nil
}
