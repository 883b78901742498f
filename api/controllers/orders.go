package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/api/responses"
	"github.com/barflowhq/barflow-backend/api/validators"
	"github.com/barflowhq/barflow-backend/internal/fulfillment"
	"github.com/barflowhq/barflow-backend/internal/reservations"
	"github.com/barflowhq/barflow-backend/internal/snapshots"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
)

type reserveLineItem struct {
	SkuID    uuid.UUID       `json:"sku_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Unit     string          `json:"unit"`
}

type reserveRequest struct {
	StoreID uuid.UUID         `json:"store_id" validate:"required"`
	Items   []reserveLineItem `json:"items" validate:"required,min=1,dive"`
}

// Reserve commits raw-material stock against the order's line items.
func Reserve(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]reservations.LineItem, len(req.Items))
		for i, item := range req.Items {
			items[i] = reservations.LineItem{
				SkuID:    item.SkuID,
				Quantity: item.Quantity,
				Unit:     enums.Unit(item.Unit),
			}
		}

		result, err := svc.Reserve(r.Context(), reservations.ReserveInput{
			OrderID: orderID,
			StoreID: req.StoreID,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

type fulfillRequest struct {
	StoreID uuid.UUID `json:"store_id" validate:"required"`
}

// Fulfill deducts the order's frozen snapshot quantities and completes the reservation.
func Fulfill(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req fulfillRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Fulfill(r.Context(), orderID, req.StoreID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CancelOrder releases the order's reserved quantities.
func CancelOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReservationDetail returns the reservation recorded for the order.
func ReservationDetail(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type snapshotLineView struct {
	LineNumber     int             `json:"line_number"`
	ProductID      uuid.UUID       `json:"product_id"`
	RecipeVersion  uuid.UUID       `json:"recipe_version_id"`
	ComponentSkuID uuid.UUID       `json:"component_sku_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           enums.Unit      `json:"unit"`
}

type snapshotView struct {
	OrderID   uuid.UUID          `json:"order_id"`
	StoreID   uuid.UUID          `json:"store_id"`
	Lines     []snapshotLineView `json:"lines"`
	CreatedAt time.Time          `json:"created_at"`
}

// SnapshotDetail returns the frozen component quantities for the order.
func SnapshotDetail(svc snapshots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.GetByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := snapshotView{
			OrderID:   snapshot.OrderID,
			StoreID:   snapshot.StoreID,
			Lines:     make([]snapshotLineView, len(snapshot.Lines)),
			CreatedAt: snapshot.CreatedAt,
		}
		for i, line := range snapshot.Lines {
			view.Lines[i] = snapshotLineView{
				LineNumber:     line.LineNumber,
				ProductID:      line.ProductID,
				RecipeVersion:  line.RecipeVersionID,
				ComponentSkuID: line.ComponentSkuID,
				Quantity:       line.Quantity,
				Unit:           line.Unit,
			}
		}
		responses.WriteSuccess(w, view)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
