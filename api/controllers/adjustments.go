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
	"github.com/barflowhq/barflow-backend/internal/adjustments"
	"github.com/barflowhq/barflow-backend/pkg/db/models"
	"github.com/barflowhq/barflow-backend/pkg/enums"
	pkgerrors "github.com/barflowhq/barflow-backend/pkg/errors"
	"github.com/barflowhq/barflow-backend/pkg/logger"
)

type adjustmentSubmitRequest struct {
	StoreID           uuid.UUID       `json:"store_id" validate:"required"`
	SkuID             uuid.UUID       `json:"sku_id" validate:"required"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Reason            string          `json:"reason" validate:"required"`
	Requester         string          `json:"requester" validate:"required"`
}

type adjustmentDecisionRequest struct {
	Approver string `json:"approver" validate:"required"`
	Remark   string `json:"remark"`
}

type adjustmentExecuteRequest struct {
	Executor string `json:"executor" validate:"required"`
}

type adjustmentView struct {
	ID                uuid.UUID              `json:"id"`
	StoreID           uuid.UUID              `json:"store_id"`
	SkuID             uuid.UUID              `json:"sku_id"`
	Status            enums.AdjustmentStatus `json:"status"`
	OriginalQuantity  decimal.Decimal        `json:"original_quantity"`
	RequestedQuantity decimal.Decimal        `json:"requested_quantity"`
	Reason            string                 `json:"reason"`
	Requester         string                 `json:"requester"`
	Approver          *string                `json:"approver,omitempty"`
	ApprovalRemark    *string                `json:"approval_remark,omitempty"`
	Executor          *string                `json:"executor,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	ExecutedAt        *time.Time             `json:"executed_at,omitempty"`
}

func toAdjustmentView(m *models.AdjustmentRequest) adjustmentView {
	return adjustmentView{
		ID:                m.ID,
		StoreID:           m.StoreID,
		SkuID:             m.SkuID,
		Status:            m.Status,
		OriginalQuantity:  m.OriginalQuantity,
		RequestedQuantity: m.RequestedQuantity,
		Reason:            m.Reason,
		Requester:         m.Requester,
		Approver:          m.Approver,
		ApprovalRemark:    m.ApprovalRemark,
		Executor:          m.Executor,
		CreatedAt:         m.CreatedAt,
		ExecutedAt:        m.ExecutedAt,
	}
}

// AdjustmentSubmit files a PENDING manual stock correction.
func AdjustmentSubmit(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustmentSubmitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Submit(r.Context(), adjustments.SubmitInput{
			StoreID:           req.StoreID,
			SkuID:             req.SkuID,
			RequestedQuantity: req.RequestedQuantity,
			Reason:            validators.SanitizeString(req.Reason, 500),
			Requester:         validators.SanitizeString(req.Requester, 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toAdjustmentView(adjustment))
	}
}

// AdjustmentApprove moves a PENDING adjustment to APPROVED.
func AdjustmentApprove(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAdjustmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustmentDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Approve(r.Context(), id, validators.SanitizeString(req.Approver, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAdjustmentView(adjustment))
	}
}

// AdjustmentReject terminally rejects a PENDING adjustment.
func AdjustmentReject(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAdjustmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustmentDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Reject(r.Context(), id, validators.SanitizeString(req.Approver, 120), validators.SanitizeString(req.Remark, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAdjustmentView(adjustment))
	}
}

// AdjustmentExecute applies an APPROVED adjustment to the ledger.
func AdjustmentExecute(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAdjustmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustmentExecuteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Execute(r.Context(), id, validators.SanitizeString(req.Executor, 120))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAdjustmentView(adjustment))
	}
}

// AdjustmentDetail returns one adjustment request.
func AdjustmentDetail(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseAdjustmentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAdjustmentView(adjustment))
	}
}

func parseAdjustmentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "adjustmentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid adjustment id")
	}
	return id, nil
}
