package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barflowhq/barflow-backend/pkg/enums"
)

// AdjustmentRequest is a manual stock correction moving through the
// PENDING -> APPROVED -> COMPLETED (or PENDING -> REJECTED) workflow.
type AdjustmentRequest struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index"`
	SkuID             uuid.UUID              `gorm:"column:sku_id;type:uuid;not null;index"`
	Status            enums.AdjustmentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	OriginalQuantity  decimal.Decimal        `gorm:"column:original_quantity;type:decimal(18,4);not null"`
	RequestedQuantity decimal.Decimal        `gorm:"column:requested_quantity;type:decimal(18,4);not null"`
	Reason            string                 `gorm:"column:reason;not null"`
	Requester         string                 `gorm:"column:requester;not null"`
	Approver          *string                `gorm:"column:approver"`
	ApprovalRemark    *string                `gorm:"column:approval_remark"`
	Executor          *string                `gorm:"column:executor"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
	ExecutedAt        *time.Time             `gorm:"column:executed_at"`
}

// TableName overrides the GORM default pluralization.
func (AdjustmentRequest) TableName() string {
	return "adjustment_requests"
}
