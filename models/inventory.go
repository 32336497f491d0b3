package models

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

type AdjustMode string

const (
	AdjustSet      AdjustMode = "set"
	AdjustAdd      AdjustMode = "add"
	AdjustSubtract AdjustMode = "subtract"
)

func (m AdjustMode) Valid() bool {
	return m == AdjustSet || m == AdjustAdd || m == AdjustSubtract
}

// MovementType maps an adjustment mode to the ledger entry type.
func (m AdjustMode) MovementType() MovementType {
	switch m {
	case AdjustAdd:
		return MovementIn
	case AdjustSubtract:
		return MovementOut
	default:
		return MovementAdjustment
	}
}

// StockMovement is an immutable ledger entry. Quantity is the signed delta.
type StockMovement struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	VariantID   *uuid.UUID   `gorm:"type:uuid;index" json:"variant_id,omitempty"`
	Type        MovementType `gorm:"type:varchar(16);not null" json:"type"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	StockBefore int          `gorm:"not null" json:"stock_before"`
	StockAfter  int          `gorm:"not null" json:"stock_after"`
	Reason      string       `gorm:"type:varchar(512)" json:"reason,omitempty"`
	CreatedBy   string       `gorm:"type:varchar(255)" json:"created_by,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertOutOfStock AlertType = "OUT_OF_STOCK"
	AlertOverstock  AlertType = "OVERSTOCK"
)

type InventoryAlert struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_alert_lookup" json:"product_id"`
	VariantID  *uuid.UUID `gorm:"type:uuid;index:idx_alert_lookup" json:"variant_id,omitempty"`
	Type       AlertType  `gorm:"type:varchar(16);not null;index:idx_alert_lookup" json:"type"`
	Threshold  int        `gorm:"not null" json:"threshold"`
	StockLevel int        `gorm:"not null" json:"stock_level"`
	IsResolved bool       `gorm:"not null;default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `gorm:"type:varchar(255)" json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Thresholds configures alert evaluation. Overstock of zero disables it.
type Thresholds struct {
	LowStock  int
	Overstock int
}

// StockChange is the outcome of one adjustment.
type StockChange struct {
	ProductID     uuid.UUID        `json:"product_id"`
	VariantID     *uuid.UUID       `json:"variant_id,omitempty"`
	PreviousStock int              `json:"previous_stock"`
	NewStock      int              `json:"new_stock"`
	Movement      StockMovement    `json:"movement"`
	Alerts        []InventoryAlert `json:"alerts"`
}
