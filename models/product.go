package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProductType string

const (
	ProductTypePhysical ProductType = "PHYSICAL"
	ProductTypeDigital  ProductType = "DIGITAL"
)

type Product struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string           `gorm:"type:varchar(255);not null" json:"name"`
	SKU       string           `gorm:"type:varchar(64);uniqueIndex" json:"sku"`
	Type      ProductType      `gorm:"type:varchar(16);not null;default:'PHYSICAL'" json:"type"`
	Price     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock     int              `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	WeightLb  decimal.Decimal  `gorm:"type:numeric(8,2);not null;default:0" json:"weight_lb"`
	Active    bool             `gorm:"not null;default:true" json:"active"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	Version   int              `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductVariant is an independent stock/price unit keyed by its option
// combination.
type ProductVariant struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_variant_option_key" json:"product_id"`
	OptionKey string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_variant_option_key" json:"option_key"`
	Options   datatypes.JSONMap `gorm:"type:jsonb" json:"options"`
	SKU       string            `gorm:"type:varchar(64)" json:"sku,omitempty"`
	Price     decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock     int               `gorm:"not null;default:0;check:variant_stock_nonneg,stock >= 0" json:"stock"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// OptionKey renders options in a canonical "Color=Red/Size=M" form.
func OptionKey(options map[string]interface{}) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, options[k]))
	}
	return strings.Join(parts, "/")
}

// ProductLink pairs a physical product with its digital twin. One row per
// pair; the unique columns keep a product in at most one link.
type ProductLink struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PhysicalProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"physical_product_id"`
	DigitalProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"digital_product_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Other returns the id on the opposite side of the link from id.
func (l ProductLink) Other(id uuid.UUID) uuid.UUID {
	if l.PhysicalProductID == id {
		return l.DigitalProductID
	}
	return l.PhysicalProductID
}
