package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPaid:       {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether next follows s in the order lifecycle.
// Only consulted when strict transitions are switched on.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusProcessing, PaymentStatusSucceeded},
	PaymentStatusSucceeded:  {PaymentStatusRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CustomerSnapshot is the buyer's contact info as it was at checkout. It is
// copied onto the order and never joined back to a customer record.
type CustomerSnapshot struct {
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Email string `gorm:"type:varchar(255);index" json:"email"`
	Phone string `gorm:"type:varchar(64)" json:"phone,omitempty"`
}

// Address represents a physical mailing address used for shipping.
type Address struct {
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Company    string `gorm:"type:varchar(255)" json:"company,omitempty"`
	Street1    string `gorm:"type:varchar(255)" json:"street1"`
	Street2    string `gorm:"type:varchar(255)" json:"street2,omitempty"`
	City       string `gorm:"type:varchar(128)" json:"city"`
	State      string `gorm:"type:varchar(64)" json:"state"`
	PostalCode string `gorm:"type:varchar(32)" json:"postal_code"`
	Country    string `gorm:"type:varchar(2)" json:"country"` // ISO 3166-1 alpha-2
	Phone      string `gorm:"type:varchar(64)" json:"phone,omitempty"`
	Email      string `gorm:"type:varchar(255)" json:"email,omitempty"`
}

func (a Address) IsZero() bool { return a.Street1 == "" }

type Order struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string           `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	Customer        CustomerSnapshot `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Subtotal        decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Tax             decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Shipping        decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Discount        decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total           decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Status          OrderStatus      `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentStatus   PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	StripePaymentID *string          `gorm:"type:varchar(255);index" json:"stripe_payment_id,omitempty"`
	TrackingNumber  *string          `gorm:"type:varchar(255)" json:"tracking_number,omitempty"`
	Carrier         *string          `gorm:"type:varchar(64)" json:"carrier,omitempty"`
	AdminNotes      string           `gorm:"type:text" json:"admin_notes"`
	RefundedAmount  decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"refunded_amount"`
	RefundedAt      *time.Time       `json:"refunded_at,omitempty"`
	StripeRefundID  *string          `gorm:"type:varchar(255)" json:"stripe_refund_id,omitempty"`
	ShippingAddress Address          `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Labels          []ShippingLabel  `gorm:"foreignKey:OrderID" json:"labels,omitempty"`
	Version         int              `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	VariantID *uuid.UUID      `gorm:"type:uuid" json:"variant_id,omitempty"`
	Name      string          `gorm:"type:varchar(255)" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
	// WeightLb is the per-unit weight captured at checkout; zero means unknown.
	WeightLb decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"weight_lb"`
}

// ComputeTotal applies total = subtotal - discount + shipping + tax.
func ComputeTotal(subtotal, discount, shipping, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(shipping).Add(tax).Round(2)
}

// Validate checks the monetary invariants of the order to the cent.
func (o *Order) Validate() error {
	for i, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
		want := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		if !item.LineTotal.Round(2).Equal(want) {
			return fmt.Errorf("item %d: line total %s does not equal %d x %s", i, item.LineTotal.StringFixed(2), item.Quantity, item.UnitPrice.StringFixed(2))
		}
	}
	want := ComputeTotal(o.Subtotal, o.Discount, o.Shipping, o.Tax)
	if !o.Total.Round(2).Equal(want) {
		return fmt.Errorf("total %s does not equal subtotal - discount + shipping + tax (%s)", o.Total.StringFixed(2), want.StringFixed(2))
	}
	return nil
}

// ActiveLabel returns the order's PURCHASED label, if any.
func (o *Order) ActiveLabel() *ShippingLabel {
	for i := range o.Labels {
		if o.Labels[i].Status == LabelStatusPurchased {
			return &o.Labels[i]
		}
	}
	return nil
}

type LabelStatus string

const (
	LabelStatusPurchased LabelStatus = "PURCHASED"
	LabelStatusVoided    LabelStatus = "VOIDED"
)

// ShippingLabel is kept after voiding for audit. The partial unique index
// allows at most one PURCHASED label per order.
type ShippingLabel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID               uuid.UUID       `gorm:"type:uuid;not null;index:idx_labels_one_active,unique,where:status = 'PURCHASED'" json:"order_id"`
	Carrier               string          `gorm:"type:varchar(64)" json:"carrier"`
	Service               string          `gorm:"type:varchar(128)" json:"service"`
	TrackingNumber        string          `gorm:"type:varchar(255);index" json:"tracking_number"`
	LabelCost             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"label_cost"`
	TotalCost             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_cost"`
	LabelURL              string          `gorm:"type:varchar(1024)" json:"label_url"`
	Status                LabelStatus     `gorm:"type:varchar(16);not null" json:"status"`
	ProviderShipmentID    string          `gorm:"type:varchar(255)" json:"provider_shipment_id"`
	ProviderRateID        string          `gorm:"type:varchar(255)" json:"provider_rate_id"`
	ProviderTransactionID string          `gorm:"type:varchar(255)" json:"provider_transaction_id"`
	IdempotencyKey        string          `gorm:"type:varchar(255)" json:"-"`
	VoidedAt              *time.Time      `json:"voided_at,omitempty"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type RefundReason string

const (
	RefundReasonRequestedByCustomer RefundReason = "requested_by_customer"
	RefundReasonDuplicate           RefundReason = "duplicate"
	RefundReasonFraudulent          RefundReason = "fraudulent"
)

func (r RefundReason) Valid() bool {
	switch r {
	case RefundReasonRequestedByCustomer, RefundReasonDuplicate, RefundReasonFraudulent:
		return true
	}
	return false
}
