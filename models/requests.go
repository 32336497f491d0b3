package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---- orders ----

type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Search        string
}

type CreateOrderItem struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	VariantID *uuid.UUID      `json:"variant_id"`
	Name      string          `json:"name" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	WeightLb  decimal.Decimal `json:"weight_lb"`
}

type CreateOrderRequest struct {
	Customer        CustomerSnapshot  `json:"customer" binding:"required"`
	Items           []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
	Tax             decimal.Decimal   `json:"tax"`
	Shipping        decimal.Decimal   `json:"shipping"`
	Discount        decimal.Decimal   `json:"discount"`
	ShippingAddress *Address          `json:"shipping_address"`
	StripePaymentID *string           `json:"stripe_payment_id"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
}

// UpdateOrderRequest is a partial update; nil fields are left unchanged.
type UpdateOrderRequest struct {
	Status         *OrderStatus   `json:"status"`
	PaymentStatus  *PaymentStatus `json:"payment_status"`
	TrackingNumber *string        `json:"tracking_number"`
	Carrier        *string        `json:"carrier"`
	AdminNotes     *string        `json:"admin_notes"`
	Version        *int           `json:"version"`
	// Force skips the transition table when strict transitions are enabled.
	Force bool `json:"force"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason RefundReason     `json:"reason"`
}

type RefundResult struct {
	Order          *Order          `json:"order"`
	AmountRefunded decimal.Decimal `json:"amount_refunded"`
	RefundID       string          `json:"refund_id"`
}

type ShippingRatesResult struct {
	Rates       []ShippingRate `json:"rates"`
	ShipmentID  string         `json:"shipment_id"`
	Parcel      Parcel         `json:"parcel"`
	FromAddress Address        `json:"from_address"`
	ToAddress   Address        `json:"to_address"`
}

type PurchaseLabelRequest struct {
	ShipmentID  string   `json:"shipment_id" binding:"required"`
	RateID      string   `json:"rate_id" binding:"required"`
	FromAddress *Address `json:"from_address"`
	ToAddress   *Address `json:"to_address"`
	Parcel      *Parcel  `json:"parcel"`
}

type PurchaseLabelResult struct {
	Label          *ShippingLabel `json:"label"`
	TrackingNumber string         `json:"tracking_number"`
	LabelURL       string         `json:"label_url"`
}

type VoidLabelResult struct {
	Label      *ShippingLabel `json:"label"`
	VoidStatus VoidStatus     `json:"void_status"`
}

// PaymentEvent arrives from the Stripe webhook or the payment events queue.
type PaymentEvent struct {
	Type            string          `json:"type"`
	OrderID         string          `json:"order_id,omitempty"`
	StripePaymentID string          `json:"stripe_payment_id,omitempty"`
	Amount          decimal.Decimal `json:"amount,omitempty"`
	Timestamp       time.Time       `json:"timestamp,omitempty"`
}

const (
	PaymentEventProcessing = "payment_processing"
	PaymentEventSucceeded  = "payment_succeeded"
	PaymentEventFailed     = "payment_failed"
)

// ---- inquiries ----

type InquiryFilter struct {
	Status InquiryStatus
	Search string
}

type CreateInquiryRequest struct {
	Name        string              `json:"name" binding:"required"`
	Email       string              `json:"email" binding:"required,email"`
	Phone       string              `json:"phone"`
	Company     string              `json:"company"`
	Description string              `json:"description" binding:"required"`
	Attachments *InquiryAttachments `json:"attachments"`
	// ContactForm marks a plain contact-form submission.
	ContactForm bool `json:"contact_form"`
}

type UpdateInquiryRequest struct {
	Status        *InquiryStatus   `json:"status"`
	AssignedTo    *string          `json:"assigned_to"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`
	ProposalURL   *string          `json:"proposal_url"`
	AdminNotes    *string          `json:"admin_notes"`
	Version       *int             `json:"version"`
	Force         bool             `json:"force"`
}

type DeclineRequest struct {
	Reason string `json:"reason"`
}

type SendQuoteRequest struct {
	Amount  decimal.Decimal  `json:"amount"`
	Monthly *decimal.Decimal `json:"monthly"`
	Message string           `json:"message"`
}

type ReplyRequest struct {
	Content       string `json:"content" binding:"required"`
	FromRequester bool   `json:"from_requester"`
}

type QuoteSuggestion struct {
	Amount    decimal.Decimal   `json:"amount"`
	Monthly   *decimal.Decimal  `json:"monthly,omitempty"`
	Breakdown []QuoteLineDetail `json:"breakdown"`
}

type QuoteLineDetail struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// ---- invoices ----

type InvoiceItemInput struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type GenerateInvoiceRequest struct {
	InquiryID         *uuid.UUID         `json:"inquiry_id"`
	OrderID           *uuid.UUID         `json:"order_id"`
	Items             []InvoiceItemInput `json:"items" binding:"required,min=1,dive"`
	TaxRate           *decimal.Decimal   `json:"tax_rate"`
	DueDate           *time.Time         `json:"due_date"`
	Notes             string             `json:"notes"`
	CreatePaymentLink bool               `json:"create_payment_link"`
}

type UpdateInvoiceStatusRequest struct {
	Status InvoiceStatus `json:"status" binding:"required"`
}

// ---- inventory & products ----

type AdjustStockRequest struct {
	Type      AdjustMode `json:"type" binding:"required"`
	Quantity  *int       `json:"quantity" binding:"required"`
	Reason    string     `json:"reason"`
	VariantID *uuid.UUID `json:"variant_id"`
}

type LinkProductRequest struct {
	LinkedProductID uuid.UUID `json:"linked_product_id" binding:"required"`
}
