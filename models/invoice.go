package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusViewed    InvoiceStatus = "VIEWED"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

var invoiceRank = map[InvoiceStatus]int{
	InvoiceStatusDraft:   0,
	InvoiceStatusSent:    1,
	InvoiceStatusViewed:  2,
	InvoiceStatusOverdue: 3,
	InvoiceStatusPaid:    4,
}

func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceRank[s]
	return ok || s == InvoiceStatusCancelled
}

// Final reports whether no further status change is possible.
func (s InvoiceStatus) Final() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanTransitionTo enforces forward-only movement. CANCELLED is reachable
// from any non-final state.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == next {
		return true
	}
	if s.Final() {
		return false
	}
	if next == InvoiceStatusCancelled {
		return true
	}
	from, ok1 := invoiceRank[s]
	to, ok2 := invoiceRank[next]
	return ok1 && ok2 && to > from
}

// Invoice belongs to an inquiry or to an order, never both.
type Invoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber   string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice_number"`
	InquiryID       *uuid.UUID      `gorm:"type:uuid;index" json:"inquiry_id,omitempty"`
	OrderID         *uuid.UUID      `gorm:"type:uuid;index" json:"order_id,omitempty"`
	CustomerName    string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail   string          `gorm:"type:varchar(255);not null" json:"customer_email"`
	Items           []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxRate         decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status          InvoiceStatus   `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"status"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	ViewedAt        *time.Time      `json:"viewed_at,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	PaymentURL      *string         `gorm:"type:varchar(1024)" json:"payment_url,omitempty"`
	StripeSessionID *string         `gorm:"type:varchar(255);index" json:"stripe_session_id,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Version         int             `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	Description string          `gorm:"type:varchar(512);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// ApplyTotals recomputes line totals, subtotal, tax and total from the items
// and the tax rate.
func (inv *Invoice) ApplyTotals() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Position = i
		inv.Items[i].LineTotal = inv.Items[i].Quantity.Mul(inv.Items[i].UnitPrice).Round(2)
		subtotal = subtotal.Add(inv.Items[i].LineTotal)
	}
	inv.Subtotal = subtotal.Round(2)
	inv.TaxAmount = inv.Subtotal.Mul(inv.TaxRate).Round(2)
	inv.Total = inv.Subtotal.Add(inv.TaxAmount)
}
