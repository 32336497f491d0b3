package models

import "time"

// Event types published on the domain event bus.
const (
	EventOrderRefunded     = "order.refunded"
	EventOrderStatus       = "order.status_changed"
	EventLabelPurchased    = "label.purchased"
	EventLabelVoided       = "label.voided"
	EventQuoteSent         = "inquiry.quote_sent"
	EventInvoiceSent       = "invoice.sent"
	EventInvoicePaid       = "invoice.paid"
	EventInventoryAlert    = "inventory.alert"
	EventInventoryAdjusted = "inventory.adjusted"
)

type OrderRefundedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Amount      string    `json:"amount"`
	Reason      string    `json:"reason"`
	RefundID    string    `json:"refund_id"`
	Full        bool      `json:"full"`
	Timestamp   time.Time `json:"timestamp"`
}

type OrderStatusEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Timestamp     time.Time `json:"timestamp"`
}

type LabelEvent struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	LabelID        string    `json:"label_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	LabelURL       string    `json:"label_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type QuoteSentEvent struct {
	EventType     string    `json:"event_type"`
	InquiryID     string    `json:"inquiry_id"`
	InquiryNumber string    `json:"inquiry_number"`
	Amount        string    `json:"amount"`
	Monthly       string    `json:"monthly,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type InvoiceEvent struct {
	EventType     string    `json:"event_type"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	Timestamp     time.Time `json:"timestamp"`
}

type InventoryAlertEvent struct {
	EventType  string    `json:"event_type"`
	AlertID    string    `json:"alert_id"`
	ProductID  string    `json:"product_id"`
	VariantID  string    `json:"variant_id,omitempty"`
	AlertType  string    `json:"alert_type"`
	StockLevel int       `json:"stock_level"`
	Threshold  int       `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
}
