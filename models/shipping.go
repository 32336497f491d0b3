package models

import "github.com/shopspring/decimal"

// Parcel describes the box handed to the carrier.
type Parcel struct {
	Length       decimal.Decimal `json:"length"`
	Width        decimal.Decimal `json:"width"`
	Height       decimal.Decimal `json:"height"`
	DistanceUnit string          `json:"distance_unit"`
	Weight       decimal.Decimal `json:"weight"`
	MassUnit     string          `json:"mass_unit"`
}

// ShippingRate is a single carrier quote. Quotes live on the provider side
// and are never persisted.
type ShippingRate struct {
	RateID        string          `json:"rate_id"`
	Carrier       string          `json:"carrier"`
	Service       string          `json:"service"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	EstimatedDays int             `json:"estimated_days"`
	DurationTerms string          `json:"duration_terms,omitempty"`
}

// ShipmentQuote is what the provider returns for a rate request.
type ShipmentQuote struct {
	ShipmentID string         `json:"shipment_id"`
	Rates      []ShippingRate `json:"rates"`
}

// PurchasedLabel is the provider's answer to a successful label purchase.
type PurchasedLabel struct {
	TransactionID  string          `json:"transaction_id"`
	TrackingNumber string          `json:"tracking_number"`
	LabelURL       string          `json:"label_url"`
	Carrier        string          `json:"carrier"`
	Service        string          `json:"service"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// VoidStatus mirrors the provider's refund request states.
type VoidStatus string

const (
	VoidStatusQueued  VoidStatus = "QUEUED"
	VoidStatusPending VoidStatus = "PENDING"
	VoidStatusSuccess VoidStatus = "SUCCESS"
	VoidStatusError   VoidStatus = "ERROR"
)

// Accepted reports whether the provider took the void request. Postage may
// still not be refunded by the carrier.
func (s VoidStatus) Accepted() bool { return s != VoidStatusError }
