package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
)

const defaultShippoBaseURL = "https://api.goshippo.com"

// ShippoProvider implements ShippingProvider using the Shippo API.
type ShippoProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewShippoProvider creates a new ShippoProvider. An empty baseURL selects
// the public API.
func NewShippoProvider(apiKey, baseURL string) *ShippoProvider {
	if baseURL == "" {
		baseURL = defaultShippoBaseURL
	}
	return &ShippoProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ---- Shippo API request/response structs ----

type shippoAddress struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type shippoParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type shippoShipmentRequest struct {
	AddressFrom shippoAddress  `json:"address_from"`
	AddressTo   shippoAddress  `json:"address_to"`
	Parcels     []shippoParcel `json:"parcels"`
	Async       bool           `json:"async"`
}

type shippoMessage struct {
	Source string `json:"source"`
	Code   string `json:"code"`
	Text   string `json:"text"`
}

type shippoRate struct {
	ObjectID     string `json:"object_id"`
	Shipment     string `json:"shipment"`
	Provider     string `json:"provider"`
	ServiceLevel struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"servicelevel"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	EstimatedDays int    `json:"estimated_days"`
	DurationTerms string `json:"duration_terms"`
}

type shippoShipmentResponse struct {
	ObjectID string          `json:"object_id"`
	Status   string          `json:"status"`
	Rates    []shippoRate    `json:"rates"`
	Messages []shippoMessage `json:"messages"`
}

type shippoTransactionRequest struct {
	Rate          string `json:"rate"`
	Async         bool   `json:"async"`
	LabelFileType string `json:"label_file_type"`
	Metadata      string `json:"metadata,omitempty"`
}

type shippoTransactionResponse struct {
	ObjectID       string          `json:"object_id"`
	Status         string          `json:"status"`
	TrackingNumber string          `json:"tracking_number"`
	LabelURL       string          `json:"label_url"`
	Rate           string          `json:"rate"`
	Messages       []shippoMessage `json:"messages"`
}

type shippoRefundRequest struct {
	Transaction string `json:"transaction"`
	Async       bool   `json:"async"`
}

type shippoRefundResponse struct {
	ObjectID    string `json:"object_id"`
	Status      string `json:"status"`
	Transaction string `json:"transaction"`
}

// shippoAPIError is a non-2xx answer from Shippo. Body is kept verbatim.
type shippoAPIError struct {
	StatusCode int
	Body       string
}

func (e *shippoAPIError) Error() string {
	return fmt.Sprintf("shippo API error (status %d): %s", e.StatusCode, e.Body)
}

// ---- ShippingProvider implementation ----

// CreateShipment creates a Shippo shipment and returns its rates.
func (s *ShippoProvider) CreateShipment(ctx context.Context, from, to models.Address, parcel models.Parcel) (models.ShipmentQuote, error) {
	if s.apiKey == "" {
		return models.ShipmentQuote{}, fmt.Errorf("shippo: %w", ErrNotConfigured)
	}

	reqBody := shippoShipmentRequest{
		AddressFrom: toShippoAddress(from),
		AddressTo:   toShippoAddress(to),
		Parcels:     []shippoParcel{toShippoParcel(parcel)},
		Async:       false,
	}

	var resp shippoShipmentResponse
	if err := s.doRequest(ctx, http.MethodPost, "/shipments/", reqBody, nil, &resp); err != nil {
		return models.ShipmentQuote{}, fmt.Errorf("shippo CreateShipment: %w", err)
	}
	if len(resp.Rates) == 0 && len(resp.Messages) > 0 {
		return models.ShipmentQuote{}, fmt.Errorf("shippo CreateShipment: %s", joinMessages(resp.Messages))
	}

	rates := make([]models.ShippingRate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		rates = append(rates, toShippingRate(r))
	}

	return models.ShipmentQuote{ShipmentID: resp.ObjectID, Rates: rates}, nil
}

// PurchaseLabel verifies that the rate is still offered on the shipment and
// buys it.
func (s *ShippoProvider) PurchaseLabel(ctx context.Context, shipmentID, rateID, idempotencyKey string) (models.PurchasedLabel, error) {
	if s.apiKey == "" {
		return models.PurchasedLabel{}, fmt.Errorf("shippo: %w", ErrNotConfigured)
	}

	var shipment shippoShipmentResponse
	if err := s.doRequest(ctx, http.MethodGet, "/shipments/"+shipmentID, nil, nil, &shipment); err != nil {
		var apiErr *shippoAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return models.PurchasedLabel{}, fmt.Errorf("shipment %s: %w", shipmentID, ErrRatesExpired)
		}
		return models.PurchasedLabel{}, fmt.Errorf("shippo PurchaseLabel: %w", err)
	}

	var rate *shippoRate
	for i := range shipment.Rates {
		if shipment.Rates[i].ObjectID == rateID {
			rate = &shipment.Rates[i]
			break
		}
	}
	if rate == nil {
		return models.PurchasedLabel{}, fmt.Errorf("rate %s is not offered on shipment %s: %w", rateID, shipmentID, ErrRatesExpired)
	}

	txReq := shippoTransactionRequest{
		Rate:          rateID,
		Async:         false,
		LabelFileType: "PDF",
	}
	var headers map[string]string
	if idempotencyKey != "" {
		txReq.Metadata = "idempotency_key:" + idempotencyKey
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var resp shippoTransactionResponse
	if err := s.doRequest(ctx, http.MethodPost, "/transactions/", txReq, headers, &resp); err != nil {
		return models.PurchasedLabel{}, fmt.Errorf("shippo PurchaseLabel: %w", err)
	}

	if resp.Status != "SUCCESS" {
		msg := "label purchase failed"
		if len(resp.Messages) > 0 {
			msg = joinMessages(resp.Messages)
		}
		if strings.Contains(strings.ToLower(msg), "expired") {
			return models.PurchasedLabel{}, fmt.Errorf("shippo: %s: %w", msg, ErrRatesExpired)
		}
		return models.PurchasedLabel{}, fmt.Errorf("shippo PurchaseLabel: %s", msg)
	}

	r := toShippingRate(*rate)
	return models.PurchasedLabel{
		TransactionID:  resp.ObjectID,
		TrackingNumber: resp.TrackingNumber,
		LabelURL:       resp.LabelURL,
		Carrier:        r.Carrier,
		Service:        r.Service,
		Amount:         r.Amount,
		Currency:       r.Currency,
	}, nil
}

// VoidLabel asks Shippo to refund an unused label.
func (s *ShippoProvider) VoidLabel(ctx context.Context, transactionID string) (models.VoidStatus, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("shippo: %w", ErrNotConfigured)
	}

	var resp shippoRefundResponse
	req := shippoRefundRequest{Transaction: transactionID, Async: false}
	if err := s.doRequest(ctx, http.MethodPost, "/refunds/", req, nil, &resp); err != nil {
		return "", fmt.Errorf("shippo VoidLabel: %w", err)
	}
	return models.VoidStatus(strings.ToUpper(resp.Status)), nil
}

// ---- HTTP helper ----

func (s *ShippoProvider) doRequest(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "ShippoToken "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shippoAPIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBytes))}
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ---- Conversion helpers ----

func toShippoAddress(a models.Address) shippoAddress {
	return shippoAddress{
		Name:    a.Name,
		Company: a.Company,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.Country,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}

func toShippoParcel(p models.Parcel) shippoParcel {
	return shippoParcel{
		Length:       p.Length.String(),
		Width:        p.Width.String(),
		Height:       p.Height.String(),
		DistanceUnit: p.DistanceUnit,
		Weight:       p.Weight.String(),
		MassUnit:     p.MassUnit,
	}
}

func toShippingRate(r shippoRate) models.ShippingRate {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		amount = decimal.Zero
	}
	return models.ShippingRate{
		RateID:        r.ObjectID,
		Carrier:       r.Provider,
		Service:       r.ServiceLevel.Name,
		Amount:        amount,
		Currency:      r.Currency,
		EstimatedDays: r.EstimatedDays,
		DurationTerms: r.DurationTerms,
	}
}

func joinMessages(msgs []shippoMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "; ")
}
