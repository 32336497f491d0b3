package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ---- order repository ----

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	updates   int
	updateErr error
}

func newMemOrderRepo(orders ...*models.Order) *memOrderRepo {
	r := &memOrderRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, o := range orders {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		if o.Version == 0 {
			o.Version = 1
		}
		r.orders[o.ID] = cloneOrder(o)
	}
	return r
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	c.Labels = append([]models.ShippingLabel(nil), o.Labels...)
	return &c
}

func (r *memOrderRepo) stored(id uuid.UUID) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[id])
}

// editElsewhere simulates another admin saving the order.
func (r *memOrderRepo) editElsewhere(id uuid.UUID, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.orders[id]
	cur.AdminNotes = strings.TrimSpace(cur.AdminNotes + "\n" + note)
	cur.Version++
}

func (r *memOrderRepo) List(_ context.Context, _ models.OrderFilter, _, _ int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		out = append(out, *cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) FindByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.StripePaymentID != nil && *o.StripePaymentID == paymentID {
			return cloneOrder(o), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOrderRepo) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = uuid.New()
	o.Version = 1
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cur, ok := r.orders[o.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != o.Version {
		return repository.ErrVersionConflict
	}
	o.Version++
	r.orders[o.ID] = cloneOrder(o)
	r.updates++
	return nil
}

func (r *memOrderRepo) AttachLabel(_ context.Context, o *models.Order, label *models.ShippingLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.orders[o.ID]
	if cur.ActiveLabel() != nil {
		return repository.ErrActiveLabelExists
	}
	if cur.Version != o.Version {
		return repository.ErrVersionConflict
	}
	label.ID = uuid.New()
	label.OrderID = o.ID
	cur.Labels = append(cur.Labels, *label)
	tracking, carrier := label.TrackingNumber, label.Carrier
	cur.TrackingNumber, cur.Carrier = &tracking, &carrier
	cur.Version++
	*o = *cloneOrder(cur)
	return nil
}

func (r *memOrderRepo) VoidLabel(_ context.Context, o *models.Order, label *models.ShippingLabel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.orders[o.ID]
	if cur.Version != o.Version {
		return repository.ErrVersionConflict
	}
	now := time.Now()
	for i := range cur.Labels {
		if cur.Labels[i].ID == label.ID {
			cur.Labels[i].Status = models.LabelStatusVoided
			cur.Labels[i].VoidedAt = &now
		}
	}
	label.Status = models.LabelStatusVoided
	label.VoidedAt = &now
	cur.TrackingNumber, cur.Carrier = nil, nil
	cur.Version++
	*o = *cloneOrder(cur)
	return nil
}

// ---- payment gateway ----

type refundCall struct {
	paymentRef string
	amount     decimal.Decimal
	reason     models.RefundReason
	key        string
}

type fakeGateway struct {
	refunds   []refundCall
	refundErr error
	links     int
	linkErr   error
	// whileRefunding runs before the refund is returned.
	whileRefunding func()
}

func (g *fakeGateway) Refund(_ context.Context, paymentRef string, amount decimal.Decimal, reason models.RefundReason, key string) (providers.RefundReceipt, error) {
	if g.refundErr != nil {
		return providers.RefundReceipt{}, g.refundErr
	}
	g.refunds = append(g.refunds, refundCall{paymentRef, amount, reason, key})
	if g.whileRefunding != nil {
		g.whileRefunding()
	}
	return providers.RefundReceipt{ID: "re_test_1", Amount: amount, Status: "succeeded"}, nil
}

func (g *fakeGateway) CreatePaymentLink(_ context.Context, inv *models.Invoice) (providers.PaymentLink, error) {
	if g.linkErr != nil {
		return providers.PaymentLink{}, g.linkErr
	}
	g.links++
	return providers.PaymentLink{SessionID: "cs_test_1", URL: "https://checkout.stripe.test/" + inv.ID.String()}, nil
}

// ---- shipping provider ----

type fakeShipping struct {
	quote       models.ShipmentQuote
	quoteErr    error
	lastParcel  models.Parcel
	purchases   int
	purchaseErr error
	voids       int
	voidStatus  models.VoidStatus
	voidErr     error
	// whileCalling runs inside PurchaseLabel and VoidLabel.
	whileCalling func()
}

func (s *fakeShipping) CreateShipment(_ context.Context, _, _ models.Address, parcel models.Parcel) (models.ShipmentQuote, error) {
	s.lastParcel = parcel
	return s.quote, s.quoteErr
}

func (s *fakeShipping) PurchaseLabel(_ context.Context, _, rateID, _ string) (models.PurchasedLabel, error) {
	if s.purchaseErr != nil {
		return models.PurchasedLabel{}, s.purchaseErr
	}
	s.purchases++
	if s.whileCalling != nil {
		s.whileCalling()
	}
	return models.PurchasedLabel{
		TransactionID:  "tx_" + rateID,
		TrackingNumber: "9400" + strings.Repeat("1", s.purchases),
		LabelURL:       "https://labels.test/" + rateID + ".pdf",
		Carrier:        "USPS",
		Service:        "Ground Advantage",
		Amount:         decimal.RequireFromString("7.45"),
		Currency:       "USD",
	}, nil
}

func (s *fakeShipping) VoidLabel(_ context.Context, _ string) (models.VoidStatus, error) {
	if s.voidErr != nil {
		return "", s.voidErr
	}
	s.voids++
	if s.whileCalling != nil {
		s.whileCalling()
	}
	if s.voidStatus == "" {
		return models.VoidStatusQueued, nil
	}
	return s.voidStatus, nil
}

// ---- email ----

type sentEmail struct{ to, subject, body string }

type fakeMailer struct {
	sent         []sentEmail
	err          error
	whileSending func()
}

func (m *fakeMailer) SendEmail(_ context.Context, to, subject, body string) (providers.SendResult, error) {
	if m.err != nil {
		return providers.SendResult{}, m.err
	}
	m.sent = append(m.sent, sentEmail{to, subject, body})
	if m.whileSending != nil {
		m.whileSending()
	}
	return providers.SendResult{MessageID: "<test@47industries>", SentAt: time.Now()}, nil
}

// ---- event publisher ----

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.types {
		if t == eventType {
			n++
		}
	}
	return n
}

// ---- inquiry repository ----

type memInquiryRepo struct {
	inquiries map[uuid.UUID]*models.ServiceInquiry
	messages  map[uuid.UUID][]models.InquiryMessage
}

func newMemInquiryRepo(inquiries ...*models.ServiceInquiry) *memInquiryRepo {
	r := &memInquiryRepo{
		inquiries: map[uuid.UUID]*models.ServiceInquiry{},
		messages:  map[uuid.UUID][]models.InquiryMessage{},
	}
	for _, q := range inquiries {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.Version == 0 {
			q.Version = 1
		}
		c := *q
		r.inquiries[q.ID] = &c
	}
	return r
}

func (r *memInquiryRepo) editElsewhere(id uuid.UUID, note string) {
	cur := r.inquiries[id]
	cur.AdminNotes = strings.TrimSpace(cur.AdminNotes + "\n" + note)
	cur.Version++
}

func (r *memInquiryRepo) List(_ context.Context, _ models.InquiryFilter, _, _ int) ([]models.ServiceInquiry, int64, error) {
	var out []models.ServiceInquiry
	for _, q := range r.inquiries {
		out = append(out, *q)
	}
	return out, int64(len(out)), nil
}

func (r *memInquiryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ServiceInquiry, error) {
	q, ok := r.inquiries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *q
	return &c, nil
}

func (r *memInquiryRepo) Create(_ context.Context, q *models.ServiceInquiry) error {
	q.ID = uuid.New()
	q.Version = 1
	q.CreatedAt = time.Now()
	c := *q
	r.inquiries[q.ID] = &c
	return nil
}

func (r *memInquiryRepo) Update(_ context.Context, q *models.ServiceInquiry) error {
	cur, ok := r.inquiries[q.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != q.Version {
		return repository.ErrVersionConflict
	}
	q.Version++
	c := *q
	r.inquiries[q.ID] = &c
	return nil
}

func (r *memInquiryRepo) AppendMessage(ctx context.Context, q *models.ServiceInquiry, msg *models.InquiryMessage) error {
	if err := r.Update(ctx, q); err != nil {
		return err
	}
	msg.ID = uuid.New()
	msg.InquiryID = q.ID
	msg.CreatedAt = time.Now()
	r.messages[q.ID] = append(r.messages[q.ID], *msg)
	return nil
}

func (r *memInquiryRepo) ListMessages(_ context.Context, id uuid.UUID) ([]models.InquiryMessage, error) {
	return r.messages[id], nil
}

func (r *memInquiryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.inquiries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.inquiries, id)
	return nil
}

// ---- invoice repository ----

type memInvoiceRepo struct {
	invoices map[uuid.UUID]*models.Invoice
	taken    map[string]bool
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: map[uuid.UUID]*models.Invoice{}, taken: map[string]bool{}}
}

func (r *memInvoiceRepo) put(inv *models.Invoice) *models.Invoice {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	c := *inv
	r.invoices[inv.ID] = &c
	r.taken[inv.InvoiceNumber] = true
	return inv
}

func (r *memInvoiceRepo) editElsewhere(id uuid.UUID, notes string) {
	cur := r.invoices[id]
	cur.Notes = notes
	cur.Version++
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *models.Invoice) error {
	if r.taken[inv.InvoiceNumber] {
		return repository.ErrDuplicateNumber
	}
	inv.Version = 1
	r.put(inv)
	return nil
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *inv
	return &c, nil
}

func (r *memInvoiceRepo) FindByStripeSession(_ context.Context, sessionID string) (*models.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.StripeSessionID != nil && *inv.StripeSessionID == sessionID {
			c := *inv
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memInvoiceRepo) ListByInquiry(_ context.Context, inquiryID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range r.invoices {
		if inv.InquiryID != nil && *inv.InquiryID == inquiryID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) Update(_ context.Context, inv *models.Invoice) error {
	cur, ok := r.invoices[inv.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != inv.Version {
		return repository.ErrVersionConflict
	}
	inv.Version++
	c := *inv
	r.invoices[inv.ID] = &c
	return nil
}

func (r *memInvoiceRepo) CountWithPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, inv := range r.invoices {
		if strings.HasPrefix(inv.InvoiceNumber, prefix) {
			n++
		}
	}
	return n, nil
}

// ---- inventory repository ----

type memInventoryRepo struct {
	stock     map[uuid.UUID]int
	movements []models.StockMovement
	alerts    []models.InventoryAlert
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{stock: map[uuid.UUID]int{}}
}

func (r *memInventoryRepo) Adjust(_ context.Context, productID uuid.UUID, variantID *uuid.UUID, fn repository.AdjustFunc) (*models.StockChange, error) {
	current, ok := r.stock[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	open := map[models.AlertType]bool{}
	for _, a := range r.alerts {
		if a.ProductID == productID && !a.IsResolved {
			open[a.Type] = true
		}
	}
	next, movement, alerts, err := fn(current, open)
	if err != nil {
		return nil, err
	}
	r.stock[productID] = next
	movement.ID = uuid.New()
	movement.ProductID = productID
	movement.VariantID = variantID
	r.movements = append(r.movements, movement)
	for i := range alerts {
		alerts[i].ID = uuid.New()
		alerts[i].ProductID = productID
		alerts[i].VariantID = variantID
		r.alerts = append(r.alerts, alerts[i])
	}
	return &models.StockChange{
		ProductID:     productID,
		VariantID:     variantID,
		PreviousStock: current,
		NewStock:      next,
		Movement:      movement,
		Alerts:        alerts,
	}, nil
}

func (r *memInventoryRepo) ListMovements(_ context.Context, productID uuid.UUID, _ int) ([]models.StockMovement, error) {
	var out []models.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memInventoryRepo) ListAlerts(_ context.Context, unresolvedOnly bool) ([]models.InventoryAlert, error) {
	var out []models.InventoryAlert
	for _, a := range r.alerts {
		if unresolvedOnly && a.IsResolved {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memInventoryRepo) ResolveAlert(_ context.Context, id uuid.UUID, actor string) (*models.InventoryAlert, error) {
	for i := range r.alerts {
		if r.alerts[i].ID == id {
			now := time.Now()
			r.alerts[i].IsResolved = true
			r.alerts[i].ResolvedAt = &now
			r.alerts[i].ResolvedBy = &actor
			a := r.alerts[i]
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ---- product repository ----

type memProductRepo struct {
	products map[uuid.UUID]*models.Product
	links    []models.ProductLink
}

func newMemProductRepo(products ...*models.Product) *memProductRepo {
	r := &memProductRepo{products: map[uuid.UUID]*models.Product{}}
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.products[p.ID] = p
	}
	return r
}

func (r *memProductRepo) List(_ context.Context, productType models.ProductType, _ string, _, _ int) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range r.products {
		if productType == "" || p.Type == productType {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r *memProductRepo) FindLink(_ context.Context, id uuid.UUID) (*models.ProductLink, error) {
	for _, l := range r.links {
		if l.PhysicalProductID == id || l.DigitalProductID == id {
			c := l
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductRepo) CreateLink(ctx context.Context, link *models.ProductLink) error {
	if _, err := r.FindLink(ctx, link.PhysicalProductID); err == nil {
		return repository.ErrAlreadyLinked
	}
	if _, err := r.FindLink(ctx, link.DigitalProductID); err == nil {
		return repository.ErrAlreadyLinked
	}
	link.ID = uuid.New()
	r.links = append(r.links, *link)
	return nil
}

func (r *memProductRepo) DeleteLink(_ context.Context, id uuid.UUID) (*models.ProductLink, error) {
	for i, l := range r.links {
		if l.PhysicalProductID == id || l.DigitalProductID == id {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
