package models_test

import (
	"testing"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/stretchr/testify/assert"
)

func TestInvoice_ApplyTotals(t *testing.T) {
	inv := &models.Invoice{
		TaxRate: d("0.0825"),
		Items: []models.InvoiceItem{
			{Description: "Design", Quantity: d("1"), UnitPrice: d("1200")},
			{Description: "Hosting", Quantity: d("3"), UnitPrice: d("19.99")},
		},
	}
	inv.ApplyTotals()

	assert.True(t, d("59.97").Equal(inv.Items[1].LineTotal))
	assert.True(t, d("1259.97").Equal(inv.Subtotal))
	assert.True(t, d("103.95").Equal(inv.TaxAmount))
	assert.True(t, inv.Total.Equal(inv.Subtotal.Add(inv.TaxAmount)))
}

func TestInvoiceStatus_NeverRegresses(t *testing.T) {
	assert.True(t, models.InvoiceStatusDraft.CanTransitionTo(models.InvoiceStatusSent))
	assert.True(t, models.InvoiceStatusSent.CanTransitionTo(models.InvoiceStatusPaid))
	assert.True(t, models.InvoiceStatusOverdue.CanTransitionTo(models.InvoiceStatusCancelled))
	assert.False(t, models.InvoiceStatusViewed.CanTransitionTo(models.InvoiceStatusSent))

	for _, s := range []models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusCancelled} {
		assert.False(t, models.InvoiceStatusPaid.CanTransitionTo(s))
	}
	assert.False(t, models.InvoiceStatusCancelled.CanTransitionTo(models.InvoiceStatusPaid))
}

func TestOptionKey_Canonical(t *testing.T) {
	key := models.OptionKey(map[string]interface{}{"Size": "M", "Color": "Red"})
	assert.Equal(t, "Color=Red/Size=M", key)
}
