package services

import (
	"bytes"
	"html/template"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
)

var emailTemplates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
}).Parse(`
{{define "quote"}}<p>Hi {{.Name}},</p>
<p>{{.Message}}</p>
<p><strong>Quote: {{money .Amount}}</strong>{{if .Monthly}} plus {{money .Monthly}}/month{{end}}</p>
<p>Reference: {{.Number}}</p>
<p>47 Industries</p>{{end}}

{{define "reply"}}<p>Hi {{.Name}},</p>
<p>{{.Message}}</p>
<p>Reference: {{.Number}}</p>
<p>47 Industries</p>{{end}}

{{define "invoice"}}<p>Hi {{.Invoice.CustomerName}},</p>
<p>Invoice {{.Invoice.InvoiceNumber}} is ready.</p>
<table>{{range .Invoice.Items}}
<tr><td>{{.Description}}</td><td>{{.Quantity}} x {{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>{{end}}
</table>
<p>Subtotal: {{money .Invoice.Subtotal}}<br>Tax: {{money .Invoice.TaxAmount}}<br><strong>Total: {{money .Invoice.Total}}</strong></p>
{{if .Invoice.DueDate}}<p>Due {{.Invoice.DueDate.Format "January 2, 2006"}}</p>{{end}}
{{if .Invoice.PaymentURL}}<p><a href="{{.Invoice.PaymentURL}}">Pay online</a></p>{{end}}
<p>47 Industries</p>{{end}}
`))

type inquiryEmail struct {
	Name    string
	Number  string
	Message string
	Amount  decimal.Decimal
	Monthly *decimal.Decimal
}

func renderEmail(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderInvoiceEmail(inv *models.Invoice) (string, error) {
	return renderEmail("invoice", struct{ Invoice *models.Invoice }{inv})
}
