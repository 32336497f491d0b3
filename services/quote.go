package services

import (
	"fmt"
	"strings"

	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
)

// Base prices per service category. AI_AUTOMATION is billed monthly.
var serviceBasePrices = map[string]decimal.Decimal{
	"WEBSITE":        decimal.NewFromInt(2500),
	"WEB_APP":        decimal.NewFromInt(8000),
	"IOS_APP":        decimal.NewFromInt(8000),
	"ANDROID_APP":    decimal.NewFromInt(7500),
	"CROSS_PLATFORM": decimal.NewFromInt(12000),
	"AI_AUTOMATION":  decimal.NewFromInt(799),
}

var monthlyServices = map[string]bool{"AI_AUTOMATION": true}

var (
	perFeaturePrice = decimal.NewFromInt(500)
	designPrice     = decimal.NewFromInt(2000)

	pageBrackets = map[string]decimal.Decimal{
		"20-50": decimal.NewFromInt(2000),
		"50+":   decimal.NewFromInt(5000),
	}
	screenBrackets = map[string]decimal.Decimal{
		"25-50": decimal.NewFromInt(3000),
		"50+":   decimal.NewFromInt(6000),
	}
)

// SuggestQuote prices a project request from its structured details. It is
// advisory and deterministic: equal input always gives the same number.
func SuggestQuote(details *models.ProjectDetails) models.QuoteSuggestion {
	out := models.QuoteSuggestion{Amount: decimal.Zero, Breakdown: []models.QuoteLineDetail{}}
	if details == nil {
		return out
	}

	add := func(label string, amount decimal.Decimal) {
		out.Amount = out.Amount.Add(amount)
		out.Breakdown = append(out.Breakdown, models.QuoteLineDetail{Label: label, Amount: amount})
	}

	seen := make(map[string]bool, len(details.Services))
	monthly := decimal.Zero
	for _, raw := range details.Services {
		svc := strings.ToUpper(strings.TrimSpace(raw))
		price, ok := serviceBasePrices[svc]
		if !ok || seen[svc] {
			continue
		}
		seen[svc] = true
		if monthlyServices[svc] {
			monthly = monthly.Add(price)
			add(svc+" (monthly)", price)
			continue
		}
		add(svc, price)
	}

	if n := len(details.Features); n > 0 {
		add(fmt.Sprintf("%d features", n), perFeaturePrice.Mul(decimal.NewFromInt(int64(n))))
	}
	if price, ok := pageBrackets[bracket(details.Pages, "pages")]; ok {
		add("pages "+details.Pages, price)
	}
	if price, ok := screenBrackets[bracket(details.Screens, "screens")]; ok {
		add("screens "+details.Screens, price)
	}
	if details.HasDesign != nil && !bool(*details.HasDesign) {
		add("design assistance", designPrice)
	}

	if monthly.IsPositive() {
		out.Monthly = &monthly
	}
	return out
}

// bracket normalizes "50+ pages" and "50+" to "50+".
func bracket(v, unit string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimSpace(strings.TrimSuffix(v, unit))
	return strings.ReplaceAll(v, " ", "")
}
