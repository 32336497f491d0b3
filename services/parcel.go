package services

import (
	"github.com/kylerivers/47-industries-admin/models"
	"github.com/shopspring/decimal"
)

var (
	parcelLength  = decimal.NewFromInt(12)
	parcelWidth   = decimal.NewFromInt(9)
	parcelHeight  = decimal.NewFromInt(4)
	defaultUnitLb = decimal.NewFromInt(1)
	minParcelLb   = decimal.RequireFromString("0.1")
)

// ParcelFor packs the order into the standard 12x9x4 in box. Items without a
// recorded weight count as one pound each.
func ParcelFor(items []models.OrderItem) models.Parcel {
	weight := decimal.Zero
	for _, item := range items {
		unit := item.WeightLb
		if !unit.IsPositive() {
			unit = defaultUnitLb
		}
		weight = weight.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if weight.LessThan(minParcelLb) {
		weight = minParcelLb
	}
	return models.Parcel{
		Length:       parcelLength,
		Width:        parcelWidth,
		Height:       parcelHeight,
		DistanceUnit: "in",
		Weight:       weight.Round(2),
		MassUnit:     "lb",
	}
}
