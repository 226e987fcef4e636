package domain

import "math"

// MinorUnits converts a major-unit amount (e.g. 19.99 GBP) into the smallest
// currency unit. Rounding, not truncation: 0.1+0.2 style float noise must not
// shave a penny off a line item.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ItemsTotal sums the extended line prices for a set of items.
func ItemsTotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// ShippingPortion derives the shipping charge as the remainder between the
// captured total and the item subtotal, clamped at zero.
func ShippingPortion(total, subtotal float64) float64 {
	shipping := total - subtotal
	if shipping < 0 {
		return 0
	}
	return math.Round(shipping*100) / 100
}
