package domain

import "testing"

func TestMinorUnitsRoundsInsteadOfTruncating(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{19.99, 1999},
		{0.1 + 0.2, 30},
		{29.975, 2998},
		{0, 0},
		{199.99, 19999},
	}
	for _, tc := range cases {
		if got := MinorUnits(tc.amount); got != tc.want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestShippingPortionClampsAtZero(t *testing.T) {
	if got := ShippingPortion(199.99, 189.99); got != 10.00 {
		t.Fatalf("expected 10.00 shipping, got %v", got)
	}
	if got := ShippingPortion(50, 60); got != 0 {
		t.Fatalf("expected clamped shipping, got %v", got)
	}
}

func TestDisplayImageFallback(t *testing.T) {
	images := ProductImages{Primary: "", Gallery: []string{" ", "gallery-1.jpg"}}
	if got := images.DisplayImage(); got != "gallery-1.jpg" {
		t.Fatalf("expected gallery fallback, got %q", got)
	}

	images = ProductImages{Primary: "front.jpg", Gallery: []string{"gallery-1.jpg"}}
	if got := images.DisplayImage(); got != "front.jpg" {
		t.Fatalf("expected primary image, got %q", got)
	}

	if got := (ProductImages{}).DisplayImage(); got != "" {
		t.Fatalf("expected empty fallback, got %q", got)
	}
}

func TestValidOrderStatus(t *testing.T) {
	if _, ok := ValidOrderStatus("Shipped"); ok {
		t.Fatal("expected Shipped to be rejected")
	}
	status, ok := ValidOrderStatus(" OutForDelivery ")
	if !ok || status != OrderStatusOutForDelivery {
		t.Fatalf("expected OutForDelivery, got %q ok=%v", status, ok)
	}
}
