package model

import "testing"

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range []string{
		OrderPending, OrderConfirmed, OrderOutForDelivery, OrderDelivered, OrderCancelled,
	} {
		if !IsValidOrderStatus(s) {
			t.Fatalf("expected %q to be a valid status", s)
		}
	}
	for _, s := range []string{"", "shipped", "PENDING", "pending "} {
		if IsValidOrderStatus(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}
