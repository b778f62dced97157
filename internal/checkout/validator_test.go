package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/model"
)

type fakeCatalog struct {
	products map[uint64]model.Product
	err      error
}

func (f *fakeCatalog) ActiveByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uint64]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[uint64]model.Product{
		1: {ID: 1, Name: "Basmati Rice 1kg", PricePaise: 15000, StockQty: 10},
		2: {ID: 2, Name: "Toor Dal 500g", PricePaise: 9000, StockQty: 1},
	}}
}

func validRequest() Request {
	return Request{
		Items:         []ItemInput{{ProductID: 1, Quantity: 2}},
		CustomerName:  "Asha Patel",
		Phone:         "98765 43210",
		Line1:         "14 MG Road",
		City:          "Pune",
		DeliverySlot:  "today-evening",
		PaymentMethod: "cod",
	}
}

func validate(t *testing.T, req Request) (*Summary, error) {
	t.Helper()
	v := NewValidator(testCatalog(), Policy{MinOrderPaise: 10000})
	return v.Validate(context.Background(), req)
}

func wantValidation(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error %q, got nil", msg)
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected a validation error, got kind %s (%v)", apperr.KindOf(err), err)
	}
	if got := apperr.MessageOf(err); got != msg {
		t.Fatalf("expected message %q, got %q", msg, got)
	}
}

func TestValidatePricesFromCatalog(t *testing.T) {
	req := validRequest()
	// Client-supplied price must be ignored in favor of the catalog.
	req.Items[0].Price = 1.0

	sum, err := validate(t, req)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(sum.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(sum.Lines))
	}
	line := sum.Lines[0]
	if line.UnitPricePaise != 15000 || line.LineTotalPaise != 30000 {
		t.Fatalf("expected authoritative pricing 15000x2=30000, got unit=%d total=%d",
			line.UnitPricePaise, line.LineTotalPaise)
	}
	if sum.TotalPaise != 30000 {
		t.Fatalf("expected order total 30000, got %d", sum.TotalPaise)
	}
	if sum.Currency != "INR" {
		t.Fatalf("expected INR, got %s", sum.Currency)
	}
	if sum.Phone != "9876543210" {
		t.Fatalf("expected normalized phone, got %q", sum.Phone)
	}
}

func TestValidateMergesDuplicateLines(t *testing.T) {
	req := validRequest()
	req.Items = []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 1}}

	sum, err := validate(t, req)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(sum.Lines) != 1 || sum.Lines[0].Quantity != 2 {
		t.Fatalf("expected duplicate lines merged into quantity 2, got %+v", sum.Lines)
	}
}

func TestValidateSplitCartCannotExceedQuantityCap(t *testing.T) {
	req := validRequest()
	req.Items = []ItemInput{{ProductID: 1, Quantity: 15}, {ProductID: 1, Quantity: 15}}

	_, err := validate(t, req)
	wantValidation(t, err, "invalid quantity for Basmati Rice 1kg")
}

func TestValidateQuantityBounds(t *testing.T) {
	for _, qty := range []float64{0, -1, 1.5, MaxItemQuantity + 1} {
		req := validRequest()
		req.Items = []ItemInput{{ProductID: 1, Quantity: qty}}
		_, err := validate(t, req)
		wantValidation(t, err, "invalid quantity for Basmati Rice 1kg")
	}
}

func TestValidateLowStock(t *testing.T) {
	req := validRequest()
	req.Items = []ItemInput{{ProductID: 2, Quantity: 2}}

	_, err := validate(t, req)
	wantValidation(t, err, "Toor Dal 500g is low on stock (1 left)")
}

func TestValidateUnknownProduct(t *testing.T) {
	req := validRequest()
	req.Items = []ItemInput{{ProductID: 99, Quantity: 1}}

	_, err := validate(t, req)
	wantValidation(t, err, "product 99 is unavailable")
}

func TestValidateEmptyCart(t *testing.T) {
	req := validRequest()
	req.Items = nil
	_, err := validate(t, req)
	wantValidation(t, err, "cart is empty")

	// Lines with a zero product id do not count as items.
	req.Items = []ItemInput{{ProductID: 0, Quantity: 3}}
	_, err = validate(t, req)
	wantValidation(t, err, "cart is empty")
}

func TestValidateMinimumOrder(t *testing.T) {
	v := NewValidator(testCatalog(), Policy{MinOrderPaise: 50000})
	_, err := v.Validate(context.Background(), validRequest())
	wantValidation(t, err, "minimum order amount is ₹500")
}

func TestValidateFieldOrderIsDeterministic(t *testing.T) {
	cases := []struct {
		mutate func(*Request)
		msg    string
	}{
		{func(r *Request) { r.CustomerName = "  " }, "customer_name is required"},
		{func(r *Request) { r.Phone = "" }, "phone is required"},
		{func(r *Request) { r.Phone = "12345" }, "phone must be a 10-digit number"},
		{func(r *Request) { r.Line1 = "" }, "address_line1 is required"},
		{func(r *Request) { r.City = "" }, "city is required"},
		{func(r *Request) { r.DeliverySlot = "" }, "delivery_slot is required"},
		{func(r *Request) { r.PaymentMethod = "cheque" }, "payment_method must be one of cod, upi, card"},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		_, err := validate(t, req)
		wantValidation(t, err, tc.msg)
	}

	// When several fields are missing, the earliest in the fixed order
	// wins regardless of which mutation came last.
	req := validRequest()
	req.PaymentMethod = ""
	req.CustomerName = ""
	_, err := validate(t, req)
	wantValidation(t, err, "customer_name is required")
}

func TestValidateCatalogFailureIsStorage(t *testing.T) {
	v := NewValidator(&fakeCatalog{err: errors.New("db down")}, Policy{})
	_, err := v.Validate(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected an error when the catalog read fails")
	}
	if apperr.KindOf(err) != apperr.KindStorage {
		t.Fatalf("expected a storage error, got kind %s", apperr.KindOf(err))
	}
}

func TestValidateAddressText(t *testing.T) {
	req := validRequest()
	req.Line2 = "Flat 3B"
	req.Area = "Shivaji Nagar"
	req.Landmark = "the clock tower"

	sum, err := validate(t, req)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	want := "14 MG Road, Flat 3B, Shivaji Nagar, Pune, near the clock tower"
	if sum.AddressText != want {
		t.Fatalf("expected address text %q, got %q", want, sum.AddressText)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"98765 43210", "9876543210"},
		{"+91 98765-43210", "9876543210"},
		{"919876543210", "9876543210"},
		{"09876543210", "9876543210"},
		{"(987) 654-3210", "9876543210"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateManyProductsKeepsIDOrder(t *testing.T) {
	catalog := &fakeCatalog{products: map[uint64]model.Product{}}
	req := validRequest()
	req.Items = nil
	for i := uint64(1); i <= 5; i++ {
		catalog.products[i] = model.Product{
			ID: i, Name: fmt.Sprintf("Item %d", i), PricePaise: 10000, StockQty: 5,
		}
	}
	// Submit in reverse to confirm lines come back sorted by id.
	for i := uint64(5); i >= 1; i-- {
		req.Items = append(req.Items, ItemInput{ProductID: i, Quantity: 1})
	}

	v := NewValidator(catalog, Policy{MinOrderPaise: 10000})
	sum, err := v.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	for i, line := range sum.Lines {
		if line.ProductID != uint64(i+1) {
			t.Fatalf("expected lines sorted by product id, got %+v", sum.Lines)
		}
	}
	if sum.TotalPaise != 50000 {
		t.Fatalf("expected total 50000, got %d", sum.TotalPaise)
	}
}
