package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rudrakv/storefront-api/internal/model"
)

type fakeAddressSource struct {
	match    *model.Address
	count    int64
	matchErr error
	countErr error
}

func (f *fakeAddressSource) FindMatch(ctx context.Context, userID uint64, line1, phone string) (*model.Address, error) {
	return f.match, f.matchErr
}

func (f *fakeAddressSource) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	return f.count, f.countErr
}

func reconcileSummary() *Summary {
	return &Summary{
		CustomerName: "Asha Patel",
		Phone:        "9876543210",
		Line1:        "14 MG Road",
		City:         "Pune",
	}
}

func TestReconcileReusesMatchingAddress(t *testing.T) {
	store := &fakeAddressSource{match: &model.Address{ID: 77, Line1: "14 MG Road", Phone: "9876543210"}}

	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), false)
	if !plan.Linked() {
		t.Fatal("expected the plan to link an address")
	}
	if plan.AddressID == nil || *plan.AddressID != 77 {
		t.Fatalf("expected reuse of address 77, got %+v", plan)
	}
	if plan.New != nil {
		t.Fatal("expected no staged insert when a match is reused")
	}
	if plan.MakeDefault {
		t.Fatal("reuse without a default request must not promote")
	}
}

func TestReconcileMatchedAddressExplicitDefault(t *testing.T) {
	match := &model.Address{ID: 77, Line1: "14 MG Road", Phone: "9876543210"}
	store := &fakeAddressSource{match: match}

	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), true)
	if plan.AddressID == nil || *plan.AddressID != 77 {
		t.Fatalf("expected reuse of address 77, got %+v", plan)
	}
	if !plan.MakeDefault {
		t.Fatal("an explicit default request must survive address reuse")
	}
	if plan.Existing == nil || plan.Existing.ID != 77 {
		t.Fatalf("expected the reused record on the plan, got %+v", plan.Existing)
	}

	// Already the default: promotion is a no-op and is not staged.
	match.IsDefault = true
	plan = ReconcileAddress(context.Background(), store, 1, reconcileSummary(), true)
	if plan.MakeDefault {
		t.Fatal("expected no promotion when the match is already the default")
	}
}

func TestReconcileStagesNewAddress(t *testing.T) {
	store := &fakeAddressSource{count: 2}

	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), false)
	if plan.AddressID != nil || plan.New == nil {
		t.Fatalf("expected a staged insert, got %+v", plan)
	}
	if plan.New.Line1 != "14 MG Road" || plan.New.Phone != "9876543210" {
		t.Fatalf("staged address does not carry the checkout fields: %+v", plan.New)
	}
	if plan.New.Label != "home" {
		t.Fatalf("expected label fallback to home, got %q", plan.New.Label)
	}
	if plan.MakeDefault {
		t.Fatal("a later address must not become default unless requested")
	}
}

func TestReconcileFirstAddressBecomesDefault(t *testing.T) {
	store := &fakeAddressSource{count: 0}

	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), false)
	if plan.New == nil || !plan.MakeDefault {
		t.Fatalf("expected the first saved address to become default, got %+v", plan)
	}
}

func TestReconcileExplicitDefault(t *testing.T) {
	store := &fakeAddressSource{count: 3}

	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), true)
	if plan.New == nil || !plan.MakeDefault {
		t.Fatalf("expected a requested default promotion, got %+v", plan)
	}
}

func TestReconcileKeepsCustomLabel(t *testing.T) {
	store := &fakeAddressSource{count: 1}
	sum := reconcileSummary()
	sum.Label = "office"

	plan := ReconcileAddress(context.Background(), store, 1, sum, false)
	if plan.New == nil || plan.New.Label != "office" {
		t.Fatalf("expected label office, got %+v", plan.New)
	}
}

func TestReconcileDegradesOnStoreErrors(t *testing.T) {
	// Lookup failure: the order proceeds with no address linkage.
	store := &fakeAddressSource{matchErr: errors.New("db down")}
	plan := ReconcileAddress(context.Background(), store, 1, reconcileSummary(), true)
	if plan.Linked() {
		t.Fatalf("expected an unlinked plan after a lookup failure, got %+v", plan)
	}

	// Count failure after a missed match: same degradation.
	store = &fakeAddressSource{countErr: errors.New("db down")}
	plan = ReconcileAddress(context.Background(), store, 1, reconcileSummary(), true)
	if plan.Linked() {
		t.Fatalf("expected an unlinked plan after a count failure, got %+v", plan)
	}
}

func TestAddressSnapshotJSON(t *testing.T) {
	out, err := AddressSnapshotJSON(model.Address{
		ID:          9,
		Label:       "home",
		ContactName: "Asha Patel",
		Phone:       "9876543210",
		Line1:       "14 MG Road",
		City:        "Pune",
	})
	if err != nil {
		t.Fatalf("AddressSnapshotJSON returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if decoded["id"] != float64(9) || decoded["line1"] != "14 MG Road" {
		t.Fatalf("unexpected snapshot contents: %s", out)
	}
	if _, ok := decoded["state"]; ok {
		t.Fatal("empty optional fields should be omitted from the snapshot")
	}
}
