package checkout

import (
	"context"
	"encoding/json"
	"log"

	"github.com/rudrakv/storefront-api/internal/model"
)

// AddressSource is the subset of the address repository the
// reconciler reads from. *repository.AddressRepo satisfies it.
type AddressSource interface {
	FindMatch(ctx context.Context, userID uint64, line1, phone string) (*model.Address, error)
	CountByUser(ctx context.Context, userID uint64) (int64, error)
}

// AddressPlan is the reconciler's staged, uncommitted write set.
// Exactly one of AddressID and New is set when the order links an
// address; both are empty when address linkage was skipped. The
// committer owns executing the plan atomically with the order.
type AddressPlan struct {
	AddressID   *uint64        // reuse this saved address
	Existing    *model.Address // the reused record, set with AddressID
	New         *model.Address // stage this insert
	MakeDefault bool           // clear all defaults, then set the linked one
}

// Linked reports whether the plan carries any address linkage.
func (p *AddressPlan) Linked() bool { return p.AddressID != nil || p.New != nil }

// ReconcileAddress deduplicates the checkout's delivery address
// against the user's saved addresses. An existing address with the
// same line1 and phone is reused, and an explicit default request
// promotes it unless it already is the default; otherwise a new
// address is staged, promoted to default when it is the user's first
// or when the caller asked for it. Address linkage is a convenience,
// never a hard dependency of order placement: any failure here is
// logged and the order proceeds with no linked address.
func ReconcileAddress(ctx context.Context, store AddressSource, userID uint64, sum *Summary, makeDefault bool) *AddressPlan {
	match, err := store.FindMatch(ctx, userID, sum.Line1, sum.Phone)
	if err != nil {
		log.Printf("checkout: address lookup failed for user %d: %v", userID, err)
		return &AddressPlan{}
	}
	if match != nil {
		id := match.ID
		return &AddressPlan{
			AddressID:   &id,
			Existing:    match,
			MakeDefault: makeDefault && !match.IsDefault,
		}
	}
	count, err := store.CountByUser(ctx, userID)
	if err != nil {
		log.Printf("checkout: address count failed for user %d: %v", userID, err)
		return &AddressPlan{}
	}
	label := sum.Label
	if label == "" {
		label = "home"
	}
	return &AddressPlan{
		New: &model.Address{
			UserID:      userID,
			Label:       label,
			ContactName: sum.CustomerName,
			Phone:       sum.Phone,
			Line1:       sum.Line1,
			Line2:       sum.Line2,
			Area:        sum.Area,
			City:        sum.City,
			State:       sum.State,
			PostalCode:  sum.PostalCode,
			Landmark:    sum.Landmark,
		},
		MakeDefault: count == 0 || makeDefault,
	}
}

// addressSnapshot is the denormalized primary-address JSON cached on
// the user row for fast profile reads.
type addressSnapshot struct {
	ID          uint64 `json:"id"`
	Label       string `json:"label"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	Area        string `json:"area,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Landmark    string `json:"landmark,omitempty"`
}

// AddressSnapshotJSON serializes the cached primary-address snapshot
// for a just-promoted default address.
func AddressSnapshotJSON(a model.Address) (string, error) {
	b, err := json.Marshal(addressSnapshot{
		ID:          a.ID,
		Label:       a.Label,
		ContactName: a.ContactName,
		Phone:       a.Phone,
		Line1:       a.Line1,
		Line2:       a.Line2,
		Area:        a.Area,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Landmark:    a.Landmark,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
