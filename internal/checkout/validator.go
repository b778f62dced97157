// Package checkout implements the secure order-placement pipeline:
// validation against live catalog data, delivery-address
// reconciliation, and the single atomic commit of the resulting
// write set.
package checkout

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/model"
)

// MaxItemQuantity is the fixed per-line quantity ceiling.
const MaxItemQuantity = 20

// Currency is fixed for the storefront.
const Currency = "INR"

// ItemInput is one raw cart line as submitted by the client.
// Quantity is bound as a float so that fractional and otherwise
// non-integral values can be rejected with a precise message instead
// of a generic bind error. Price is accepted for wire compatibility
// with older clients and is never read: every line is re-priced from
// the catalog.
type ItemInput struct {
	ProductID uint64  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
}

// Request is the raw checkout payload.
type Request struct {
	Items         []ItemInput `json:"items"`
	CustomerName  string      `json:"customer_name"`
	Phone         string      `json:"phone"`
	Line1         string      `json:"address_line1"`
	Line2         string      `json:"address_line2"`
	Area          string      `json:"area"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	PostalCode    string      `json:"postal_code"`
	Landmark      string      `json:"landmark"`
	Label         string      `json:"address_label"`
	DeliverySlot  string      `json:"delivery_slot"`
	Instructions  string      `json:"instructions"`
	PaymentMethod string      `json:"payment_method"`
	MakeDefault   bool        `json:"make_default_address"`
}

// Line is a resolved, authoritatively priced cart line.
type Line struct {
	ProductID      uint64 `json:"product_id"`
	Name           string `json:"name"`
	UnitPricePaise int64  `json:"unit_price_paise"`
	Quantity       int64  `json:"quantity"`
	LineTotalPaise int64  `json:"line_total_paise"`
}

// Summary is the normalized order snapshot produced by validation.
// It is what gets persisted, decoupled from any later mutation of
// product or address records.
type Summary struct {
	Lines         []Line
	TotalPaise    int64
	Currency      string
	CustomerName  string
	Phone         string
	Label         string
	Line1         string
	Line2         string
	Area          string
	City          string
	State         string
	PostalCode    string
	Landmark      string
	AddressText   string
	DeliverySlot  string
	Instructions  string
	PaymentMethod string
}

// Policy carries the externally configured pricing rules.
type Policy struct {
	MinOrderPaise int64
}

// Catalog is the batched authoritative price/stock read the
// validator depends on. *repository.ProductRepo satisfies it.
type Catalog interface {
	ActiveByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error)
}

// Validator re-prices and normalizes raw checkout requests.
type Validator struct {
	Catalog Catalog
	Policy  Policy
}

func NewValidator(catalog Catalog, policy Policy) *Validator {
	if catalog == nil {
		panic("nil catalog passed to NewValidator")
	}
	return &Validator{Catalog: catalog, Policy: policy}
}

var paymentMethods = map[string]bool{"cod": true, "upi": true, "card": true}

// Validate checks the cart against live catalog data and normalizes
// the customer, delivery and payment fields. The first violation
// wins and field order is fixed, so error reporting is
// deterministic. On success the returned summary is the exact data
// set the committer persists.
func (v *Validator) Validate(ctx context.Context, req Request) (*Summary, error) {
	ids := make([]uint64, 0, len(req.Items))
	seen := make(map[uint64]bool, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == 0 {
			continue
		}
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil, apperr.New(apperr.KindValidation, "cart is empty")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products, err := v.Catalog.ActiveByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "could not load products, please try again", err)
	}

	// Merge duplicate lines for the same product before the checks so
	// a split cart cannot sidestep the quantity ceiling.
	merged := make(map[uint64]float64, len(ids))
	for _, it := range req.Items {
		if it.ProductID == 0 {
			continue
		}
		merged[it.ProductID] += it.Quantity
	}

	lines := make([]Line, 0, len(ids))
	var total int64
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, apperr.New(apperr.KindValidation,
				fmt.Sprintf("product %d is unavailable", id))
		}
		q := merged[id]
		if math.IsNaN(q) || math.IsInf(q, 0) || q != math.Trunc(q) || q <= 0 || q > MaxItemQuantity {
			return nil, apperr.New(apperr.KindValidation,
				fmt.Sprintf("invalid quantity for %s", p.Name))
		}
		qty := int64(q)
		if qty > p.StockQty {
			return nil, apperr.New(apperr.KindValidation,
				fmt.Sprintf("%s is low on stock (%d left)", p.Name, p.StockQty))
		}
		lineTotal := qty * p.PricePaise
		lines = append(lines, Line{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPricePaise: p.PricePaise,
			Quantity:       qty,
			LineTotalPaise: lineTotal,
		})
		total += lineTotal
	}

	sum := &Summary{
		Lines:         lines,
		TotalPaise:    total,
		Currency:      Currency,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Phone:         NormalizePhone(req.Phone),
		Label:         strings.TrimSpace(req.Label),
		Line1:         strings.TrimSpace(req.Line1),
		Line2:         strings.TrimSpace(req.Line2),
		Area:          strings.TrimSpace(req.Area),
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		PostalCode:    strings.TrimSpace(req.PostalCode),
		Landmark:      strings.TrimSpace(req.Landmark),
		DeliverySlot:  strings.TrimSpace(req.DeliverySlot),
		Instructions:  strings.TrimSpace(req.Instructions),
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
	}

	// Required-field checks in fixed order; the first violated field
	// produces the one error message the caller sees.
	switch {
	case sum.CustomerName == "":
		return nil, apperr.New(apperr.KindValidation, "customer_name is required")
	case sum.Phone == "":
		return nil, apperr.New(apperr.KindValidation, "phone is required")
	case len(sum.Phone) != 10:
		return nil, apperr.New(apperr.KindValidation, "phone must be a 10-digit number")
	case sum.Line1 == "":
		return nil, apperr.New(apperr.KindValidation, "address_line1 is required")
	case sum.City == "":
		return nil, apperr.New(apperr.KindValidation, "city is required")
	case sum.DeliverySlot == "":
		return nil, apperr.New(apperr.KindValidation, "delivery_slot is required")
	case !paymentMethods[sum.PaymentMethod]:
		return nil, apperr.New(apperr.KindValidation, "payment_method must be one of cod, upi, card")
	}

	if total < v.Policy.MinOrderPaise {
		return nil, apperr.New(apperr.KindValidation,
			fmt.Sprintf("minimum order amount is ₹%d", v.Policy.MinOrderPaise/100))
	}

	sum.AddressText = flattenAddress(sum)
	return sum, nil
}

// NormalizePhone reduces a phone number to canonical digits-only
// form: formatting characters are stripped, then a 91 country prefix
// or a single leading trunk zero is removed.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	return digits
}

func flattenAddress(s *Summary) string {
	parts := make([]string, 0, 7)
	for _, p := range []string{s.Line1, s.Line2, s.Area, s.City, s.State, s.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if s.Landmark != "" {
		parts = append(parts, "near "+s.Landmark)
	}
	return strings.Join(parts, ", ")
}
