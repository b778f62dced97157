package model

import "time"

// Order statuses. pending is the only state reachable at creation.
// Transitions are restricted to admin and rider callers and are not
// otherwise edge-validated: any status may move to any other named
// status. Tightening this into a real transition table is a known
// open question; the permissive behavior is deliberate for now.
const (
    OrderPending        = "pending"
    OrderConfirmed      = "confirmed"
    OrderOutForDelivery = "outForDelivery"
    OrderDelivered      = "delivered"
    OrderCancelled      = "cancelled"
)

var orderStatuses = map[string]bool{
    OrderPending:        true,
    OrderConfirmed:      true,
    OrderOutForDelivery: true,
    OrderDelivered:      true,
    OrderCancelled:      true,
}

// IsValidOrderStatus reports whether s names a known order status.
func IsValidOrderStatus(s string) bool { return orderStatuses[s] }

// Order is a committed order row. Customer name, phone, address text
// and the serialized line items are point-in-time snapshots: later
// edits to the user, address or catalog never change them. TotalPaise
// is fixed at creation and never recomputed.
//
// Fields:
//  ID            – caller-visible order id (uuid string).
//  UserID        – owning user (nullable; linkage is a convenience).
//  AddressID     – linked saved address (nullable).
//  CustomerName  – snapshot of the recipient name.
//  CustomerPhone – snapshot of the recipient phone, digits-only.
//  AddressText   – flattened snapshot of the delivery address.
//  TotalPaise    – sum of line totals at order time, in paise.
//  Currency      – ISO currency code, always INR.
//  Status        – current order status.
//  ItemsJSON     – serialized line-item snapshot.
//  DeliverySlot  – requested delivery slot text.
//  Instructions  – free-text delivery instructions.
//  PaymentMethod – payment method chosen at checkout.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp (stamped on status change).
type Order struct {
    ID            string    // orders.id
    UserID        *uint64   // orders.user_id (nullable)
    AddressID     *uint64   // orders.address_id (nullable)
    CustomerName  string    // orders.customer_name
    CustomerPhone string    // orders.customer_phone
    AddressText   string    // orders.address_text
    TotalPaise    int64     // orders.total_paise
    Currency      string    // orders.currency
    Status        string    // orders.status
    ItemsJSON     string    // orders.items_json
    DeliverySlot  string    // orders.delivery_slot
    Instructions  string    // orders.instructions
    PaymentMethod string    // orders.payment_method
    CreatedAt     time.Time // orders.created_at
    UpdatedAt     time.Time // orders.updated_at
}

// OrderItem is an immutable per-line snapshot taken at order time,
// independent of later catalog price changes.
//
// Fields:
//  ID             – primary key identifier.
//  OrderID        – owning order.
//  ProductID      – product at the time of ordering.
//  Name           – product name snapshot.
//  UnitPricePaise – unit price snapshot in paise.
//  Quantity       – units ordered.
//  LineTotalPaise – quantity × unit price at order time.
type OrderItem struct {
    ID             uint64 // order_items.id
    OrderID        string // order_items.order_id
    ProductID      uint64 // order_items.product_id
    Name           string // order_items.name
    UnitPricePaise int64  // order_items.unit_price_paise
    Quantity       int64  // order_items.quantity
    LineTotalPaise int64  // order_items.line_total_paise
}
