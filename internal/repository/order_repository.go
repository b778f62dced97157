package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rudrakv/storefront-api/internal/model"
)

// OrderRepo persists orders and their line-item snapshots. All
// writes are *Tx variants: an order row never exists without its
// items and stock effects, so every insert joins the single commit
// batch owned by the checkout committer.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderColumns = "id,user_id,address_id,customer_name,customer_phone,address_text,total_paise,currency,status,items_json,delivery_slot,instructions,payment_method,created_at,updated_at"

// CreateTx inserts the order row within an open transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, address_id, customer_name, customer_phone, address_text, total_paise, currency, status, items_json, delivery_slot, instructions, payment_method, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, nullableID(o.UserID), nullableID(o.AddressID), o.CustomerName,
		o.CustomerPhone, o.AddressText, o.TotalPaise, o.Currency, o.Status,
		o.ItemsJSON, o.DeliverySlot, o.Instructions, o.PaymentMethod,
		o.CreatedAt, o.UpdatedAt)
	return err
}

// CreateItemsBulkTx inserts all line items in a single multi-VALUES
// statement. Passing an empty slice has no effect.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := "INSERT INTO order_items (order_id, product_id, name, unit_price_paise, quantity, line_total_paise) VALUES "
	args := make([]interface{}, 0, len(items)*6)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?,?,?,?)"
		args = append(args, it.OrderID, it.ProductID, it.Name,
			it.UnitPricePaise, it.Quantity, it.LineTotalPaise)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID fetches one order. Ownership is enforced by the caller so
// that "absent" and "not yours" produce the same response.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (model.Order, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id)
	return scanOrder(row)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id=? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus moves an order to the named status and stamps
// updated_at. It reports whether a row matched.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=?, updated_at=? WHERE id=?",
		status, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ItemsByOrder returns the immutable line-item snapshot rows.
func (r *OrderRepo) ItemsByOrder(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, order_id, product_id, name, unit_price_paise, quantity, line_total_paise FROM order_items WHERE order_id=? ORDER BY id",
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.OrderItem, 0)
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name,
			&it.UnitPricePaise, &it.Quantity, &it.LineTotalPaise); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func nullableID(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func scanOrder(s interface{ Scan(dest ...any) error }) (model.Order, error) {
	var o model.Order
	var userID, addressID sql.NullInt64
	err := s.Scan(&o.ID, &userID, &addressID, &o.CustomerName, &o.CustomerPhone,
		&o.AddressText, &o.TotalPaise, &o.Currency, &o.Status, &o.ItemsJSON,
		&o.DeliverySlot, &o.Instructions, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if userID.Valid {
		v := uint64(userID.Int64)
		o.UserID = &v
	}
	if addressID.Valid {
		v := uint64(addressID.Int64)
		o.AddressID = &v
	}
	return o, nil
}
