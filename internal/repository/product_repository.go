package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rudrakv/storefront-api/internal/model"
)

// ProductRepo reads the authoritative catalog and applies stock
// decrements inside the order commit transaction.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

// ErrProductGone is returned when a stock decrement matches no row,
// meaning the product disappeared between validation and commit.
var ErrProductGone = errors.New("product no longer exists")

const productColumns = "id,name,price_paise,stock_qty,unit,is_active,created_at,updated_at"

// ListActive returns all active products for the public catalog.
func (r *ProductRepo) ListActive(ctx context.Context) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active=1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PricePaise, &p.StockQty,
			&p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetActive fetches one active product.
func (r *ProductRepo) GetActive(ctx context.Context, id uint64) (model.Product, error) {
	var p model.Product
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? AND is_active=1 LIMIT 1",
		id).Scan(&p.ID, &p.Name, &p.PricePaise, &p.StockQty, &p.Unit,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ActiveByIDs fetches current price and stock for exactly the
// referenced active product ids in one batched read. Ids absent from
// the result are unavailable and fail the whole order upstream.
func (r *ProductRepo) ActiveByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE is_active=1 AND id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PricePaise, &p.StockQty,
			&p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// DecrementStockTx applies an optimistic stock decrement based on
// the pre-commit read. Two concurrent checkouts of the same low-stock
// product can both pass validation and both commit, driving effective
// stock negative; that race window is accepted at current volume. A
// conditional stock_qty >= ? guard is the obvious tightening if it
// ever matters.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uint64, qty int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock_qty = stock_qty - ? WHERE id=?", qty, productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductGone
	}
	return nil
}
