package repository

import (
	"context"
	"database/sql"

	"github.com/rudrakv/storefront-api/internal/model"
)

// AddressRepo provides CRUD for saved delivery addresses. Writes
// that touch the default flag always run inside a transaction
// supplied by the caller, so the at-most-one-default invariant is
// preserved by clearing every flag before setting one, all in the
// same commit.
type AddressRepo struct{ DB *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{DB: db} }

const addressColumns = "id,user_id,label,contact_name,phone,line1,line2,area,city,state,postal_code,landmark,is_default,created_at,updated_at"

// ListByUser returns the user's addresses, default first, most
// recently updated next.
func (r *AddressRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Address, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id=? ORDER BY is_default DESC, updated_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByIDForUser fetches one address scoped to its owner. A row
// owned by someone else scans as sql.ErrNoRows on purpose, so the
// boundary cannot distinguish "absent" from "not yours".
func (r *AddressRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.Address, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id=? AND user_id=? LIMIT 1", id, userID)
	return scanAddressRow(row)
}

// FindMatch looks up an existing address whose line1 and phone
// exactly match the candidate, with empty strings treated as equal.
// It returns (nil, nil) when no equivalent address exists.
func (r *AddressRepo) FindMatch(ctx context.Context, userID uint64, line1, phone string) (*model.Address, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id=? AND line1=? AND phone=? LIMIT 1",
		userID, line1, phone)
	a, err := scanAddressRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountByUser reports how many addresses the user has saved; the
// first-ever address is promoted to default automatically.
func (r *AddressRepo) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM addresses WHERE user_id=?", userID).Scan(&n)
	return n, err
}

// CreateTx inserts an address within an open transaction and
// populates the generated ID on the record.
func (r *AddressRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Address) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO addresses (user_id, label, contact_name, phone, line1, line2, area, city, state, postal_code, landmark, is_default)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.UserID, a.Label, a.ContactName, a.Phone, a.Line1, a.Line2,
		a.Area, a.City, a.State, a.PostalCode, a.Landmark, a.IsDefault)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// UpdateTx rewrites the editable fields of an owned address.
func (r *AddressRepo) UpdateTx(ctx context.Context, tx *sql.Tx, a *model.Address) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE addresses SET label=?, contact_name=?, phone=?, line1=?, line2=?, area=?, city=?, state=?, postal_code=?, landmark=?, is_default=?
		 WHERE id=? AND user_id=?`,
		a.Label, a.ContactName, a.Phone, a.Line1, a.Line2, a.Area, a.City,
		a.State, a.PostalCode, a.Landmark, a.IsDefault, a.ID, a.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearDefaultsTx removes the default flag from every address the
// user owns. Always executed before SetDefaultTx or a default
// insert in the same transaction.
func (r *AddressRepo) ClearDefaultsTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE addresses SET is_default=0 WHERE user_id=? AND is_default=1", userID)
	return err
}

// SetDefaultTx marks one owned address as default.
func (r *AddressRepo) SetDefaultTx(ctx context.Context, tx *sql.Tx, id, userID uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE addresses SET is_default=1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTx removes an owned address and reports whether a row was
// deleted.
func (r *AddressRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM addresses WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LatestForUserTx returns the most recently updated remaining
// address, used to promote a fallback default after a delete.
// Returns (nil, nil) when the user has no addresses left.
func (r *AddressRepo) LatestForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Address, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id=? ORDER BY updated_at DESC, id DESC LIMIT 1",
		userID)
	a, err := scanAddressRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanAddress(s rowScanner) (model.Address, error) {
	var a model.Address
	err := s.Scan(&a.ID, &a.UserID, &a.Label, &a.ContactName, &a.Phone,
		&a.Line1, &a.Line2, &a.Area, &a.City, &a.State, &a.PostalCode,
		&a.Landmark, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanAddressRow(row *sql.Row) (model.Address, error) { return scanAddress(row) }
