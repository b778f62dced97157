package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rudrakv/storefront-api/internal/model"
)

// UserRepo is the credential store. It owns point lookups by phone
// and id, registration inserts, and the profile/credential updates
// the auth surface needs. Phone numbers are stored in canonical
// digits-only form; callers normalize before reaching the repo.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrPhoneExists = errors.New("phone already registered")

const userColumns = "id,phone,password_hash,role,status,token_version,full_name,primary_address,created_at,updated_at"

// Create inserts a user and returns its ID. New accounts start
// active with token_version 1.
func (r *UserRepo) Create(ctx context.Context, phone, passwordHash, fullName, role string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (phone, password_hash, role, status, token_version, full_name) VALUES (?,?,?,?,1,?)",
		phone, passwordHash, role, model.StatusActive, fullName)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrPhoneExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByPhone fetches a user by canonical phone.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone=? LIMIT 1", phone))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored hash and bumps the revocation
// counter in the same statement, so every token minted before the
// change stops verifying against the store at once.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, token_version=token_version+1 WHERE id=?",
		passwordHash, id)
	return err
}

// BumpTokenVersion invalidates every outstanding session token for
// the user without any token blocklist.
func (r *UserRepo) BumpTokenVersion(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET token_version=token_version+1 WHERE id=?", id)
	return err
}

// UpdateProfile updates the display name.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=? WHERE id=?", fullName, id)
	return err
}

// SetPrimaryAddressTx writes the denormalized default-address
// snapshot inside an open transaction. Passing nil clears it. Only
// default-promotion paths call this; nothing else may write the
// snapshot, or it drifts from the addresses table.
func (r *UserRepo) SetPrimaryAddressTx(ctx context.Context, tx *sql.Tx, id uint64, snapshot *string) error {
	var v sql.NullString
	if snapshot != nil {
		v = sql.NullString{String: *snapshot, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET primary_address=? WHERE id=?", v, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	var primary sql.NullString
	err := row.Scan(&u.ID, &u.Phone, &u.PasswordHash, &u.Role, &u.Status,
		&u.TokenVersion, &u.FullName, &primary, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if primary.Valid {
		p := primary.String
		u.PrimaryAddress = &p
	}
	return u, nil
}
