package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/checkout"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/repository"
)

// AddressHandler implements the saved-address CRUD. Every write that
// can move the default flag runs inside one transaction: clear all
// defaults, apply the change, refresh the user's cached
// primary-address snapshot. That ordering keeps the at-most-one-
// default invariant under any interleaving of committed batches.
type AddressHandler struct {
	DB        *sql.DB
	Addresses *repository.AddressRepo
	Users     *repository.UserRepo
}

func NewAddressHandler(db *sql.DB, addresses *repository.AddressRepo, users *repository.UserRepo) *AddressHandler {
	if db == nil || addresses == nil || users == nil {
		panic("nil dependency passed to NewAddressHandler")
	}
	return &AddressHandler{DB: db, Addresses: addresses, Users: users}
}

type addressReq struct {
	Label       string `json:"label"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	Area        string `json:"area"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	Landmark    string `json:"landmark"`
	IsDefault   bool   `json:"is_default"`
}

type addressResp struct {
	ID          uint64    `json:"id"`
	Label       string    `json:"label"`
	ContactName string    `json:"contact_name"`
	Phone       string    `json:"phone"`
	Line1       string    `json:"line1"`
	Line2       string    `json:"line2,omitempty"`
	Area        string    `json:"area,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	PostalCode  string    `json:"postal_code,omitempty"`
	Landmark    string    `json:"landmark,omitempty"`
	IsDefault   bool      `json:"is_default"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAddressResp(a model.Address) addressResp {
	return addressResp{
		ID: a.ID, Label: a.Label, ContactName: a.ContactName, Phone: a.Phone,
		Line1: a.Line1, Line2: a.Line2, Area: a.Area, City: a.City,
		State: a.State, PostalCode: a.PostalCode, Landmark: a.Landmark,
		IsDefault: a.IsDefault, UpdatedAt: a.UpdatedAt,
	}
}

func (r addressReq) toModel(userID uint64) (model.Address, error) {
	phone := checkout.NormalizePhone(r.Phone)
	a := model.Address{
		UserID:      userID,
		Label:       strings.TrimSpace(r.Label),
		ContactName: strings.TrimSpace(r.ContactName),
		Phone:       phone,
		Line1:       strings.TrimSpace(r.Line1),
		Line2:       strings.TrimSpace(r.Line2),
		Area:        strings.TrimSpace(r.Area),
		City:        strings.TrimSpace(r.City),
		State:       strings.TrimSpace(r.State),
		PostalCode:  strings.TrimSpace(r.PostalCode),
		Landmark:    strings.TrimSpace(r.Landmark),
		IsDefault:   r.IsDefault,
	}
	if a.Line1 == "" {
		return a, apperr.New(apperr.KindValidation, "line1 is required")
	}
	if phone != "" && len(phone) != 10 {
		return a, apperr.New(apperr.KindValidation, "phone must be a 10-digit number")
	}
	if a.Label == "" {
		a.Label = "home"
	}
	return a, nil
}

// List returns the caller's saved addresses, default first.
func (h *AddressHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	addrs, err := h.Addresses.ListByUser(ctx, uid)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load addresses", err))
	}
	out := make([]addressResp, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, toAddressResp(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"addresses": out})
}

// Create saves a new address. The first address a user ever saves
// becomes the default automatically.
func (h *AddressHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	a, err := req.toModel(uid)
	if err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.Addresses.CountByUser(ctx, uid)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not save address", err))
	}
	a.IsDefault = a.IsDefault || count == 0

	err = h.withTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := h.Addresses.ClearDefaultsTx(ctx, tx, uid); err != nil {
				return err
			}
		}
		if err := h.Addresses.CreateTx(ctx, tx, &a); err != nil {
			return err
		}
		if a.IsDefault {
			return h.writeSnapshotTx(ctx, tx, uid, &a)
		}
		return nil
	})
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not save address", err))
	}
	return c.JSON(http.StatusCreated, toAddressResp(a))
}

// Update rewrites an owned address. Promoting it to default clears
// every other default first; dropping its default flag leaves the
// user with no default, which is allowed.
func (h *AddressHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid address id"))
	}
	var req addressReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	a, err := req.toModel(uid)
	if err != nil {
		return respondErr(c, err)
	}
	a.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Addresses.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "address not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not update address", err))
	}

	err = h.withTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := h.Addresses.ClearDefaultsTx(ctx, tx, uid); err != nil {
				return err
			}
		}
		if err := h.Addresses.UpdateTx(ctx, tx, &a); err != nil {
			return err
		}
		switch {
		case a.IsDefault:
			return h.writeSnapshotTx(ctx, tx, uid, &a)
		case existing.IsDefault:
			// Was the default, no longer is: drop the cached snapshot.
			return h.Users.SetPrimaryAddressTx(ctx, tx, uid, nil)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "address not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not update address", err))
	}
	return c.JSON(http.StatusOK, toAddressResp(a))
}

// Delete removes an owned address. Deleting the default promotes the
// most recently updated remaining address, or leaves the user with
// none.
func (h *AddressHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid address id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Addresses.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "address not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not delete address", err))
	}

	err = h.withTx(ctx, func(tx *sql.Tx) error {
		deleted, err := h.Addresses.DeleteTx(ctx, tx, id, uid)
		if err != nil {
			return err
		}
		if !deleted {
			return sql.ErrNoRows
		}
		if !existing.IsDefault {
			return nil
		}
		fallback, err := h.Addresses.LatestForUserTx(ctx, tx, uid)
		if err != nil {
			return err
		}
		if fallback == nil {
			return h.Users.SetPrimaryAddressTx(ctx, tx, uid, nil)
		}
		if err := h.Addresses.SetDefaultTx(ctx, tx, fallback.ID, uid); err != nil {
			return err
		}
		fallback.IsDefault = true
		return h.writeSnapshotTx(ctx, tx, uid, fallback)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "address not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not delete address", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefault promotes one owned address to default.
func (h *AddressHandler) SetDefault(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid address id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Addresses.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "address not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not update address", err))
	}

	err = h.withTx(ctx, func(tx *sql.Tx) error {
		if err := h.Addresses.ClearDefaultsTx(ctx, tx, uid); err != nil {
			return err
		}
		if err := h.Addresses.SetDefaultTx(ctx, tx, id, uid); err != nil {
			return err
		}
		a.IsDefault = true
		return h.writeSnapshotTx(ctx, tx, uid, &a)
	})
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not update address", err))
	}
	return c.JSON(http.StatusOK, toAddressResp(a))
}

func (h *AddressHandler) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (h *AddressHandler) writeSnapshotTx(ctx context.Context, tx *sql.Tx, uid uint64, a *model.Address) error {
	snap, err := checkout.AddressSnapshotJSON(*a)
	if err != nil {
		return err
	}
	return h.Users.SetPrimaryAddressTx(ctx, tx, uid, &snap)
}
