package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/auth"
	"github.com/rudrakv/storefront-api/internal/checkout"
	"github.com/rudrakv/storefront-api/internal/config"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/repository"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo) *AuthHandler {
	if users == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}
type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userPart struct {
	ID       uint64 `json:"id"`
	Phone    string `json:"phone"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Register creates a customer account and returns a session token
// immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	phone := checkout.NormalizePhone(req.Phone)
	if len(phone) != 10 {
		return respondErr(c, apperr.New(apperr.KindValidation, "phone must be a 10-digit number"))
	}
	if len(req.Password) < 6 {
		return respondErr(c, apperr.New(apperr.KindValidation, "password must be at least 6 characters"))
	}

	hash, err := auth.HashPassword(req.Password, h.Cfg.PBKDF2Iters)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not create account", err))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, phone, hash, strings.TrimSpace(req.FullName), model.RoleCustomer)
	if err != nil {
		if errors.Is(err, repository.ErrPhoneExists) {
			return respondErr(c, apperr.New(apperr.KindConflict, "phone already registered"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not create account", err))
	}

	token, exp, err := auth.SignToken(h.Cfg.AuthSecret, auth.Claims{
		UserID:       uid,
		Role:         model.RoleCustomer,
		Phone:        phone,
		TokenVersion: 1,
	}, time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindConfig, "service unavailable", err))
	}

	return c.JSON(http.StatusCreated, authResp{
		User:    userPart{ID: uid, Phone: phone, FullName: strings.TrimSpace(req.FullName), Role: model.RoleCustomer},
		Token:   token,
		Expires: exp,
	})
}

// Login verifies credentials and returns a fresh session token
// embedding the account's current revocation counter.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	phone := checkout.NormalizePhone(req.Phone)
	if phone == "" || req.Password == "" {
		return respondErr(c, apperr.New(apperr.KindValidation, "phone and password are required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindUnauthenticated, "invalid credentials"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "login failed, please try again", err))
	}
	if !auth.VerifyPassword(req.Password, u.PasswordHash) {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "invalid credentials"))
	}
	if !u.IsActive() {
		return respondErr(c, apperr.New(apperr.KindForbidden, "account suspended"))
	}

	token, exp, err := auth.SignToken(h.Cfg.AuthSecret, auth.Claims{
		UserID:       u.ID,
		Role:         u.Role,
		Phone:        u.Phone,
		TokenVersion: u.TokenVersion,
	}, time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindConfig, "service unavailable", err))
	}

	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Phone: u.Phone, FullName: u.FullName, Role: u.Role},
		Token:   token,
		Expires: exp,
	})
}

// Me returns the authenticated user's profile, including the cached
// primary-address snapshot when one exists.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load profile", err))
	}
	var primary json.RawMessage
	if u.PrimaryAddress != nil {
		primary = json.RawMessage(*u.PrimaryAddress)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":            userPart{ID: u.ID, Phone: u.Phone, FullName: u.FullName, Role: u.Role},
		"primary_address": primary,
	})
}

// ChangePassword verifies the current password, stores a fresh hash
// and bumps the revocation counter, which invalidates every
// outstanding token. A new token minted against the bumped counter
// is returned so the current session survives.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if len(req.NewPassword) < 6 {
		return respondErr(c, apperr.New(apperr.KindValidation, "password must be at least 6 characters"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not change password", err))
	}
	if !auth.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "invalid credentials"))
	}

	hash, err := auth.HashPassword(req.NewPassword, h.Cfg.PBKDF2Iters)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not change password", err))
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not change password", err))
	}

	token, exp, err := auth.SignToken(h.Cfg.AuthSecret, auth.Claims{
		UserID:       u.ID,
		Role:         u.Role,
		Phone:        u.Phone,
		TokenVersion: u.TokenVersion + 1,
	}, time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindConfig, "service unavailable", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "expires": exp})
}

// LogoutAll bumps the revocation counter so every token issued so
// far, on every device, fails the next session check.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.BumpTokenVersion(ctx, uid); err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "logout failed", err))
	}
	return c.NoContent(http.StatusNoContent)
}
