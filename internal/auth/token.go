package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Typed verification failures. Callers branch on these with
// errors.Is; everything that is not one of the three token errors is
// either ErrNoSecret (a configuration fault, not an authentication
// failure) or an internal signing error.
var (
	ErrNoSecret       = errors.New("token secret is not configured")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenSignature = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token is expired")
)

// Claims is the decoded claim bundle of a session token.
// TokenVersion carries the per-user revocation counter; tokens minted
// before the counter existed decode with TokenVersion == 0 and the
// session middleware applies the legacy acceptance rule.
type Claims struct {
	UserID       uint64
	Role         string
	Phone        string
	TokenVersion int64
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// SignToken builds and signs an HS256 session token for the claims.
// The payload carries sub, role, phone, tv, iat and exp; segments are
// URL-safe unpadded base64 joined by dots, the wire format the jwt
// library produces. TTL is added to the current UTC time.
func SignToken(secret string, cl Claims, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, ErrNoSecret
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   cl.UserID,
		"role":  cl.Role,
		"phone": cl.Phone,
		"tv":    cl.TokenVersion,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyToken checks signature and expiry and decodes the claims.
// No claim is trusted before the signature verifies. Every session
// token is time-boxed, so exp is a required claim: a signed token
// without one is malformed, never an unbounded session. Failures are
// collapsed into the three typed errors above: token text that does
// not parse into three valid segments or lacks required claims is
// malformed, a MAC mismatch (including a token signed under a
// different secret) is a signature error, and a structurally valid
// token past exp is expired.
func VerifyToken(secret, token string) (Claims, error) {
	if secret == "" {
		return Claims{}, ErrNoSecret
	}
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignature
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	cl := Claims{}
	switch sub := mc["sub"].(type) {
	case float64:
		cl.UserID = uint64(sub)
	default:
		return Claims{}, ErrTokenMalformed
	}
	if role, ok := mc["role"].(string); ok {
		cl.Role = role
	}
	if phone, ok := mc["phone"].(string); ok {
		cl.Phone = phone
	}
	// tv absent means a legacy token; leave the version at zero.
	if tv, ok := mc["tv"].(float64); ok {
		cl.TokenVersion = int64(tv)
	}
	if iat, ok := mc["iat"].(float64); ok {
		cl.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := mc["exp"].(float64); ok {
		cl.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return cl, nil
}
