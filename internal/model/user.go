package model

import "time"

// Roles a user account can hold. The session middleware always
// authorizes against the role currently stored in the database,
// never the one embedded in a token.
const (
    RoleCustomer = "customer"
    RoleAdmin    = "admin"
    RoleRider    = "rider"
)

// Account statuses. Blocked accounts keep their rows but fail
// authentication with a forbidden error.
const (
    StatusActive  = "active"
    StatusBlocked = "blocked"
)

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column. The json tags
// are omitted because these structs are used internally by the
// repository layer; handlers define separate response types.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Phone          – unique phone number, canonical digits-only form.
//  PasswordHash   – serialized pbkdf2 record (version, iterations, salt, key).
//  Role           – account role (customer, admin, rider).
//  Status         – account status (active, blocked).
//  TokenVersion   – session revocation counter; starts at 1 and is
//                   bumped to invalidate every outstanding token.
//  FullName       – optional display name.
//  PrimaryAddress – denormalized JSON snapshot of the default address
//                   (nullable); written only by default-promotion paths.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             uint64    // users.id
    Phone          string    // users.phone
    PasswordHash   string    // users.password_hash
    Role           string    // users.role
    Status         string    // users.status
    TokenVersion   int64     // users.token_version
    FullName       string    // users.full_name
    PrimaryAddress *string   // users.primary_address (nullable JSON)
    CreatedAt      time.Time // users.created_at
    UpdatedAt      time.Time // users.updated_at
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool { return u.Status == StatusActive }
