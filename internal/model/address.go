package model

import "time"

// Address is a saved delivery address belonging to exactly one user.
// At most one address per user carries IsDefault = true; every write
// path that promotes a default first clears the flag on all of the
// user's addresses inside the same transaction.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the address.
//  Label       – short label such as "home" or "office".
//  ContactName – recipient name for this address.
//  Phone       – contact phone, digits-only.
//  Line1       – first free-text address line.
//  Line2       – second free-text address line (optional).
//  Area        – locality / area name.
//  City        – city name.
//  State       – state name.
//  PostalCode  – postal code.
//  Landmark    – optional landmark hint for delivery.
//  IsDefault   – whether this is the user's default address.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Address struct {
    ID          uint64    // addresses.id
    UserID      uint64    // addresses.user_id
    Label       string    // addresses.label
    ContactName string    // addresses.contact_name
    Phone       string    // addresses.phone
    Line1       string    // addresses.line1
    Line2       string    // addresses.line2
    Area        string    // addresses.area
    City        string    // addresses.city
    State       string    // addresses.state
    PostalCode  string    // addresses.postal_code
    Landmark    string    // addresses.landmark
    IsDefault   bool      // addresses.is_default
    CreatedAt   time.Time // addresses.created_at
    UpdatedAt   time.Time // addresses.updated_at
}
