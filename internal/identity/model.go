package identity

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role gates the admin area; the storefront itself only distinguishes logged in or not.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Provider records where an account was first created.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// Address is one shipping address in a user's address book. ID is empty for
// addresses that were stored before ids were assigned.
type Address struct {
	ID        string `json:"id,omitempty"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	City      string `json:"city"`
	District  string `json:"district"`
	Ward      string `json:"ward"`
	IsDefault bool   `json:"isDefault"`
}

// User is a storefront customer or administrator. An empty PasswordHash means
// the account has no local credential (guest checkout or social login).
// DefaultAddress is a copy of the address flagged IsDefault, nil when none is.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FullName       string
	Role           Role
	Provider       Provider
	ProviderID     string
	IsGuest        bool
	Addresses      []Address
	DefaultAddress *Address
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPassword reports whether the user can sign in with a local password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// SetPasswordHash replaces the local credential. A user with a credential is
// never a guest.
func (u *User) SetPasswordHash(hash string) {
	u.PasswordHash = hash
	if hash != "" {
		u.IsGuest = false
	}
}

// Clone returns a deep copy so callers can mutate addresses without aliasing
// the original.
func (u User) Clone() User {
	out := u
	if u.Addresses != nil {
		out.Addresses = append([]Address(nil), u.Addresses...)
	}
	if u.DefaultAddress != nil {
		snapshot := *u.DefaultAddress
		out.DefaultAddress = &snapshot
	}
	return out
}

// NewAddressID returns a stable, time-sortable address identifier.
func NewAddressID() string {
	return ulid.Make().String()
}

// NormalizeEmail lower-cases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
