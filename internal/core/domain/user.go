package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	RoleUser          = "user"
	RoleCouponManager = "coupon_manager"
	RoleCouponAdmin   = "coupon_admin"
)

// AvailableRoles lists every role label the coupon system understands.
var AvailableRoles = []string{RoleCouponAdmin, RoleCouponManager, RoleUser}

// UserID identifies a user. The identity API may send it as a JSON number or
// a JSON string, both decode into the same textual form.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

// User models an authenticated actor of the coupon console.
type User struct {
	ID           UserID         `json:"id"`
	Username     string         `json:"username"`
	FullName     string         `json:"full_name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Roles        []string       `json:"roles"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	IsActive     bool           `json:"is_active"`
	IsSuperuser  bool           `json:"is_superuser"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UnmarshalJSON decodes a user and guarantees a non-nil role set.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = User(p)
	u.Normalize()
	return nil
}

// Normalize replaces a nil role set with an empty one.
func (u *User) Normalize() {
	if u.Roles == nil {
		u.Roles = []string{}
	}
}

// HasRole reports exact, case-sensitive membership of role in the user's role set.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user carries at least one of roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// AddRole appends role unless it is already present.
func (u *User) AddRole(role string) {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
}

// RemoveRole drops every occurrence of role.
func (u *User) RemoveRole(role string) {
	u.Roles = slices.DeleteFunc(u.Roles, func(r string) bool { return r == role })
	u.Normalize()
}

// Clone returns a deep copy so cached users are never mutated through a caller.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	if c.Roles == nil {
		c.Roles = []string{}
	}
	if u.Attributes != nil {
		c.Attributes = make(map[string]any, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// NewUser is the payload of a self-service registration.
type NewUser struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=40"`
	FullName string `json:"full_name,omitempty" validate:"max=255"`
}

// WindowsEmail turns a Windows account name (DOMAIN\user) into an email-like
// address under domain. Values that already contain "@" are kept as-is.
func WindowsEmail(account, domain string) string {
	if strings.Contains(account, "@") {
		return account
	}
	r := strings.NewReplacer(`\`, "_", "/", "_", " ", "_")
	local := strings.ToLower(strings.TrimSpace(r.Replace(account)))
	return local + "@" + domain
}
