// Package policy derives what the console lets a user see from their role set.
// It is the only place role labels are interpreted on the client side.
package policy

import (
	"strings"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

const (
	PathDashboard     = "/"
	PathItems         = "/items"
	PathMyCoupons     = "/coupons/me"
	PathAllCoupons    = "/coupons/all"
	PathBulkUpload    = "/coupons/upload"
	PathAssignment    = "/coupons/assign"
	PathCouponAdmin   = "/admin/coupons"
	PathSettings      = "/settings"
	PathAdmin         = "/admin"
	PathLogin         = "/login"
	PathSignup        = "/signup"
	PathRecoverPasswd = "/recover-password"
)

// Tier is the minimum capability a navigation entry requires.
type Tier int

const (
	TierBase Tier = iota
	TierManager
	TierAdmin
	TierSuperuser
)

// NavEntry is one item of the console's navigation menu.
type NavEntry struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Tier  Tier   `json:"-"`
}

// menu is the full navigation in display order.
var menu = []NavEntry{
	{Title: "Dashboard", Path: PathDashboard, Tier: TierBase},
	{Title: "Items", Path: PathItems, Tier: TierBase},
	{Title: "My Coupons", Path: PathMyCoupons, Tier: TierBase},
	{Title: "All Coupons", Path: PathAllCoupons, Tier: TierManager},
	{Title: "Bulk Upload", Path: PathBulkUpload, Tier: TierManager},
	{Title: "Campaign Assignment", Path: PathAssignment, Tier: TierManager},
	{Title: "Coupon Admin", Path: PathCouponAdmin, Tier: TierAdmin},
	{Title: "User Settings", Path: PathSettings, Tier: TierBase},
	{Title: "Admin", Path: PathAdmin, Tier: TierSuperuser},
}

// CapabilitySet is the UI view over a user's roles.
type CapabilitySet struct {
	IsAdmin       bool       `json:"is_admin"`
	IsManager     bool       `json:"is_manager"`
	IsRegularUser bool       `json:"is_regular_user"`
	IsSuperuser   bool       `json:"is_superuser"`
	Nav           []NavEntry `json:"nav"`
}

// Capabilities computes the capabilities of u. A nil user gets every flag false and the
// base entries only. Entries are additive: an admin always sees manager entries.
func Capabilities(u *domain.User) CapabilitySet {
	c := CapabilitySet{
		IsManager:     u.HasAnyRole(domain.RoleCouponManager, domain.RoleCouponAdmin),
		IsAdmin:       u.HasRole(domain.RoleCouponAdmin),
		IsRegularUser: u.HasRole(domain.RoleUser),
		IsSuperuser:   u != nil && u.IsSuperuser,
	}
	c.Nav = make([]NavEntry, 0, len(menu))
	for _, e := range menu {
		if c.allows(e.Tier) {
			c.Nav = append(c.Nav, e)
		}
	}
	return c
}

func (c CapabilitySet) allows(t Tier) bool {
	switch t {
	case TierBase:
		return true
	case TierManager:
		return c.IsManager
	case TierAdmin:
		return c.IsAdmin
	case TierSuperuser:
		return c.IsSuperuser
	}
	return false
}

// CanVisit reports whether u may open path. Paths outside the menu (login,
// signup, password recovery) are public; nested paths inherit the tier of the
// longest matching menu prefix.
func CanVisit(u *domain.User, path string) bool {
	var match *NavEntry
	for i := range menu {
		e := &menu[i]
		if e.Path == PathDashboard {
			if path == PathDashboard {
				match = e
			}
			continue
		}
		if path == e.Path || strings.HasPrefix(path, e.Path+"/") {
			if match == nil || len(e.Path) > len(match.Path) {
				match = e
			}
		}
	}
	if match == nil {
		return true
	}
	return Capabilities(u).allows(match.Tier)
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	for _, p := range []string{PathLogin, PathSignup, PathRecoverPasswd} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
