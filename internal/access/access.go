// Package access decides what each role may do and which sections of the
// back office it sees.
package access

import (
	"errors"
	"fmt"

	"github.com/rojas-cambio/cambio/internal/model"
)

// ErrForbidden is returned when a user lacks a capability.
var ErrForbidden = errors.New("forbidden")

// Capability is one guarded action.
type Capability string

const (
	ViewDashboard     Capability = "dashboard.view"
	ViewRates         Capability = "rates.view"
	ManageRates       Capability = "rates.manage"
	RecordTransaction Capability = "transactions.record"
	ViewTransactions  Capability = "transactions.view"
	EditTransaction   Capability = "transactions.edit"
	ImportTransaction Capability = "transactions.import"
	CalculateCash     Capability = "cash.calculate"
	ViewReports       Capability = "reports.view"
	ManageUsers       Capability = "users.manage"
	ManageSettings    Capability = "settings.manage"
)

var operatorCaps = []Capability{
	ViewDashboard,
	ViewRates,
	RecordTransaction,
	ViewTransactions,
	CalculateCash,
}

var table = map[model.Role]map[Capability]bool{
	model.RoleOperator: set(operatorCaps...),
	model.RoleAdmin: set(append(operatorCaps,
		ManageRates,
		EditTransaction,
		ImportTransaction,
		ViewReports,
		ManageUsers,
		ManageSettings,
	)...),
}

func set(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Can reports whether u holds capability c. Disabled users hold none.
func Can(u model.User, c Capability) bool {
	return u.Active && table[u.Role][c]
}

// Require returns ErrForbidden unless u holds c.
func Require(u model.User, c Capability) error {
	if !Can(u, c) {
		return fmt.Errorf("%s cannot %s: %w", u.Email, c, ErrForbidden)
	}
	return nil
}

// Capabilities lists what role may do, in a stable order.
func Capabilities(role model.Role) []Capability {
	var out []Capability
	for _, c := range []Capability{
		ViewDashboard, ViewRates, ManageRates, RecordTransaction, ViewTransactions,
		EditTransaction, ImportTransaction, CalculateCash, ViewReports, ManageUsers, ManageSettings,
	} {
		if table[role][c] {
			out = append(out, c)
		}
	}
	return out
}

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	Title string     `json:"title"`
	Path  string     `json:"path"`
	Needs Capability `json:"-"`
}

var menu = []MenuItem{
	{Title: "Dashboard", Path: "/", Needs: ViewDashboard},
	{Title: "Transactions", Path: "/transactions", Needs: ViewTransactions},
	{Title: "Reports", Path: "/reports", Needs: ViewReports},
	{Title: "Settings", Path: "/settings", Needs: ManageSettings},
}

// Navigation returns the menu entries visible to u.
func Navigation(u model.User) []MenuItem {
	var out []MenuItem
	for _, item := range menu {
		if Can(u, item.Needs) {
			out = append(out, item)
		}
	}
	return out
}
