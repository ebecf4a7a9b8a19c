package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rojas-cambio/cambio/internal/model"
)

var (
	admin    = model.User{Email: "admin@cambio.pe", Role: model.RoleAdmin, Active: true}
	operator = model.User{Email: "caja@cambio.pe", Role: model.RoleOperator, Active: true}
)

func TestCan(t *testing.T) {
	tests := []struct {
		cap      Capability
		operator bool
	}{
		{ViewDashboard, true},
		{RecordTransaction, true},
		{CalculateCash, true},
		{ViewRates, true},
		{ManageRates, false},
		{EditTransaction, false},
		{ImportTransaction, false},
		{ViewReports, false},
		{ManageUsers, false},
		{ManageSettings, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.cap), func(t *testing.T) {
			assert.True(t, Can(admin, tt.cap))
			assert.Equal(t, tt.operator, Can(operator, tt.cap))
		})
	}
}

func TestCan_Inactive(t *testing.T) {
	disabled := admin
	disabled.Active = false
	assert.False(t, Can(disabled, ViewDashboard))
	assert.Empty(t, Navigation(disabled))
}

func TestCan_UnknownRole(t *testing.T) {
	assert.False(t, Can(model.User{Role: "guest", Active: true}, ViewDashboard))
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(admin, ManageUsers))
	err := Require(operator, ManageUsers)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "caja@cambio.pe")
}

func TestNavigation(t *testing.T) {
	titles := func(items []MenuItem) []string {
		var out []string
		for _, i := range items {
			out = append(out, i.Title)
		}
		return out
	}
	assert.Equal(t, []string{"Dashboard", "Transactions", "Reports", "Settings"}, titles(Navigation(admin)))
	assert.Equal(t, []string{"Dashboard", "Transactions"}, titles(Navigation(operator)))
}

func TestCapabilities(t *testing.T) {
	assert.Len(t, Capabilities(model.RoleAdmin), 11)
	assert.Len(t, Capabilities(model.RoleOperator), 5)
	assert.Empty(t, Capabilities("guest"))
}
