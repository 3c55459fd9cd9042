package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"sales", RoleSales, true},
		{"sale", RoleSales, true},
		{"dev", RoleDev, true},
		{"developer", RoleDev, true},
		{"customer", RoleCustomer, true},
		{"client", RoleCustomer, true},
		{"manager", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		role, ok := ParseRole(tt.raw)
		assert.Equal(t, tt.ok, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, role, "raw=%q", tt.raw)
	}
}

func TestCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.Has(CapManageUsers))
	assert.True(t, RoleAdmin.Has(CapViewFinance))

	assert.True(t, RoleSales.Has(CapManageProposals))
	assert.False(t, RoleSales.Has(CapManageUsers))
	assert.False(t, RoleSales.Has(CapViewFinance))

	assert.True(t, RoleDev.Has(CapDeliverPhases))
	assert.False(t, RoleDev.Has(CapManageProposals))
	assert.False(t, RoleDev.Has(CapRecordTransactions))

	assert.True(t, RoleCustomer.Has(CapSubmitPayments))
	assert.True(t, RoleCustomer.Has(CapAcceptProject))
	assert.False(t, RoleCustomer.Has(CapManageProposals))
	assert.False(t, RoleCustomer.Has(CapManageProjects))
}

func TestIsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleSales.IsStaff())
	assert.True(t, RoleDev.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
}
