package policy_test

import (
	"testing"

	"github.com/bookrent/rental-service/internal/model"
	"github.com/bookrent/rental-service/internal/policy"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		role   model.Role
		action policy.Action
		want   bool
	}{
		{"renter rents", model.RoleRenter, policy.RentBook, true},
		{"renter returns", model.RoleRenter, policy.ReturnBook, true},
		{"admin rents", model.RoleAdmin, policy.RentBook, true},
		{"owner may not rent", model.RoleOwner, policy.RentBook, false},
		{"owner may not return", model.RoleOwner, policy.ReturnBook, false},
		{"owner views ledger", model.RoleOwner, policy.ViewLedger, true},
		{"owner deposits", model.RoleOwner, policy.DepositWallet, true},
		{"unknown role gets nothing", model.Role("GUEST"), policy.ViewLedger, false},
		{"empty role gets nothing", model.Role(""), policy.RentBook, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, policy.Allow(tt.role, tt.action))
		})
	}
}
