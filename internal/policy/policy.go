// Package policy holds the role/action authorization table evaluated before
// the rental engine is invoked.
package policy

import (
	"github.com/bookrent/rental-service/internal/model"
)

type Action string

const (
	RentBook      Action = "rental:create"
	ReturnBook    Action = "rental:return"
	ListRentals   Action = "rental:list"
	DepositWallet Action = "wallet:deposit"
	ViewLedger    Action = "wallet:ledger"
)

var table = map[model.Role]map[Action]bool{
	model.RoleAdmin: {
		RentBook:      true,
		ReturnBook:    true,
		ListRentals:   true,
		DepositWallet: true,
		ViewLedger:    true,
	},
	model.RoleRenter: {
		RentBook:      true,
		ReturnBook:    true,
		ListRentals:   true,
		DepositWallet: true,
		ViewLedger:    true,
	},
	// Owners receive rental income but do not rent through this service.
	model.RoleOwner: {
		ListRentals:   true,
		DepositWallet: true,
		ViewLedger:    true,
	},
}

// Allow reports whether role may perform action. Unknown roles get nothing.
func Allow(role model.Role, action Action) bool {
	perms, ok := table[role]
	if !ok {
		return false
	}
	return perms[action]
}
