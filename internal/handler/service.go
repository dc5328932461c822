package handler

import (
	"context"

	"github.com/bookrent/rental-service/internal/model"
	"github.com/bookrent/rental-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type RentalService interface {
	CreateRental(ctx context.Context, req model.CreateRentalRequest) (model.Rental, error)
	ReturnBook(ctx context.Context, renterID int64, rentalUID string) (model.ReturnBookResponse, error)
	GetRentals(ctx context.Context, renterID int64) ([]model.Rental, error)
	Deposit(ctx context.Context, userID, amount int64) (model.DepositResponse, error)
	Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error)
}

var _ RentalService = (*service.Service)(nil)
