package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
	RoleRenter Role = "RENTER"
)

type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserBlocked UserStatus = "BLOCKED"
)

type BookStatus string

const (
	BookActive   BookStatus = "ACTIVE"
	BookInactive BookStatus = "INACTIVE"
)

// Money is stored in integer minor units throughout.

type User struct {
	ID     int64      `json:"id" db:"id"`
	Name   string     `json:"name" db:"name"`
	Role   Role       `json:"role" db:"role"`
	Wallet int64      `json:"wallet" db:"wallet"`
	Status UserStatus `json:"status" db:"status"`
}

type Book struct {
	ID              int64      `json:"id" db:"id"`
	OwnerID         int64      `json:"ownerId" db:"owner_id"`
	Title           string     `json:"title" db:"title"`
	TotalCopies     int        `json:"totalCopies" db:"total_copies"`
	AvailableCopies int        `json:"availableCopies" db:"available_copies"`
	RentPrice       int64      `json:"rentPrice" db:"rent_price"`
	Status          BookStatus `json:"status" db:"status"`
}

type Rental struct {
	ID             int64      `json:"-" db:"id"`
	RentalUID      string     `json:"rentalUid" db:"rental_uid"`
	BookID         int64      `json:"bookId" db:"book_id"`
	RenterID       int64      `json:"renterId" db:"renter_id"`
	Price          int64      `json:"price" db:"price"`
	DueDate        time.Time  `json:"dueDate" db:"due_date"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	IsReturned     bool       `json:"isReturned" db:"is_returned"`
	ReturnDate     *time.Time `json:"returnDate,omitempty" db:"return_date"`
	IdempotencyKey *string    `json:"-" db:"idempotency_key"`
}

type EntryType string

const (
	EntryDeposit    EntryType = "DEPOSIT"
	EntryRentDebit  EntryType = "RENT_DEBIT"
	EntryRentCredit EntryType = "RENT_CREDIT"
	EntryLateFee    EntryType = "LATE_FEE"
)

type LedgerEntry struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	EntryType    EntryType `json:"entryType" db:"entry_type"`
	Amount       int64     `json:"amount" db:"amount"`
	BalanceAfter int64     `json:"balanceAfter" db:"balance_after"`
	RentalID     *int64    `json:"rentalId,omitempty" db:"rental_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t
			return nil
		}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

type CreateRentalRequest struct {
	BookID         int64  `json:"bookId" validate:"required"`
	DueDate        Date   `json:"dueDate" validate:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
	RenterID       int64  `json:"-" validate:"required"`
}

type ReturnBookResponse struct {
	LateFee int64 `json:"lateFee"`
}

type DepositRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type DepositResponse struct {
	Balance int64 `json:"balance"`
}
