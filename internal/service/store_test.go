package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/bookrent/rental-service/internal/errs"
	"github.com/bookrent/rental-service/internal/model"
	"github.com/bookrent/rental-service/internal/repository"
	"github.com/google/uuid"
)

// memStore is an in-memory Store with the same contract as the Postgres
// implementation: transactions are serialized (the mutex plays the row lock)
// and roll back completely when the callback fails.
type memStore struct {
	mu      sync.Mutex
	books   map[int64]model.Book
	users   map[int64]model.User
	rentals map[int64]model.Rental
	ledger  []model.LedgerEntry

	nextRentalID int64
	nextLedgerID int64
}

func newMemStore() *memStore {
	return &memStore{
		books:   make(map[int64]model.Book),
		users:   make(map[int64]model.User),
		rentals: make(map[int64]model.Rental),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	books        map[int64]model.Book
	users        map[int64]model.User
	rentals      map[int64]model.Rental
	ledger       []model.LedgerEntry
	nextRentalID int64
	nextLedgerID int64
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		books:        make(map[int64]model.Book, len(s.books)),
		users:        make(map[int64]model.User, len(s.users)),
		rentals:      make(map[int64]model.Rental, len(s.rentals)),
		ledger:       append([]model.LedgerEntry(nil), s.ledger...),
		nextRentalID: s.nextRentalID,
		nextLedgerID: s.nextLedgerID,
	}
	for k, v := range s.books {
		snap.books[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.rentals {
		snap.rentals[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.books = snap.books
	s.users = snap.users
	s.rentals = snap.rentals
	s.ledger = snap.ledger
	s.nextRentalID = snap.nextRentalID
	s.nextLedgerID = snap.nextLedgerID
}

func (s *memStore) ListRentals(_ context.Context, renterID int64) ([]model.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Rental
	for _, r := range s.rentals {
		if r.RenterID == renterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Ledger(_ context.Context, userID int64) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) openRentals(bookID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rentals {
		if r.BookID == bookID && !r.IsReturned {
			n++
		}
	}
	return n
}

func (s *memStore) book(id int64) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id]
}

func (s *memStore) wallet(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].Wallet
}

type memTx struct {
	s *memStore
}

func (t *memTx) BookForUpdate(_ context.Context, bookID int64) (model.Book, error) {
	book, ok := t.s.books[bookID]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return book, nil
}

func (t *memTx) UserForUpdate(_ context.Context, userID int64) (model.User, error) {
	user, ok := t.s.users[userID]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return user, nil
}

func (t *memTx) RentalForUpdate(_ context.Context, rentalUID string) (model.Rental, error) {
	for _, r := range t.s.rentals {
		if r.RentalUID == rentalUID {
			return r, nil
		}
	}
	return model.Rental{}, errs.ErrNotFound
}

func (t *memTx) InsertRental(_ context.Context, req model.CreateRentalRequest, price int64) (model.Rental, error) {
	var idemKey *string
	if req.IdempotencyKey != "" {
		for _, r := range t.s.rentals {
			if r.IdempotencyKey != nil && *r.IdempotencyKey == req.IdempotencyKey {
				return model.Rental{}, errs.ErrDuplicateRental
			}
		}
		key := req.IdempotencyKey
		idemKey = &key
	}
	t.s.nextRentalID++
	rental := model.Rental{
		ID:             t.s.nextRentalID,
		RentalUID:      uuid.New().String(),
		BookID:         req.BookID,
		RenterID:       req.RenterID,
		Price:          price,
		DueDate:        req.DueDate.Time,
		CreatedAt:      time.Now().UTC(),
		IdempotencyKey: idemKey,
	}
	t.s.rentals[rental.ID] = rental
	return rental, nil
}

func (t *memTx) MarkReturned(_ context.Context, rentalID int64, returnedAt time.Time) error {
	rental, ok := t.s.rentals[rentalID]
	if !ok {
		return errs.ErrNotFound
	}
	if rental.IsReturned {
		return errs.ErrAlreadyReturned
	}
	rental.IsReturned = true
	rental.ReturnDate = &returnedAt
	t.s.rentals[rentalID] = rental
	return nil
}

func (t *memTx) AdjustAvailableCopies(_ context.Context, bookID int64, delta int) error {
	book, ok := t.s.books[bookID]
	if !ok {
		return errs.ErrNotFound
	}
	next := book.AvailableCopies + delta
	if next < 0 || next > book.TotalCopies {
		if delta < 0 {
			return errs.ErrOutOfStock
		}
		return errs.ErrNotFound
	}
	book.AvailableCopies = next
	t.s.books[bookID] = book
	return nil
}

func (t *memTx) AdjustWallet(_ context.Context, userID, delta int64, entry model.EntryType, rentalID *int64) (int64, error) {
	user, ok := t.s.users[userID]
	if !ok {
		return 0, errs.ErrNotFound
	}
	user.Wallet += delta
	t.s.users[userID] = user

	t.s.nextLedgerID++
	t.s.ledger = append(t.s.ledger, model.LedgerEntry{
		ID:           t.s.nextLedgerID,
		UserID:       userID,
		EntryType:    entry,
		Amount:       delta,
		BalanceAfter: user.Wallet,
		RentalID:     rentalID,
		CreatedAt:    time.Now().UTC(),
	})
	return user.Wallet, nil
}
