package service

import (
	"context"

	"github.com/bookrent/rental-service/internal/errs"
	"github.com/bookrent/rental-service/internal/model"
	"github.com/bookrent/rental-service/internal/repository"
	"github.com/bookrent/rental-service/pkg/kafka"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	LateFeePerDay int64 `envconfig:"LATE_FEE_PER_DAY" default:"10"`
}

// Service is the rental transaction engine. CreateRental and ReturnBook are
// the only operations touching more than one row; each runs as a single
// atomic unit inside the store's transaction.
type Service struct {
	log    *zap.Logger
	repo   repository.Store
	events kafka.Publisher
	clock  Clock
	cfg    Config
}

func NewService(repo repository.Store, events kafka.Publisher, cfg Config, log *zap.Logger) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		events: events,
		clock:  realClock{},
		cfg:    cfg,
	}
}

// WithClock replaces the time source. Test hook.
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// CreateRental reserves one copy and settles the wallets of both parties.
// Preconditions are evaluated in order on rows locked for update, so two
// concurrent calls against the last copy cannot both pass the availability
// check.
func (s *Service) CreateRental(ctx context.Context, req model.CreateRentalRequest) (model.Rental, error) {
	var rental model.Rental
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		book, err := tx.BookForUpdate(ctx, req.BookID)
		if err != nil {
			return err
		}
		if book.Status != model.BookActive {
			return errs.ErrNotFound
		}
		if book.AvailableCopies < 1 {
			return errs.ErrOutOfStock
		}
		if book.OwnerID == req.RenterID {
			return errs.ErrOwnBook
		}
		renter, err := tx.UserForUpdate(ctx, req.RenterID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInsufficientFunds
			}
			return err
		}
		if renter.Wallet < book.RentPrice {
			return errs.ErrInsufficientFunds
		}

		if err := tx.AdjustAvailableCopies(ctx, book.ID, -1); err != nil {
			return err
		}
		rental, err = tx.InsertRental(ctx, req, book.RentPrice)
		if err != nil {
			return err
		}
		if _, err := tx.AdjustWallet(ctx, req.RenterID, -book.RentPrice, model.EntryRentDebit, &rental.ID); err != nil {
			return err
		}
		if _, err := tx.AdjustWallet(ctx, book.OwnerID, book.RentPrice, model.EntryRentCredit, &rental.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.Rental{}, err
	}

	s.publish(kafka.EventRental{
		Timestamp: s.clock.Now(),
		EventType: kafka.EventRented,
		RentalUID: rental.RentalUID,
		BookID:    rental.BookID,
		RenterID:  rental.RenterID,
		Amount:    rental.Price,
	})
	return rental, nil
}

// ReturnBook closes a rental, frees the copy and debits the late fee, if any.
func (s *Service) ReturnBook(ctx context.Context, renterID int64, rentalUID string) (model.ReturnBookResponse, error) {
	var (
		resp   model.ReturnBookResponse
		rental model.Rental
	)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rental, err = tx.RentalForUpdate(ctx, rentalUID)
		if err != nil {
			return err
		}
		if rental.RenterID != renterID {
			return errs.ErrNotRenter
		}
		if rental.IsReturned {
			return errs.ErrAlreadyReturned
		}

		now := s.clock.Now()
		fee := LateFee(now, rental.DueDate, s.cfg.LateFeePerDay)

		if err := tx.MarkReturned(ctx, rental.ID, now); err != nil {
			return err
		}
		if err := tx.AdjustAvailableCopies(ctx, rental.BookID, 1); err != nil {
			return err
		}
		if fee > 0 {
			if _, err := tx.AdjustWallet(ctx, renterID, -fee, model.EntryLateFee, &rental.ID); err != nil {
				return err
			}
		}
		resp.LateFee = fee
		return nil
	})
	if err != nil {
		return model.ReturnBookResponse{}, err
	}

	s.publish(kafka.EventRental{
		Timestamp: s.clock.Now(),
		EventType: kafka.EventReturned,
		RentalUID: rental.RentalUID,
		BookID:    rental.BookID,
		RenterID:  rental.RenterID,
		Amount:    rental.Price,
		LateFee:   resp.LateFee,
	})
	return resp, nil
}

func (s *Service) GetRentals(ctx context.Context, renterID int64) ([]model.Rental, error) {
	return s.repo.ListRentals(ctx, renterID)
}

// Deposit credits the wallet. The payment-gateway redirect/webhook flow lives
// outside this service; this is the credit primitive it calls once funds clear.
func (s *Service) Deposit(ctx context.Context, userID, amount int64) (model.DepositResponse, error) {
	var resp model.DepositResponse
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		balance, err := tx.AdjustWallet(ctx, userID, amount, model.EntryDeposit, nil)
		if err != nil {
			return err
		}
		resp.Balance = balance
		return nil
	})
	if err != nil {
		return model.DepositResponse{}, err
	}
	return resp, nil
}

func (s *Service) Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error) {
	return s.repo.Ledger(ctx, userID)
}

// publish is best effort: losing an audit event never fails a committed rental.
func (s *Service) publish(event kafka.EventRental) {
	if err := s.events.Publish(kafka.RentalTopic, event); err != nil {
		s.log.Warn("publish rental event", zap.Error(err), zap.String("rentalUid", event.RentalUID))
	}
}
