package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookrent/rental-service/internal/errs"
	"github.com/bookrent/rental-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Store is the unit-of-work contract of the rental engine. Every mutation of
// Book, User and Rental rows happens inside WithinTx; the Tx primitives compose
// within a single database transaction spanning all rows an operation touches.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListRentals(ctx context.Context, renterID int64) ([]model.Rental, error)
	Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error)
}

// Tx exposes row-locked primitives valid only inside a WithinTx callback.
type Tx interface {
	BookForUpdate(ctx context.Context, bookID int64) (model.Book, error)
	UserForUpdate(ctx context.Context, userID int64) (model.User, error)
	RentalForUpdate(ctx context.Context, rentalUID string) (model.Rental, error)
	InsertRental(ctx context.Context, req model.CreateRentalRequest, price int64) (model.Rental, error)
	MarkReturned(ctx context.Context, rentalID int64, returnedAt time.Time) error
	AdjustAvailableCopies(ctx context.Context, bookID int64, delta int) error
	AdjustWallet(ctx context.Context, userID, delta int64, entry model.EntryType, rentalID *int64) (int64, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	usersTableName  = `users`
	bookTableName   = `book`
	rentalTableName = `rental`
	ledgerTableName = `wallet_ledger`
)

// maxTxAttempts bounds the retry of lock/serialization conflicts before the
// operation is reported unavailable.
const maxTxAttempts = 3

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		r.log.Warn("tx conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return errors.Wrap(errs.ErrUnavailable, err.Error())
}

func (r *repository) runTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &txRunner{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure ||
		pgErr.Code == pgerrcode.DeadlockDetected
}

func (r *repository) ListRentals(ctx context.Context, renterID int64) ([]model.Rental, error) {
	q, args, err := qb.Select("id", "rental_uid", "book_id", "renter_id", "price",
		"due_date", "created_at", "is_returned", "return_date", "idempotency_key").
		From(rentalTableName).
		Where(sq.Eq{"renter_id": renterID}).
		OrderBy("created_at desc", "id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.Rental
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Ledger(ctx context.Context, userID int64) ([]model.LedgerEntry, error) {
	q, args, err := qb.Select("id", "user_id", "entry_type", "amount", "balance_after", "rental_id", "created_at").
		From(ledgerTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at desc", "id desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.LedgerEntry
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

type txRunner struct {
	tx *sqlx.Tx
}

func (t *txRunner) BookForUpdate(ctx context.Context, bookID int64) (model.Book, error) {
	q, args, err := qb.Select("id", "owner_id", "title", "total_copies", "available_copies", "rent_price", "status").
		From(bookTableName).
		Where(sq.Eq{"id": bookID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var book model.Book
	if err := t.tx.GetContext(ctx, &book, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (t *txRunner) UserForUpdate(ctx context.Context, userID int64) (model.User, error) {
	q, args, err := qb.Select("id", "name", "role", "wallet", "status").
		From(usersTableName).
		Where(sq.Eq{"id": userID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	var user model.User
	if err := t.tx.GetContext(ctx, &user, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (t *txRunner) RentalForUpdate(ctx context.Context, rentalUID string) (model.Rental, error) {
	q, args, err := qb.Select("id", "rental_uid", "book_id", "renter_id", "price",
		"due_date", "created_at", "is_returned", "return_date", "idempotency_key").
		From(rentalTableName).
		Where(sq.Eq{"rental_uid": rentalUID}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return model.Rental{}, err
	}
	var rental model.Rental
	if err := t.tx.GetContext(ctx, &rental, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Rental{}, errs.ErrNotFound
		}
		return model.Rental{}, err
	}
	return rental, nil
}

func (t *txRunner) InsertRental(ctx context.Context, req model.CreateRentalRequest, price int64) (model.Rental, error) {
	var idemKey *string
	if req.IdempotencyKey != "" {
		idemKey = &req.IdempotencyKey
	}
	q, args, err := qb.Insert(rentalTableName).
		Columns("rental_uid", "book_id", "renter_id", "price", "due_date", "idempotency_key").
		Values(uuid.New(), req.BookID, req.RenterID, price, req.DueDate.Time, idemKey).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Rental{}, err
	}
	var rental model.Rental
	if err := t.tx.GetContext(ctx, &rental, q, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Rental{}, errs.ErrDuplicateRental
		}
		return model.Rental{}, err
	}
	return rental, nil
}

func (t *txRunner) MarkReturned(ctx context.Context, rentalID int64, returnedAt time.Time) error {
	q := `
	update rental
	set is_returned = true, return_date = $2
	where id = $1 and not is_returned`
	res, err := t.tx.ExecContext(ctx, q, rentalID, returnedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrAlreadyReturned
	}
	return nil
}

// AdjustAvailableCopies applies delta only while 0 <= available_copies <= total_copies
// holds; a zero-row update on decrement means the last copy is gone.
func (t *txRunner) AdjustAvailableCopies(ctx context.Context, bookID int64, delta int) error {
	q := `
	update book
	set available_copies = available_copies + $2
	where id = $1
	  and available_copies + $2 between 0 and total_copies`
	res, err := t.tx.ExecContext(ctx, q, bookID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if delta < 0 {
			return errs.ErrOutOfStock
		}
		return errors.Errorf("available copies out of bounds: book %d delta %d", bookID, delta)
	}
	return nil
}

// AdjustWallet moves delta minor units (negative = debit) and records the
// resulting balance in the wallet ledger.
func (t *txRunner) AdjustWallet(ctx context.Context, userID, delta int64, entry model.EntryType, rentalID *int64) (int64, error) {
	q := `
	update users
	set wallet = wallet + $2
	where id = $1
	returning wallet`
	var balance int64
	if err := t.tx.QueryRowContext(ctx, q, userID, delta).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}

	iq, args, err := qb.Insert(ledgerTableName).
		Columns("user_id", "entry_type", "amount", "balance_after", "rental_id").
		Values(userID, entry, delta, balance, rentalID).
		ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, iq, args...); err != nil {
		return 0, err
	}
	return balance, nil
}
