package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/transaction"
)

// Store is the Postgres-backed transaction repository. Every mutation
// re-queries the owning user's full list and delivers it as a snapshot
// to active subscribers, so the stream layer always sees whole,
// authoritative replacements rather than diffs.
type Store struct {
	db  *sql.DB
	hub *hub
}

func New(db *sql.DB) *Store {
	return &Store{db: db, hub: newHub()}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a transaction row from the scanner.
// Expected column order: id, user_id, type, amount, date, description, category, receipt_url, created_at, updated_at
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var category, receiptURL sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.UserID, &typeStr, &tx.Amount, &tx.Date, &tx.Description,
		&category, &receiptURL, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Category = category.String
	tx.ReceiptURL = receiptURL.String

	return &tx, nil
}

const selectTransactionColumns = `
	id, user_id, type, amount, date, description, category, receipt_url, created_at, updated_at
`

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, type, amount, date, description, category, receipt_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.UserID,
		tx.Type,
		tx.Amount,
		tx.Date,
		tx.Description,
		tx.Category,
		tx.ReceiptURL,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	go s.notify(context.WithoutCancel(ctx), tx.UserID)

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1`

	args := []any{userID}

	argIdx := 2

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)

		args = append(args, *filter.Category)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET type = $1, amount = $2, date = $3, description = $4,
			category = NULLIF($5, ''), receipt_url = NULLIF($6, ''), updated_at = NOW()
		WHERE id = $7
	`

	res, err := s.db.ExecContext(ctx, query,
		tx.Type,
		tx.Amount,
		tx.Date,
		tx.Description,
		tx.Category,
		tx.ReceiptURL,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return transaction.ErrNotFound
	}

	go s.notify(context.WithoutCancel(ctx), tx.UserID)

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM transactions
		WHERE id = $1
		RETURNING user_id
	`

	var userID uuid.UUID

	err := s.db.QueryRowContext(ctx, query, id).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("deleting transaction: %w", err)
	}

	go s.notify(context.WithoutCancel(ctx), userID)

	return nil
}

// Subscribe registers for full snapshots of the user's transactions.
// The initial snapshot is delivered before Subscribe returns; the
// returned cancel stops delivery and is safe to call more than once.
func (s *Store) Subscribe(ctx context.Context, userID uuid.UUID, onSnapshot func([]*transaction.Transaction), onError func(error)) (func(), error) {
	cancel := s.hub.add(userID, onSnapshot, onError)

	txs, err := s.ListTransactions(ctx, userID, transaction.ListFilter{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	onSnapshot(txs)

	return cancel, nil
}

// notify pushes a fresh snapshot to the user's subscribers, if any.
// It runs on its own goroutine after the mutation has committed, so
// callers that insert optimistically observe their local write first
// and the authoritative snapshot second. Query failures are reported
// through the error callback.
func (s *Store) notify(ctx context.Context, userID uuid.UUID) {
	if !s.hub.active(userID) {
		return
	}

	txs, err := s.ListTransactions(ctx, userID, transaction.ListFilter{})
	if err != nil {
		s.hub.fail(userID, err)
		return
	}

	s.hub.deliver(userID, txs)
}
