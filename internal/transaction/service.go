package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalid wraps all validation failures so callers can map them to a
// client error without inspecting validator internals.
var ErrInvalid = errors.New("invalid transaction")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	// Subscribe delivers the full current snapshot of the user's
	// transactions (date descending) on every change, starting with an
	// initial snapshot. The returned cancel is idempotent.
	Subscribe(ctx context.Context, userID uuid.UUID, onSnapshot func([]*Transaction), onError func(error)) (func(), error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
	}
}

type CreateParams struct {
	UserID      uuid.UUID `validate:"required"`
	Type        Type      `validate:"required,oneof=deposit withdrawal transfer payment investment"`
	Amount      int64     `validate:"required,gt=0"`
	Date        time.Time `validate:"required"`
	Description string    `validate:"required,min=3,max=200"`
	Category    string    `validate:"omitempty,max=50"`
}

// ListFilter narrows a transaction listing. Nil fields are ignored;
// the date range is inclusive on both ends.
type ListFilter struct {
	Type      *Type
	Category  *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Patch carries a partial update. Nil means "leave the field alone";
// a pointer to the zero value means "set it to the zero value", so
// clearing a category is distinguishable from not touching it.
type Patch struct {
	Type        *Type
	Amount      *int64
	Date        *time.Time
	Description *string
	Category    *string
	ReceiptURL  *string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	params.Description = strings.TrimSpace(params.Description)
	params.Category = strings.TrimSpace(params.Category)

	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	tx := &Transaction{
		UserID:      params.UserID,
		Type:        params.Type,
		Amount:      params.Amount,
		Date:        params.Date,
		Description: params.Description,
		Category:    params.Category,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, filter)
}

// Summary recomputes the financial summary from the user's full
// transaction set; it is never stored.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	txs, err := s.repo.ListTransactions(ctx, userID, ListFilter{})
	if err != nil {
		return Summary{}, err
	}

	return Summarize(txs), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Type != nil {
		tx.Type = *patch.Type
	}

	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}

	if patch.Date != nil {
		tx.Date = *patch.Date
	}

	if patch.Description != nil {
		tx.Description = strings.TrimSpace(*patch.Description)
	}

	if patch.Category != nil {
		tx.Category = strings.TrimSpace(*patch.Category)
	}

	if patch.ReceiptURL != nil {
		tx.ReceiptURL = *patch.ReceiptURL
	}

	if err := s.validatePatched(tx); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) validatePatched(tx *Transaction) error {
	params := CreateParams{
		UserID:      tx.UserID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		Date:        tx.Date,
		Description: tx.Description,
		Category:    tx.Category,
	}
	if err := s.validate.Struct(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// AttachReceipt records the uploaded receipt's URL on the transaction.
func (s *Service) AttachReceipt(ctx context.Context, id uuid.UUID, url string) (*Transaction, error) {
	return s.Update(ctx, id, Patch{ReceiptURL: &url})
}

// Subscribe exposes the repository's real-time snapshot channel.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, onSnapshot func([]*Transaction), onError func(error)) (func(), error) {
	return s.repo.Subscribe(ctx, userID, onSnapshot, onError)
}

func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	txs := make([]*Transaction, 0, len(params))

	for _, p := range params {
		tx, err := s.Create(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("creating transaction %q: %w", p.Description, err)
		}

		txs = append(txs, tx)
	}

	return txs, nil
}
