package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caja/internal/amqp"
	"caja/internal/core"
)

// ErrAlreadyProcessed is returned when an approval races a previous one
// for the same staged row.
var ErrAlreadyProcessed = errors.New("staged transaction already processed")

// StagingStore is the slice of the store the staging pipeline needs.
type StagingStore interface {
	MonthStore

	GetStaged(ctx context.Context, id string) (core.StagedTransaction, error)
	InsertStaged(ctx context.Context, s core.StagedTransaction) (string, error)
	MarkStagedProcessed(ctx context.Context, id string) (bool, error)
	RejectStaged(ctx context.Context, id string) error
	FindCategoryByName(ctx context.Context, name string, t core.TransactionType) (core.Category, error)
	FindAccountByName(ctx context.Context, name string) (core.Account, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// StagingService runs the approval queue: externally-sourced rows land as
// staged transactions and become real ledger transactions on approval.
type StagingService struct {
	store          StagingStore
	defaultAccount string
}

func NewStagingService(store StagingStore, defaultAccount string) *StagingService {
	return &StagingService{store: store, defaultAccount: defaultAccount}
}

// Ingest persists one incoming candidate row into the staging queue.
// Category names are resolved best-effort; an unknown category leaves the
// staged row uncategorized rather than dropping it.
func (s *StagingService) Ingest(ctx context.Context, msg *amqp.StagedTransactionMessage) (string, error) {
	// Validation failures wrap amqp.ErrUnprocessable: redelivering a
	// malformed message can never succeed.
	date, err := core.ParseDate(msg.Date)
	if err != nil {
		return "", fmt.Errorf("%w: parse staged date %q: %v", amqp.ErrUnprocessable, msg.Date, err)
	}

	amount, err := core.ParseAmount(msg.Amount)
	if err != nil {
		return "", fmt.Errorf("%w: parse staged amount %q: %v", amqp.ErrUnprocessable, msg.Amount, err)
	}

	txType := core.TransactionType(msg.Type)
	if txType != core.Income && txType != core.Expense {
		return "", fmt.Errorf("%w: %w: %s", amqp.ErrUnprocessable, core.ErrInvalidType, msg.Type)
	}

	staged := core.StagedTransaction{
		Date:        date,
		Type:        txType,
		Amount:      amount,
		Description: msg.Description,
		TxRef:       msg.TxRef,
		Source:      msg.Source,
	}

	if msg.Category != "" {
		cat, err := s.store.FindCategoryByName(ctx, msg.Category, txType)
		switch {
		case err == nil:
			staged.CategoryID = &cat.ID
		case errors.Is(err, core.ErrNotFound):
			slog.WarnContext(ctx, "Staged row references unknown category",
				"category", msg.Category,
				"tx_ref", msg.TxRef)
		default:
			return "", fmt.Errorf("resolve category %q: %w", msg.Category, err)
		}
	}

	id, err := s.store.InsertStaged(ctx, staged)
	if err != nil {
		return "", fmt.Errorf("insert staged transaction: %w", err)
	}

	slog.InfoContext(ctx, "Staged transaction ingested",
		"staged_id", id,
		"tx_ref", msg.TxRef,
		"source", msg.Source)

	return id, nil
}

// Approve turns a staged row into a real transaction in the month its
// date falls into, creating that month when needed. The amount gets its
// sign from the transaction type at this boundary. Concurrent approvals
// of the same row are resolved by the guarded status transition: the
// loser deletes its transaction and reports ErrAlreadyProcessed.
func (s *StagingService) Approve(ctx context.Context, stagedID, accountID string) (string, error) {
	staged, err := s.store.GetStaged(ctx, stagedID)
	if err != nil {
		return "", fmt.Errorf("get staged transaction: %w", err)
	}
	if staged.Status == core.StagedProcessed || staged.Status == core.StagedRejected {
		return "", ErrAlreadyProcessed
	}

	if accountID == "" {
		account, err := s.store.FindAccountByName(ctx, s.defaultAccount)
		if err != nil {
			return "", fmt.Errorf("resolve default account %q: %w", s.defaultAccount, err)
		}
		accountID = account.ID
	}

	month, err := GetOrCreateMonth(ctx, s.store, staged.Date)
	if err != nil {
		return "", err
	}

	txID, err := s.store.CreateTransaction(ctx, core.Transaction{
		MonthID:       month.ID,
		Date:          staged.Date,
		Type:          staged.Type,
		Description:   staged.Description,
		CategoryID:    staged.CategoryID,
		SubcategoryID: staged.SubcategoryID,
		Lines: []core.LineAmount{
			{AccountID: accountID, Amount: core.SignedAmount(staged.Type, staged.Amount)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create transaction from staged row: %w", err)
	}

	ok, err := s.store.MarkStagedProcessed(ctx, stagedID)
	if err != nil {
		return "", fmt.Errorf("mark staged processed: %w", err)
	}
	if !ok {
		// another approval won the race: back out our copy
		if delErr := s.store.DeleteTransaction(ctx, txID); delErr != nil {
			slog.ErrorContext(ctx, "Failed to delete transaction after lost approval race",
				"transaction_id", txID,
				"staged_id", stagedID,
				"error", delErr)
		}
		return "", ErrAlreadyProcessed
	}

	slog.InfoContext(ctx, "Staged transaction approved",
		"staged_id", stagedID,
		"transaction_id", txID,
		"month_id", month.ID)

	return txID, nil
}

// Reject marks a staged row as rejected without touching the ledger.
func (s *StagingService) Reject(ctx context.Context, stagedID string) error {
	if err := s.store.RejectStaged(ctx, stagedID); err != nil {
		return fmt.Errorf("reject staged transaction: %w", err)
	}

	slog.InfoContext(ctx, "Staged transaction rejected", "staged_id", stagedID)
	return nil
}
