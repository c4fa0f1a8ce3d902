package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caja/internal/core"
	"caja/internal/whatsapp"
)

// WhatsAppStore is the slice of the store the WhatsApp pipeline needs.
type WhatsAppStore interface {
	MonthStore

	FindCategoryByName(ctx context.Context, name string, t core.TransactionType) (core.Category, error)
	FindAccountByName(ctx context.Context, name string) (core.Account, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
}

// WhatsAppService registers expenses sent over WhatsApp. Replies are
// user-facing Spanish strings, returned even for business rejections so
// the sender always gets an answer.
type WhatsAppService struct {
	store          WhatsAppStore
	defaultAccount string
}

func NewWhatsAppService(store WhatsAppStore, defaultAccount string) *WhatsAppService {
	if defaultAccount == "" {
		defaultAccount = "Caja"
	}
	return &WhatsAppService{store: store, defaultAccount: defaultAccount}
}

// RegisterExpense books a parsed expense command into the ledger. The
// returned string is the reply for the sender; err is non-nil only for
// infrastructure failures.
func (s *WhatsAppService) RegisterExpense(ctx context.Context, cmd whatsapp.ExpenseCommand, from string) (string, error) {
	category, err := s.store.FindCategoryByName(ctx, cmd.Category, core.Expense)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("No encontré la categoría %q. Verificá el nombre exacto en la app.", cmd.Category), nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve category: %w", err)
	}

	accountName := cmd.Account
	if accountName == "" {
		accountName = s.defaultAccount
	}
	account, err := s.store.FindAccountByName(ctx, accountName)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("No encontré la cuenta %q. Configurá la cuenta por defecto o enviala en el mensaje.", accountName), nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve account: %w", err)
	}

	date, err := core.ParseDate(cmd.Date)
	if err != nil {
		return "", fmt.Errorf("parse command date: %w", err)
	}

	month, err := GetOrCreateMonth(ctx, s.store, date)
	if err != nil {
		return "", err
	}

	txID, err := s.store.CreateTransaction(ctx, core.Transaction{
		MonthID:     month.ID,
		Date:        date,
		Type:        core.Expense,
		Description: fmt.Sprintf("[WhatsApp %s] %s", from, cmd.Description),
		CategoryID:  &category.ID,
		Lines: []core.LineAmount{
			{AccountID: account.ID, Amount: core.SignedAmount(core.Expense, cmd.Amount)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "WhatsApp expense registered",
		"transaction_id", txID,
		"month_id", month.ID,
		"category", category.Name,
		"account", account.Name)

	return fmt.Sprintf("✅ Gasto registrado: %s por %s en %s (%s).",
		cmd.Description, cmd.Amount.StringFixed(2), category.Name, account.Name), nil
}
