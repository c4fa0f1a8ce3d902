package core

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income           TransactionType = "income"
	Expense          TransactionType = "expense"
	InternalTransfer TransactionType = "internal_transfer"
	Adjustment       TransactionType = "adjustment"
)

const (
	AccountBank       AccountType = "bank"
	AccountCash       AccountType = "cash"
	AccountWallet     AccountType = "wallet"
	AccountInvestment AccountType = "investment"
	AccountChecks     AccountType = "checks"
	AccountOther      AccountType = "other"
)

const (
	StagedPending   StagedStatus = "pending"
	StagedApproved  StagedStatus = "approved"
	StagedProcessed StagedStatus = "processed"
	StagedRejected  StagedStatus = "rejected"
)

type (
	TransactionType string
	AccountType     string
	StagedStatus    string

	Date struct {
		time.Time
	}

	// Month is a calendar-month ledger bucket. Opening balances and
	// transactions hang off a month, never off raw dates.
	Month struct {
		ID     string `json:"id"`
		Year   int    `json:"year"`
		Month  int    `json:"month"`
		Label  string `json:"label"`
		Closed bool   `json:"is_closed"`
	}

	Account struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		Type          AccountType `json:"type"`
		Active        bool        `json:"is_active"`
		AllowNegative bool        `json:"allow_negative"`
	}

	Category struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Type TransactionType `json:"type"`
	}

	Subcategory struct {
		ID         string `json:"id"`
		CategoryID string `json:"category_id"`
		Name       string `json:"name"`
	}

	// LineAmount is one signed movement of a transaction on one account.
	LineAmount struct {
		AccountID string          `json:"account_id"`
		Amount    decimal.Decimal `json:"amount"`
	}

	// Transaction is booked into MonthID. AccrualMonthID, when present,
	// attributes its economic effect to a different month.
	Transaction struct {
		ID             string          `json:"id"`
		MonthID        string          `json:"month_id"`
		AccrualMonthID *string         `json:"accrual_month_id,omitempty"`
		Date           Date            `json:"date"`
		Type           TransactionType `json:"type"`
		Description    string          `json:"description"`
		CategoryID     *string         `json:"category_id,omitempty"`
		SubcategoryID  *string         `json:"subcategory_id,omitempty"`
		RowOrder       int             `json:"row_order"`
		Lines          []LineAmount    `json:"amounts"`
	}

	OpeningBalance struct {
		MonthID   string          `json:"month_id"`
		AccountID string          `json:"account_id"`
		Amount    decimal.Decimal `json:"amount"`
	}

	// StagedTransaction is an externally-sourced candidate row waiting in
	// the approval queue. Amounts arrive unsigned; the sign is applied when
	// the row is approved into a real transaction.
	StagedTransaction struct {
		ID            string          `json:"id"`
		Date          Date            `json:"date"`
		Type          TransactionType `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		CategoryID    *string         `json:"category_id,omitempty"`
		SubcategoryID *string         `json:"subcategory_id,omitempty"`
		TxRef         string          `json:"tx_ref"`
		Source        string          `json:"source"`
		Status        StagedStatus    `json:"status"`
		CreatedAt     time.Time       `json:"created_at"`
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrMonthClosed      = errors.New("month is closed")
	ErrMonthExists      = errors.New("month already exists")
	ErrNotFound         = errors.New("not found")
)

// MonthNames holds the Spanish month names used for default month labels.
// Index 0 is unused so that MonthNames[1] is January.
var MonthNames = [13]string{
	"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, InternalTransfer, Adjustment:
		return true
	}
	return false
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 {
		return ErrInvalidMonth
	}
	if m.Year < 1900 || m.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// DefaultLabel returns the Spanish display label for a (year, month) pair,
// e.g. "Enero 2026".
func DefaultLabel(year, month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return MonthNames[month] + " " + strconv.Itoa(year)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// Total returns the sum of the transaction's line amounts. For internal
// transfers this is zero by convention.
func (t Transaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range t.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.MonthID == "" {
		return ErrInvalidMonth
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (s StagedTransaction) Validate() error {
	if s.Type != Income && s.Type != Expense {
		return ErrInvalidType
	}
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if s.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
