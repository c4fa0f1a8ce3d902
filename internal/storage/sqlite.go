package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"caja/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func scanDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func nullStr(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// --- report.Store ---

func (r *SQLiteRepository) ListActiveAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, is_active, allow_negative
		 FROM accounts WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *SQLiteRepository) ListMonths(ctx context.Context, ids []string) ([]core.Month, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, year, month, label, is_closed FROM months
		WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()
	return scanMonths(rows)
}

func (r *SQLiteRepository) ListOpeningBalances(ctx context.Context, monthIDs []string) ([]core.OpeningBalance, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	query := `SELECT month_id, account_id, amount FROM opening_balances
		WHERE month_id IN (` + placeholders(len(monthIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(monthIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list opening balances: %w", err)
	}
	defer rows.Close()

	var balances []core.OpeningBalance
	for rows.Next() {
		var (
			ob  core.OpeningBalance
			raw string
		)
		if err := rows.Scan(&ob.MonthID, &ob.AccountID, &raw); err != nil {
			return nil, fmt.Errorf("scan opening balance: %w", err)
		}
		if ob.Amount, err = scanDecimal(raw); err != nil {
			return nil, fmt.Errorf("parse opening balance amount: %w", err)
		}
		balances = append(balances, ob)
	}
	return balances, rows.Err()
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "month_id", monthIDs)
}

func (r *SQLiteRepository) ListTransactionsByAccrualMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "accrual_month_id", monthIDs)
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, column string, monthIDs []string) ([]core.Transaction, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, month_id, accrual_month_id, date, type, description,
			category_id, subcategory_id, row_order
		FROM transactions
		WHERE ` + column + ` IN (` + placeholders(len(monthIDs)) + `)
		ORDER BY date, row_order, id`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(monthIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list transactions by %s: %w", column, err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// attachLines loads the line amounts for a batch of transactions in one
// query and stitches them onto the rows.
func (r *SQLiteRepository) attachLines(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	ids := make([]string, len(txs))
	index := make(map[string]int, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
		index[tx.ID] = i
	}

	query := `SELECT transaction_id, account_id, amount FROM transaction_amounts
		WHERE transaction_id IN (` + placeholders(len(ids)) + `)
		ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("list transaction amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txID, accountID, raw string
		)
		if err := rows.Scan(&txID, &accountID, &raw); err != nil {
			return fmt.Errorf("scan transaction amount: %w", err)
		}
		amount, err := scanDecimal(raw)
		if err != nil {
			return fmt.Errorf("parse transaction amount: %w", err)
		}
		i, ok := index[txID]
		if !ok {
			continue
		}
		txs[i].Lines = append(txs[i].Lines, core.LineAmount{AccountID: accountID, Amount: amount})
	}
	return rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- months ---

func (r *SQLiteRepository) ListAllMonths(ctx context.Context) ([]core.Month, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, year, month, label, is_closed FROM months
		 ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all months: %w", err)
	}
	defer rows.Close()
	return scanMonths(rows)
}

func (r *SQLiteRepository) GetMonth(ctx context.Context, id string) (core.Month, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, year, month, label, is_closed FROM months WHERE id = ?`, id)
	return scanMonth(row)
}

func (r *SQLiteRepository) GetMonthByYearMonth(ctx context.Context, year, month int) (core.Month, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, year, month, label, is_closed FROM months WHERE year = ? AND month = ?`,
		year, month)
	return scanMonth(row)
}

func (r *SQLiteRepository) CreateMonth(ctx context.Context, m core.Month, balances []core.OpeningBalance) (core.Month, error) {
	if err := m.Validate(); err != nil {
		return core.Month{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Label == "" {
		m.Label = core.DefaultLabel(m.Year, m.Month)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Month{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO months (id, year, month, label, is_closed) VALUES (?, ?, ?, ?, 0)`,
		m.ID, m.Year, m.Month, m.Label); err != nil {
		// concurrent creation of the same (year, month) hits the unique index
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Month{}, fmt.Errorf("month %d-%02d: %w", m.Year, m.Month, core.ErrMonthExists)
		}
		return core.Month{}, fmt.Errorf("insert month: %w", err)
	}

	for _, b := range balances {
		if b.Amount.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO opening_balances (month_id, account_id, amount) VALUES (?, ?, ?)`,
			m.ID, b.AccountID, b.Amount.String()); err != nil {
			return core.Month{}, fmt.Errorf("insert opening balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Month{}, fmt.Errorf("commit month: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) CloseMonth(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE months SET is_closed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("close month: %w", err)
	}
	return requireAffected(res)
}

// PreviousClosingBalances rolls the prior month's opening balances forward
// through that month's recorded line amounts, per active account. When no
// prior month exists every account starts at zero.
func (r *SQLiteRepository) PreviousClosingBalances(ctx context.Context, year, month int) ([]AccountBalance, error) {
	accounts, err := r.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	prevYear, prevMonth := year, month-1
	if prevMonth < 1 {
		prevYear, prevMonth = year-1, 12
	}

	balances := make([]AccountBalance, len(accounts))
	for i, a := range accounts {
		balances[i] = AccountBalance{AccountID: a.ID, AccountName: a.Name, Balance: decimal.Zero}
	}

	prev, err := r.GetMonthByYearMonth(ctx, prevYear, prevMonth)
	if errors.Is(err, core.ErrNotFound) {
		return balances, nil
	}
	if err != nil {
		return nil, err
	}

	openings, err := r.ListOpeningBalances(ctx, []string{prev.ID})
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string]decimal.Decimal, len(openings))
	for _, ob := range openings {
		byAccount[ob.AccountID] = ob.Amount
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ta.account_id, ta.amount
		 FROM transaction_amounts ta
		 JOIN transactions t ON t.id = ta.transaction_id
		 WHERE t.month_id = ?`, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("list prior month amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID, raw string
		if err := rows.Scan(&accountID, &raw); err != nil {
			return nil, fmt.Errorf("scan prior month amount: %w", err)
		}
		amount, err := scanDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("parse prior month amount: %w", err)
		}
		byAccount[accountID] = byAccount[accountID].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range balances {
		if b, ok := byAccount[balances[i].AccountID]; ok {
			balances[i].Balance = b
		}
	}
	return balances, nil
}

// --- accounts ---

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, is_active, allow_negative FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *SQLiteRepository) FindAccountByName(ctx context.Context, name string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, is_active, allow_negative FROM accounts
		 WHERE is_active = 1 AND name = ? COLLATE NOCASE`, name)

	var a core.Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Active, &a.AllowNegative)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("find account by name: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = core.AccountBank
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, type, is_active, allow_negative) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.Active, a.AllowNegative); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, is_active = ?, allow_negative = ? WHERE id = ?`,
		a.Name, a.Type, a.Active, a.AllowNegative, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

// --- categories ---

func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, name string, t core.TransactionType) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type FROM categories WHERE type = ? AND name = ? COLLATE NOCASE`,
		t, name)

	var c core.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category by name: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, type) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Type); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) ListSubcategories(ctx context.Context, categoryID string) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, name FROM subcategories WHERE category_id = ? ORDER BY name`,
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var subs []core.Subcategory
	for rows.Next() {
		var s core.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SQLiteRepository) CreateSubcategory(ctx context.Context, s core.Subcategory) (core.Subcategory, error) {
	if strings.TrimSpace(s.Name) == "" {
		return core.Subcategory{}, core.ErrEmptyName
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO subcategories (id, category_id, name) VALUES (?, ?, ?)`,
		s.ID, s.CategoryID, s.Name); err != nil {
		return core.Subcategory{}, fmt.Errorf("insert subcategory: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSubcategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return requireAffected(res)
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if err := r.requireOpenMonth(ctx, t.MonthID); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions
			(id, month_id, accrual_month_id, date, type, description, category_id, subcategory_id, row_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.MonthID, nullStr(t.AccrualMonthID), t.Date.String(), t.Type,
		t.Description, nullStr(t.CategoryID), nullStr(t.SubcategoryID), t.RowOrder); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	if err := insertLines(ctx, tx, t.ID, t.Lines); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return t.ID, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.requireOpenMonth(ctx, t.MonthID); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET month_id = ?, accrual_month_id = ?, date = ?, type = ?,
			description = ?, category_id = ?, subcategory_id = ?, row_order = ?
		 WHERE id = ?`,
		t.MonthID, nullStr(t.AccrualMonthID), t.Date.String(), t.Type,
		t.Description, nullStr(t.CategoryID), nullStr(t.SubcategoryID), t.RowOrder, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	// nil lines means keep the stored amounts; a non-nil slice replaces them
	if t.Lines != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transaction_amounts WHERE transaction_id = ?`, t.ID); err != nil {
			return fmt.Errorf("delete transaction amounts: %w", err)
		}
		if err := insertLines(ctx, tx, t.ID, t.Lines); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction update: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) requireOpenMonth(ctx context.Context, monthID string) error {
	m, err := r.GetMonth(ctx, monthID)
	if err != nil {
		return err
	}
	if m.Closed {
		return core.ErrMonthClosed
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, txID string, lines []core.LineAmount) error {
	for _, l := range lines {
		if l.Amount.IsZero() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_amounts (transaction_id, account_id, amount) VALUES (?, ?, ?)`,
			txID, l.AccountID, l.Amount.String()); err != nil {
			return fmt.Errorf("insert transaction amount: %w", err)
		}
	}
	return nil
}

// --- staging queue ---

func (r *SQLiteRepository) ListStaged(ctx context.Context) ([]core.StagedTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, type, amount, description, category_id, subcategory_id,
			tx_ref, source, status, created_at
		 FROM upload_transactions
		 WHERE status IN ('pending', 'approved')
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list staged transactions: %w", err)
	}
	defer rows.Close()

	var staged []core.StagedTransaction
	for rows.Next() {
		s, err := scanStaged(rows)
		if err != nil {
			return nil, err
		}
		staged = append(staged, s)
	}
	return staged, rows.Err()
}

func (r *SQLiteRepository) GetStaged(ctx context.Context, id string) (core.StagedTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, type, amount, description, category_id, subcategory_id,
			tx_ref, source, status, created_at
		 FROM upload_transactions WHERE id = ?`, id)
	if err != nil {
		return core.StagedTransaction{}, fmt.Errorf("get staged transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.StagedTransaction{}, err
		}
		return core.StagedTransaction{}, core.ErrNotFound
	}
	return scanStaged(rows)
}

// InsertStaged stores a candidate row. Rows carrying a TxRef already seen
// are treated as duplicates and the existing ID is returned unchanged.
func (r *SQLiteRepository) InsertStaged(ctx context.Context, s core.StagedTransaction) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	if s.TxRef != "" {
		var existing string
		err := r.db.QueryRowContext(ctx,
			`SELECT id FROM upload_transactions WHERE tx_ref = ?`, s.TxRef).Scan(&existing)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("check staged tx_ref: %w", err)
		}
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = core.StagedPending
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO upload_transactions
			(id, date, type, amount, description, category_id, subcategory_id, tx_ref, source, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Date.String(), s.Type, s.Amount.String(), s.Description,
		nullStr(s.CategoryID), nullStr(s.SubcategoryID), s.TxRef, s.Source, s.Status); err != nil {
		return "", fmt.Errorf("insert staged transaction: %w", err)
	}
	return s.ID, nil
}

// MarkStagedProcessed transitions a pending or approved row to processed.
// It reports false when the row was already processed or rejected, which
// makes approval idempotent under message redelivery.
func (r *SQLiteRepository) MarkStagedProcessed(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE upload_transactions SET status = 'processed'
		 WHERE id = ? AND status IN ('pending', 'approved')`, id)
	if err != nil {
		return false, fmt.Errorf("mark staged processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) RejectStaged(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE upload_transactions SET status = 'rejected'
		 WHERE id = ? AND status IN ('pending', 'approved')`, id)
	if err != nil {
		return fmt.Errorf("reject staged transaction: %w", err)
	}
	return requireAffected(res)
}

// --- scan helpers ---

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanMonth(row *sql.Row) (core.Month, error) {
	var m core.Month
	err := row.Scan(&m.ID, &m.Year, &m.Month, &m.Label, &m.Closed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, core.ErrNotFound
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("scan month: %w", err)
	}
	return m, nil
}

func scanMonths(rows *sql.Rows) ([]core.Month, error) {
	var months []core.Month
	for rows.Next() {
		var m core.Month
		if err := rows.Scan(&m.ID, &m.Year, &m.Month, &m.Label, &m.Closed); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func scanAccounts(rows *sql.Rows) ([]core.Account, error) {
	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Active, &a.AllowNegative); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var (
			t                     core.Transaction
			accrual, cat, subcat  sql.NullString
			date                  string
		)
		if err := rows.Scan(&t.ID, &t.MonthID, &accrual, &date, &t.Type,
			&t.Description, &cat, &subcat, &t.RowOrder); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsed, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		t.Date = parsed
		t.AccrualMonthID = strPtr(accrual)
		t.CategoryID = strPtr(cat)
		t.SubcategoryID = strPtr(subcat)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func scanStaged(rows *sql.Rows) (core.StagedTransaction, error) {
	var (
		s                  core.StagedTransaction
		date, raw, created string
		cat, subcat, ref   sql.NullString
	)
	if err := rows.Scan(&s.ID, &date, &s.Type, &raw, &s.Description,
		&cat, &subcat, &ref, &s.Source, &s.Status, &created); err != nil {
		return core.StagedTransaction{}, fmt.Errorf("scan staged transaction: %w", err)
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.StagedTransaction{}, fmt.Errorf("parse staged date: %w", err)
	}
	s.Date = parsed
	if s.Amount, err = scanDecimal(raw); err != nil {
		return core.StagedTransaction{}, fmt.Errorf("parse staged amount: %w", err)
	}
	s.CategoryID = strPtr(cat)
	s.SubcategoryID = strPtr(subcat)
	s.TxRef = ref.String
	s.CreatedAt = parseTimestamp(created)
	return s, nil
}

// parseTimestamp accepts the sqlite datetime('now') format and RFC 3339.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
