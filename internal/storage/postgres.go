package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"caja/internal/core"
)

// PostgresRepository is the pgx-backed implementation of Store. Amounts are
// selected as text so decimal values never pass through float64.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// --- report.Store ---

func (r *PostgresRepository) ListActiveAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, type, is_active, allow_negative
		 FROM accounts WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()
	return pgScanAccounts(rows)
}

func (r *PostgresRepository) ListMonths(ctx context.Context, ids []string) ([]core.Month, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, year, month, label, is_closed FROM months WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()
	return pgScanMonths(rows)
}

func (r *PostgresRepository) ListOpeningBalances(ctx context.Context, monthIDs []string) ([]core.OpeningBalance, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT month_id, account_id, amount::text FROM opening_balances
		 WHERE month_id = ANY($1)`, monthIDs)
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
		if ob.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parse opening balance amount: %w", err)
		}
		balances = append(balances, ob)
	}
	return balances, rows.Err()
}

func (r *PostgresRepository) ListTransactionsByMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "month_id", monthIDs)
}

func (r *PostgresRepository) ListTransactionsByAccrualMonth(ctx context.Context, monthIDs []string) ([]core.Transaction, error) {
	return r.listTransactions(ctx, "accrual_month_id", monthIDs)
}

func (r *PostgresRepository) listTransactions(ctx context.Context, column string, monthIDs []string) ([]core.Transaction, error) {
	if len(monthIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id, month_id, accrual_month_id, date, type, description,
			category_id, subcategory_id, row_order
		FROM transactions
		WHERE ` + column + ` = ANY($1)
		ORDER BY date, row_order, id`
	rows, err := r.pool.Query(ctx, query, monthIDs)
	if err != nil {
		return nil, fmt.Errorf("list transactions by %s: %w", column, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			date time.Time
		)
		if err := rows.Scan(&t.ID, &t.MonthID, &t.AccrualMonthID, &date, &t.Type,
			&t.Description, &t.CategoryID, &t.SubcategoryID, &t.RowOrder); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = core.Date{Time: date}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachLines(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *PostgresRepository) attachLines(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	ids := make([]string, len(txs))
	index := make(map[string]int, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
		index[tx.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT transaction_id, account_id, amount::text FROM transaction_amounts
		 WHERE transaction_id = ANY($1) ORDER BY ctid`, ids)
	if err != nil {
		return fmt.Errorf("list transaction amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txID, accountID, raw string
		if err := rows.Scan(&txID, &accountID, &raw); err != nil {
			return fmt.Errorf("scan transaction amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
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

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, type FROM categories ORDER BY name`)
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

func (r *PostgresRepository) ListAllMonths(ctx context.Context) ([]core.Month, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, year, month, label, is_closed FROM months
		 ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all months: %w", err)
	}
	defer rows.Close()
	return pgScanMonths(rows)
}

func (r *PostgresRepository) GetMonth(ctx context.Context, id string) (core.Month, error) {
	var m core.Month
	err := r.pool.QueryRow(ctx,
		`SELECT id, year, month, label, is_closed FROM months WHERE id = $1`, id).
		Scan(&m.ID, &m.Year, &m.Month, &m.Label, &m.Closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Month{}, core.ErrNotFound
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetMonthByYearMonth(ctx context.Context, year, month int) (core.Month, error) {
	var m core.Month
	err := r.pool.QueryRow(ctx,
		`SELECT id, year, month, label, is_closed FROM months WHERE year = $1 AND month = $2`,
		year, month).
		Scan(&m.ID, &m.Year, &m.Month, &m.Label, &m.Closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Month{}, core.ErrNotFound
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month by year/month: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) CreateMonth(ctx context.Context, m core.Month, balances []core.OpeningBalance) (core.Month, error) {
	if err := m.Validate(); err != nil {
		return core.Month{}, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Label == "" {
		m.Label = core.DefaultLabel(m.Year, m.Month)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.Month{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO months (id, year, month, label, is_closed) VALUES ($1, $2, $3, $4, FALSE)`,
		m.ID, m.Year, m.Month, m.Label); err != nil {
		// concurrent creation of the same (year, month) hits the unique index
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.Month{}, fmt.Errorf("month %d-%02d: %w", m.Year, m.Month, core.ErrMonthExists)
		}
		return core.Month{}, fmt.Errorf("insert month: %w", err)
	}

	for _, b := range balances {
		if b.Amount.IsZero() {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO opening_balances (month_id, account_id, amount) VALUES ($1, $2, $3::numeric)`,
			m.ID, b.AccountID, b.Amount.String()); err != nil {
			return core.Month{}, fmt.Errorf("insert opening balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return core.Month{}, fmt.Errorf("commit month: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) CloseMonth(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE months SET is_closed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("close month: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) PreviousClosingBalances(ctx context.Context, year, month int) ([]AccountBalance, error) {
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

	rows, err := r.pool.Query(ctx,
		`SELECT ta.account_id, ta.amount::text
		 FROM transaction_amounts ta
		 JOIN transactions t ON t.id = ta.transaction_id
		 WHERE t.month_id = $1`, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("list prior month amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID, raw string
		if err := rows.Scan(&accountID, &raw); err != nil {
			return nil, fmt.Errorf("scan prior month amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
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

func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, type, is_active, allow_negative FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	return pgScanAccounts(rows)
}

func (r *PostgresRepository) FindAccountByName(ctx context.Context, name string) (core.Account, error) {
	var a core.Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, type, is_active, allow_negative FROM accounts
		 WHERE is_active AND lower(name) = lower($1)`, name).
		Scan(&a.ID, &a.Name, &a.Type, &a.Active, &a.AllowNegative)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("find account by name: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Type == "" {
		a.Type = core.AccountBank
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, name, type, is_active, allow_negative) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Name, a.Type, a.Active, a.AllowNegative); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET name = $1, type = $2, is_active = $3, allow_negative = $4 WHERE id = $5`,
		a.Name, a.Type, a.Active, a.AllowNegative, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteAccount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- categories ---

func (r *PostgresRepository) FindCategoryByName(ctx context.Context, name string, t core.TransactionType) (core.Category, error) {
	var c core.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, type FROM categories WHERE type = $1 AND lower(name) = lower($2)`,
		t, name).
		Scan(&c.ID, &c.Name, &c.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category by name: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, type) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.Type); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListSubcategories(ctx context.Context, categoryID string) ([]core.Subcategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name FROM subcategories WHERE category_id = $1 ORDER BY name`,
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

func (r *PostgresRepository) CreateSubcategory(ctx context.Context, s core.Subcategory) (core.Subcategory, error) {
	if strings.TrimSpace(s.Name) == "" {
		return core.Subcategory{}, core.ErrEmptyName
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO subcategories (id, category_id, name) VALUES ($1, $2, $3)`,
		s.ID, s.CategoryID, s.Name); err != nil {
		return core.Subcategory{}, fmt.Errorf("insert subcategory: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) DeleteSubcategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- transactions ---

func (r *PostgresRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if err := r.requireOpenMonth(ctx, t.MonthID); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions
			(id, month_id, accrual_month_id, date, type, description, category_id, subcategory_id, row_order)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.MonthID, t.AccrualMonthID, t.Date.Time, t.Type,
		t.Description, t.CategoryID, t.SubcategoryID, t.RowOrder); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	for _, l := range t.Lines {
		if l.Amount.IsZero() {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO transaction_amounts (transaction_id, account_id, amount) VALUES ($1, $2, $3::numeric)`,
			t.ID, l.AccountID, l.Amount.String()); err != nil {
			return "", fmt.Errorf("insert transaction amount: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return t.ID, nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.requireOpenMonth(ctx, t.MonthID); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE transactions SET month_id = $1, accrual_month_id = $2, date = $3, type = $4,
			description = $5, category_id = $6, subcategory_id = $7, row_order = $8
		 WHERE id = $9`,
		t.MonthID, t.AccrualMonthID, t.Date.Time, t.Type,
		t.Description, t.CategoryID, t.SubcategoryID, t.RowOrder, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if t.Lines != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM transaction_amounts WHERE transaction_id = $1`, t.ID); err != nil {
			return fmt.Errorf("delete transaction amounts: %w", err)
		}
		for _, l := range t.Lines {
			if l.Amount.IsZero() {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO transaction_amounts (transaction_id, account_id, amount) VALUES ($1, $2, $3::numeric)`,
				t.ID, l.AccountID, l.Amount.String()); err != nil {
				return fmt.Errorf("insert transaction amount: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction update: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) requireOpenMonth(ctx context.Context, monthID string) error {
	m, err := r.GetMonth(ctx, monthID)
	if err != nil {
		return err
	}
	if m.Closed {
		return core.ErrMonthClosed
	}
	return nil
}

// --- staging queue ---

func (r *PostgresRepository) ListStaged(ctx context.Context) ([]core.StagedTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, date, type, amount::text, description, category_id, subcategory_id,
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
		s, err := pgScanStaged(rows)
		if err != nil {
			return nil, err
		}
		staged = append(staged, s)
	}
	return staged, rows.Err()
}

func (r *PostgresRepository) GetStaged(ctx context.Context, id string) (core.StagedTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, date, type, amount::text, description, category_id, subcategory_id,
			tx_ref, source, status, created_at
		 FROM upload_transactions WHERE id = $1`, id)
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
	return pgScanStaged(rows)
}

func (r *PostgresRepository) InsertStaged(ctx context.Context, s core.StagedTransaction) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	if s.TxRef != "" {
		var existing string
		err := r.pool.QueryRow(ctx,
			`SELECT id FROM upload_transactions WHERE tx_ref = $1`, s.TxRef).Scan(&existing)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("check staged tx_ref: %w", err)
		}
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = core.StagedPending
	}

	if _, err := r.pool.Exec(ctx,
		`INSERT INTO upload_transactions
			(id, date, type, amount, description, category_id, subcategory_id, tx_ref, source, status)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Date.Time, s.Type, s.Amount.String(), s.Description,
		s.CategoryID, s.SubcategoryID, s.TxRef, s.Source, s.Status); err != nil {
		return "", fmt.Errorf("insert staged transaction: %w", err)
	}
	return s.ID, nil
}

func (r *PostgresRepository) MarkStagedProcessed(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE upload_transactions SET status = 'processed'
		 WHERE id = $1 AND status IN ('pending', 'approved')`, id)
	if err != nil {
		return false, fmt.Errorf("mark staged processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RejectStaged(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE upload_transactions SET status = 'rejected'
		 WHERE id = $1 AND status IN ('pending', 'approved')`, id)
	if err != nil {
		return fmt.Errorf("reject staged transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- scan helpers ---

func pgScanMonths(rows pgx.Rows) ([]core.Month, error) {
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

func pgScanAccounts(rows pgx.Rows) ([]core.Account, error) {
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

func pgScanStaged(rows pgx.Rows) (core.StagedTransaction, error) {
	var (
		s    core.StagedTransaction
		date time.Time
		raw  string
		ref  *string
	)
	if err := rows.Scan(&s.ID, &date, &s.Type, &raw, &s.Description,
		&s.CategoryID, &s.SubcategoryID, &ref, &s.Source, &s.Status, &s.CreatedAt); err != nil {
		return core.StagedTransaction{}, fmt.Errorf("scan staged transaction: %w", err)
	}
	s.Date = core.Date{Time: date}
	var err error
	if s.Amount, err = decimal.NewFromString(raw); err != nil {
		return core.StagedTransaction{}, fmt.Errorf("parse staged amount: %w", err)
	}
	if ref != nil {
		s.TxRef = *ref
	}
	return s, nil
}
