// Package storage provides the SQLite-backed budget store. Each budget is
// keyed by its scope hash; Save replaces every row of the scope inside one
// transaction so the stored state always matches the last full snapshot.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/store"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteStore struct {
	db *sql.DB
}

var _ store.BudgetStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, scope core.Scope) (*core.Budget, error) {
	return s.LoadKey(ctx, store.ScopeKey(scope))
}

func (s *SQLiteStore) Save(ctx context.Context, scope core.Scope, b *core.Budget) error {
	return s.SaveKey(ctx, store.ScopeKey(scope), b)
}

func (s *SQLiteStore) Delete(ctx context.Context, scope core.Scope) error {
	key := store.ScopeKey(scope)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE scope_key = ?", key); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget deleted from SQLite", "scope_key", key)
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT scope_key FROM budgets ORDER BY scope_key")
	if err != nil {
		return nil, fmt.Errorf("list budget keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan budget key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) LoadKey(ctx context.Context, key string) (*core.Budget, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM budgets WHERE scope_key = ?)", key).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check budget exists: %w", err)
	}
	if !exists {
		return core.NewDefaultBudget(), nil
	}

	b := &core.Budget{}
	if b.Accounts, err = s.loadAccounts(ctx, key); err != nil {
		return nil, err
	}
	if b.Cards, err = s.loadCards(ctx, key); err != nil {
		return nil, err
	}
	if b.Debts, err = s.loadDebts(ctx, key); err != nil {
		return nil, err
	}
	if b.Incomes, err = s.loadTransactions(ctx, key, "income"); err != nil {
		return nil, err
	}
	if b.Expenses, err = s.loadTransactions(ctx, key, "expense"); err != nil {
		return nil, err
	}
	if b.Goals, err = s.loadGoals(ctx, key); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLiteStore) SaveKey(ctx context.Context, key string, b *core.Budget) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM budgets WHERE scope_key = ?", key); err != nil {
		return fmt.Errorf("clear previous budget: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO budgets (scope_key, updated_at) VALUES (?, ?)",
		key, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert budget row: %w", err)
	}

	for i, a := range b.Accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (scope_key, position, name, type, balance_cents, rate)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key, i, a.Name, string(a.Type), a.Balance.Cents, a.Rate); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
	}
	for i, c := range b.Cards {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (scope_key, position, name, limit_cents, cut_day, pay_day, balance_cents, cashback)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key, i, c.Name, c.Limit.Cents, c.CutDay, c.PayDay, c.Balance.Cents, c.Cashback); err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
	}
	for i, d := range b.Debts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO debts (scope_key, position, name, balance_cents, rate, min_payment_cents)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key, i, d.Name, d.Balance.Cents, d.Rate, d.MinPayment.Cents); err != nil {
			return fmt.Errorf("insert debt: %w", err)
		}
	}
	if err := insertTransactions(ctx, tx, key, "income", b.Incomes); err != nil {
		return err
	}
	if err := insertTransactions(ctx, tx, key, "expense", b.Expenses); err != nil {
		return err
	}
	for i, g := range b.Goals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO goals (scope_key, position, name, target_cents, saved_cents, deadline)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			key, i, g.Name, g.Target.Cents, g.Saved.Cents, g.Deadline.Format(dateLayout)); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, key, kind string, txs []core.Transaction) error {
	for i, t := range txs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (scope_key, kind, position, date, amount_cents, category, subcategory, source, recurring)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key, kind, i, t.Date.Format(dateLayout), t.Amount.Cents,
			t.Category, t.Subcategory, t.Source, t.Recurring); err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadAccounts(ctx context.Context, key string) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, type, balance_cents, rate FROM accounts WHERE scope_key = ? ORDER BY position", key)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var typ string
		if err := rows.Scan(&a.Name, &typ, &a.Balance.Cents, &a.Rate); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) loadCards(ctx context.Context, key string) ([]core.CreditCard, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, limit_cents, cut_day, pay_day, balance_cents, cashback FROM cards WHERE scope_key = ? ORDER BY position", key)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		var c core.CreditCard
		if err := rows.Scan(&c.Name, &c.Limit.Cents, &c.CutDay, &c.PayDay, &c.Balance.Cents, &c.Cashback); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *SQLiteStore) loadDebts(ctx context.Context, key string) ([]core.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, balance_cents, rate, min_payment_cents FROM debts WHERE scope_key = ? ORDER BY position", key)
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	defer rows.Close()

	var debts []core.Debt
	for rows.Next() {
		var d core.Debt
		if err := rows.Scan(&d.Name, &d.Balance.Cents, &d.Rate, &d.MinPayment.Cents); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (s *SQLiteStore) loadTransactions(ctx context.Context, key, kind string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, amount_cents, category, subcategory, source, recurring
		 FROM transactions WHERE scope_key = ? AND kind = ? ORDER BY position`, key, kind)
	if err != nil {
		return nil, fmt.Errorf("load %ss: %w", kind, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		if err := rows.Scan(&date, &t.Amount.Cents, &t.Category, &t.Subcategory, &t.Source, &t.Recurring); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse %s date %q: %w", kind, date, err)
		}
		t.Date = core.DateOf(parsed)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) loadGoals(ctx context.Context, key string) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, target_cents, saved_cents, deadline FROM goals WHERE scope_key = ? ORDER BY position", key)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var g core.Goal
		var deadline string
		if err := rows.Scan(&g.Name, &g.Target.Cents, &g.Saved.Cents, &deadline); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		parsed, err := time.Parse(dateLayout, deadline)
		if err != nil {
			return nil, fmt.Errorf("parse goal deadline %q: %w", deadline, err)
		}
		g.Deadline = core.DateOf(parsed)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
