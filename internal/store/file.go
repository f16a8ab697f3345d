package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"presupuesto/internal/core"
)

// FileStore persists one JSON document per scope under a data directory.
// File names are the opaque scope keys, matching the layout of the legacy
// tracker so existing data directories keep working.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Load(ctx context.Context, scope core.Scope) (*core.Budget, error) {
	return s.LoadKey(ctx, ScopeKey(scope))
}

func (s *FileStore) Save(ctx context.Context, scope core.Scope, b *core.Budget) error {
	return s.SaveKey(ctx, ScopeKey(scope), b)
}

// Delete removes the scope's stored budget. Deleting a scope that was never
// saved is not an error.
func (s *FileStore) Delete(_ context.Context, scope core.Scope) error {
	err := os.Remove(s.path(ScopeKey(scope)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete budget file: %w", err)
	}
	return nil
}

// Keys lists the opaque keys of every stored budget.
func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		// Budget files are "<hash>__<hash>"; skips the user registry and
		// anything else living in the directory.
		if !strings.Contains(key, "__") {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *FileStore) LoadKey(ctx context.Context, key string) (*core.Budget, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return core.NewDefaultBudget(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read budget file: %w", err)
	}
	b, err := decodeBudget(data)
	if err != nil {
		return nil, fmt.Errorf("decode budget %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Budget loaded",
		"key", key,
		"incomes", len(b.Incomes),
		"expenses", len(b.Expenses))
	return b, nil
}

// SaveKey writes the budget atomically: a failed write leaves the previous
// file untouched.
func (s *FileStore) SaveKey(_ context.Context, key string, b *core.Budget) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode budget: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write budget file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close budget file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace budget file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// diskTransaction accepts the legacy "account" field as an alias of
// "source".
type diskTransaction struct {
	core.Transaction
	Account string `json:"account"`
}

// diskGoal tolerates legacy goal records with missing fields.
type diskGoal struct {
	Name     *string     `json:"name"`
	Target   *core.Money `json:"target"`
	Deadline *core.Date  `json:"deadline"`
	Saved    *core.Money `json:"saved"`
}

type diskBudget struct {
	Accounts []core.Account    `json:"accounts"`
	Cards    []core.CreditCard `json:"cards"`
	Debts    []core.Debt       `json:"debts"`
	Incomes  []diskTransaction `json:"incomes"`
	Expenses []diskTransaction `json:"expenses"`
	Goals    []diskGoal        `json:"goals"`
}

func decodeBudget(data []byte) (*core.Budget, error) {
	var d diskBudget
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	b := &core.Budget{
		Accounts: d.Accounts,
		Cards:    d.Cards,
		Debts:    d.Debts,
		Incomes:  liftTransactions(d.Incomes),
		Expenses: liftTransactions(d.Expenses),
	}
	for i := range b.Cards {
		b.Cards[i].Normalize()
	}
	for i, g := range d.Goals {
		b.Goals = append(b.Goals, liftGoal(g, i))
	}
	return b, nil
}

func liftTransactions(in []diskTransaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(in))
	for _, dt := range in {
		t := dt.Transaction
		if t.Source == "" && dt.Account != "" {
			t.Source = dt.Account
		}
		out = append(out, t)
	}
	return out
}

func liftGoal(g diskGoal, index int) core.Goal {
	goal := core.Goal{Name: fmt.Sprintf("Goal %d", index+1)}
	if g.Name != nil && *g.Name != "" {
		goal.Name = *g.Name
	}
	if g.Target != nil {
		goal.Target = *g.Target
	}
	if g.Saved != nil {
		goal.Saved = *g.Saved
	}
	if g.Deadline != nil && !g.Deadline.IsZero() {
		goal.Deadline = *g.Deadline
	} else {
		goal.Deadline = core.DateOf(time.Now().AddDate(1, 0, 0))
	}
	return goal
}
