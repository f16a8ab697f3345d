// Package store defines the persistence contract for budgets and provides
// the JSON-file implementation that backs the tracker by default.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"presupuesto/internal/core"
)

// BudgetStore is the persistence adapter for per-scope budgets.
//
// Load returns a default-initialized budget when the scope has no stored
// state. Save persists the full budget; each mutation is a synchronous
// load-modify-save cycle, so the later of two concurrent writers wins.
//
// The Key methods operate on opaque storage keys so that background workers
// can walk every stored budget without recovering user identities.
type BudgetStore interface {
	Load(ctx context.Context, scope core.Scope) (*core.Budget, error)
	Save(ctx context.Context, scope core.Scope, b *core.Budget) error
	Delete(ctx context.Context, scope core.Scope) error

	Keys(ctx context.Context) ([]string, error)
	LoadKey(ctx context.Context, key string) (*core.Budget, error)
	SaveKey(ctx context.Context, key string, b *core.Budget) error

	Close() error
}

// ScopeKey derives the storage key for a (user, profile) pair. Both parts
// are hashed one way so the identity of the pair is not recoverable from
// the key alone.
func ScopeKey(scope core.Scope) string {
	return hashHex(scope.User) + "__" + hashHex(scope.Profile)
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
