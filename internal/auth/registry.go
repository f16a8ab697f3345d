// Package auth holds credential storage and token handling. Usernames are
// hashed before they touch disk so the registry file reveals neither who is
// registered nor how many profiles they keep.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Registry stores bcrypt password hashes keyed by the one-way hash of the
// username. It persists to a single JSON file next to the budget data.
type Registry struct {
	mu    sync.Mutex
	path  string
	users map[string]string
}

func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	r := &Registry{
		path:  filepath.Join(dir, "users.json"),
		users: make(map[string]string),
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.users); err != nil {
		return nil, fmt.Errorf("decode user registry: %w", err)
	}
	return r, nil
}

// Register creates a new user. The username is case-sensitive and must not
// already be registered.
func (r *Registry) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := hashUsername(username)
	if _, ok := r.users[key]; ok {
		return ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	r.users[key] = string(hashed)
	if err := r.save(); err != nil {
		delete(r.users, key)
		return err
	}
	return nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (r *Registry) Authenticate(username, password string) error {
	r.mu.Lock()
	hash, ok := r.users[hashUsername(username)]
	r.mu.Unlock()

	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Exists reports whether the username is registered.
func (r *Registry) Exists(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[hashUsername(username)]
	return ok
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write user registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close user registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace user registry: %w", err)
	}
	return nil
}

func hashUsername(username string) string {
	sum := sha256.Sum256([]byte(username))
	return hex.EncodeToString(sum[:])
}
