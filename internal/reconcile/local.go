package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/models"
)

// LocalStore holds the guest cart on the shopper's side. It has no owner and
// is never visible to the server until it is merged.
type LocalStore interface {
	Load(ctx context.Context) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context) error
}

// MemoryLocalStore keeps the guest cart for the lifetime of the process.
type MemoryLocalStore struct {
	mu   sync.Mutex
	cart *models.Cart
}

// NewMemoryLocalStore returns an empty in-memory guest cart.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{}
}

// Load returns a copy of the guest cart, empty when none was saved.
func (s *MemoryLocalStore) Load(ctx context.Context) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return models.NewCart(""), nil
	}
	return s.cart.Clone(), nil
}

// Save replaces the guest cart.
func (s *MemoryLocalStore) Save(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart.Clone()
	return nil
}

// Clear forgets the guest cart.
func (s *MemoryLocalStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	return nil
}

// FileLocalStore persists the guest cart as a JSON document so it survives
// restarts of the client.
type FileLocalStore struct {
	mu   sync.Mutex
	path string
}

// NewFileLocalStore keeps the guest cart at path.
func NewFileLocalStore(path string) *FileLocalStore {
	return &FileLocalStore{path: path}
}

// Load reads the guest cart. A missing file is an empty cart. Repeated
// product lines are folded and non-positive lines dropped.
func (s *FileLocalStore) Load(ctx context.Context) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.NewCart(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read guest cart: %w", err)
	}

	cart := models.NewCart("")
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("decode guest cart: %w", err)
	}
	cart.UserID = ""
	cart.Normalize()
	return cart, nil
}

// Save writes the cart through a temporary file and renames it into place.
func (s *FileLocalStore) Save(ctx context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(cart, "", "  ")
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create guest cart dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write guest cart: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the cart file. Removing a missing file is not an error.
func (s *FileLocalStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove guest cart: %w", err)
	}
	return nil
}
