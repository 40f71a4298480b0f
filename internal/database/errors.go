package database

import (
	"errors"
	"fmt"

	"github.com/nexboard/module_layer/internal/app/storage"
)

// ErrInvalidInput marks caller mistakes: empty IDs, nil repositories.
var ErrInvalidInput = errors.New("invalid input")

// ErrDatabaseError marks infrastructure failures against Supabase.
var ErrDatabaseError = errors.New("database error")

// NewNotFoundError builds an absence error for one entity. It wraps
// storage.ErrNotFound so callers anywhere in the module can test it with
// storage.IsNotFound.
func NewNotFoundError(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, storage.ErrNotFound)
}

// IsNotFound reports whether err means the requested row is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
