// Package store defines session persistence for the portfolio engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and single-node development).
//
// Every implementation validates snapshots on load: a structurally invalid
// session (negative shares, unknown bracket) is rejected with
// model.ErrInvalidSnapshot, never partially hydrated.
package store

import (
	"context"
	"errors"

	"github.com/timevest/engine/internal/model"
)

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = errors.New("store: session not found")

// Store is the persistence interface. Sessions are saved as complete
// snapshots — export always observes a fully settled state because the
// service commits only after an operation has fully applied.
type Store interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, s *model.Session) error

	// GetSession retrieves a session snapshot by ID.
	GetSession(ctx context.Context, id string) (*model.Session, error)

	// SaveSession overwrites a session snapshot.
	SaveSession(ctx context.Context, s *model.Session) error

	// DeleteSession removes a session. Deleting a missing session is not
	// an error.
	DeleteSession(ctx context.Context, id string) error
}
