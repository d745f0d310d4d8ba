package session

import (
	"context"
	"fmt"
)

// Store persists one session blob per identity inside a namespace, plus a
// sentinel naming the identity that currently owns the namespace.
//
// A namespace belongs to one device: opening a session for another identity
// wipes it (see Acquire). Devices sharing a Redis server each need their own
// namespace.
type Store interface {
	// Owner returns the identity owning the namespace, or "" if unclaimed.
	Owner(ctx context.Context) (string, error)

	// Claim records userID as the namespace owner.
	Claim(ctx context.Context, userID string) error

	// Load retrieves the record of userID.
	// Returns nil if no record exists (not an error).
	Load(ctx context.Context, userID string) (*Record, error)

	// Save persists rec, last write wins. It sets CreatedAt on the first save,
	// refreshes UpdatedAt and increments Revision.
	Save(ctx context.Context, rec *Record) error

	// Delete removes the record of userID.
	Delete(ctx context.Context, userID string) error

	// Wipe removes every record and the owner sentinel of the namespace.
	Wipe(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}

// Eviction reasons reported by Acquire.
const (
	EvictedOwnerMismatch  = "owner_mismatch"
	EvictedSchemaMismatch = "schema_mismatch"
)

// Acquire claims the namespace for userID and returns its record, if any.
// When another identity owns the namespace everything is wiped first,
// including sessions other users left there; a
// record with another schema version or identity is deleted. evicted names
// the reason when something was discarded.
func Acquire(ctx context.Context, store Store, userID string) (rec *Record, evicted string, err error) {
	owner, err := store.Owner(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read session owner: %w", err)
	}
	if owner != "" && owner != userID {
		if err := store.Wipe(ctx); err != nil {
			return nil, "", fmt.Errorf("failed to wipe stale sessions: %w", err)
		}
		evicted = EvictedOwnerMismatch
	}
	if owner != userID {
		if err := store.Claim(ctx, userID); err != nil {
			return nil, "", fmt.Errorf("failed to claim session namespace: %w", err)
		}
	}

	rec, err = store.Load(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load session: %w", err)
	}
	if rec != nil && (rec.SchemaVersion != SchemaVersion || rec.UserID != userID) {
		if err := store.Delete(ctx, userID); err != nil {
			return nil, "", fmt.Errorf("failed to delete stale session: %w", err)
		}
		return nil, EvictedSchemaMismatch, nil
	}
	return rec, evicted, nil
}
