package session

import (
	"encoding/json"
	"time"
)

// SchemaVersion tags every persisted record. A record carrying another
// version is evicted on load instead of being migrated.
const SchemaVersion = 1

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "onboarding"

// Record is the single persisted blob of one user's onboarding session.
//
// PERSISTED:
// - UserID: the identity owning the session
// - SchemaVersion: layout of Snapshot
// - Revision: incremented on every save, last write wins
// - CreatedAt, UpdatedAt: timestamps
// - Snapshot: the serialized state machine snapshot
type Record struct {
	UserID        string          `json:"user_id"`
	SchemaVersion int             `json:"schema_version"`
	Revision      int64           `json:"revision"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Snapshot      json.RawMessage `json:"snapshot"`
}

// Keys builds the storage keys of a namespace.
type Keys struct {
	Namespace string
}

// Owner is the sentinel key naming the identity that owns the namespace.
func (k Keys) Owner() string {
	return k.namespace() + ":owner"
}

// Session is the blob key of userID.
func (k Keys) Session(userID string) string {
	return k.SessionPrefix() + userID
}

// SessionPrefix is the common prefix of every blob key.
func (k Keys) SessionPrefix() string {
	return k.namespace() + ":session:"
}

func (k Keys) namespace() string {
	if k.Namespace == "" {
		return DefaultNamespace
	}
	return k.Namespace
}
