package draft

import (
	"encoding/json"
	"errors"
	"time"
)

// SchemaVersion is bumped whenever the wizard payload shape changes. A saved
// draft from an older version is discarded rather than migrated.
const SchemaVersion = 2

// TTL is how long a saved draft stays restorable.
const TTL = 24 * time.Hour

// Key is the fixed storage key drafts live under. One draft per admin; saving
// overwrites the previous one.
const Key = "provisioning:draft"

// ErrNoDraft is returned when no restorable draft exists: nothing saved,
// schema version mismatch, expiry, or corruption. Callers treat all of these
// as "start fresh".
var ErrNoDraft = errors.New("no restorable draft")

// Snapshot is the stored envelope around a wizard draft.
type Snapshot struct {
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
	SavedAt       time.Time       `json:"savedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// Store is the key-value storage drafts persist to.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Manager saves and restores wizard drafts against a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a draft manager
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Save snapshots the given payload under the fixed key, stamped with the
// current schema version and expiry.
func (m *Manager) Save(payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	now := m.now()
	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		Payload:       raw,
		SavedAt:       now,
		ExpiresAt:     now.Add(TTL),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return m.store.Set(Key, data)
}

// Restore loads the saved draft into payload. A missing, expired, corrupt, or
// version-mismatched draft returns ErrNoDraft and is deleted so it is never
// offered again.
func (m *Manager) Restore(payload interface{}) (time.Time, error) {
	data, err := m.store.Get(Key)
	if err != nil || len(data) == 0 {
		return time.Time{}, ErrNoDraft
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.store.Delete(Key)
		return time.Time{}, ErrNoDraft
	}

	if snap.SchemaVersion != SchemaVersion || !m.now().Before(snap.ExpiresAt) {
		m.store.Delete(Key)
		return time.Time{}, ErrNoDraft
	}

	if err := json.Unmarshal(snap.Payload, payload); err != nil {
		m.store.Delete(Key)
		return time.Time{}, ErrNoDraft
	}

	return snap.SavedAt, nil
}

// Discard removes any saved draft.
func (m *Manager) Discard() error {
	return m.store.Delete(Key)
}
