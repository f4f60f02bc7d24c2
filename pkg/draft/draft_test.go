package draft_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunari/blunari-backend/pkg/draft"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(key string) ([]byte, error) {
	return s.data[key], nil
}

func (s *memStore) Set(key string, value []byte) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	delete(s.data, key)
	return nil
}

type wizardState struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Step int    `json:"step"`
}

func TestManager_SaveAndRestore(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	saved := wizardState{Name: "Joe's Pizza", Slug: "joes-pizza", Step: 2}
	require.NoError(t, m.Save(saved))

	var restored wizardState
	savedAt, err := m.Restore(&restored)
	require.NoError(t, err)

	assert.Equal(t, saved, restored)
	assert.WithinDuration(t, time.Now(), savedAt, time.Minute)
}

func TestManager_Restore_Empty(t *testing.T) {
	m := draft.NewManager(newMemStore())

	var restored wizardState
	_, err := m.Restore(&restored)
	assert.ErrorIs(t, err, draft.ErrNoDraft)
}

func TestManager_Restore_Expired(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	snap := draft.Snapshot{
		SchemaVersion: draft.SchemaVersion,
		Payload:       json.RawMessage(`{"name":"Old"}`),
		SavedAt:       time.Now().Add(-25 * time.Hour),
		ExpiresAt:     time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, store.Set(draft.Key, data))

	var restored wizardState
	_, err = m.Restore(&restored)
	assert.ErrorIs(t, err, draft.ErrNoDraft)
	assert.Empty(t, store.data, "expired draft must be deleted")
}

func TestManager_Restore_SchemaMismatch(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	snap := draft.Snapshot{
		SchemaVersion: draft.SchemaVersion - 1,
		Payload:       json.RawMessage(`{"name":"Stale"}`),
		SavedAt:       time.Now(),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, store.Set(draft.Key, data))

	var restored wizardState
	_, err = m.Restore(&restored)
	assert.ErrorIs(t, err, draft.ErrNoDraft)
	assert.Empty(t, store.data, "mismatched draft must be deleted")
}

func TestManager_Restore_Corrupt(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	require.NoError(t, store.Set(draft.Key, []byte("{not json")))

	var restored wizardState
	_, err := m.Restore(&restored)
	assert.ErrorIs(t, err, draft.ErrNoDraft)
}

func TestManager_SaveOverwrites(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	require.NoError(t, m.Save(wizardState{Name: "First"}))
	require.NoError(t, m.Save(wizardState{Name: "Second"}))

	var restored wizardState
	_, err := m.Restore(&restored)
	require.NoError(t, err)
	assert.Equal(t, "Second", restored.Name)
}

func TestManager_Discard(t *testing.T) {
	store := newMemStore()
	m := draft.NewManager(store)

	require.NoError(t, m.Save(wizardState{Name: "Gone"}))
	require.NoError(t, m.Discard())

	var restored wizardState
	_, err := m.Restore(&restored)
	assert.ErrorIs(t, err, draft.ErrNoDraft)
}
