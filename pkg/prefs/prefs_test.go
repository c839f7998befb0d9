package prefs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

func newTestPrefs(t *testing.T) *Prefs {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestKillSwitchDefaultsInactive(t *testing.T) {
	p := newTestPrefs(t)

	active, err := p.KillSwitchActive()
	require.NoError(t, err)
	assert.False(t, active)
}

func TestKillSwitchRoundTrip(t *testing.T) {
	p := newTestPrefs(t)

	require.NoError(t, p.SetKillSwitch(true))
	active, err := p.KillSwitchActive()
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, p.SetKillSwitch(false))
	active, err = p.KillSwitchActive()
	require.NoError(t, err)
	assert.False(t, active)
}

func TestAutonomyLevelDefault(t *testing.T) {
	p := newTestPrefs(t)

	level, err := p.AutonomyLevel()
	require.NoError(t, err)
	assert.Equal(t, types.AutonomyActAndReport, level)
}

func TestAutonomyLevelRoundTrip(t *testing.T) {
	p := newTestPrefs(t)

	require.NoError(t, p.SetAutonomyLevel(types.AutonomyObserve))
	level, err := p.AutonomyLevel()
	require.NoError(t, err)
	assert.Equal(t, types.AutonomyObserve, level)
}

func TestSetAutonomyLevelRejectsOutOfRange(t *testing.T) {
	p := newTestPrefs(t)

	assert.Error(t, p.SetAutonomyLevel(types.AutonomyLevel(5)))
	assert.Error(t, p.SetAutonomyLevel(types.AutonomyLevel(-1)))
}

func TestCorruptAutonomyValueFallsBack(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SetPreference("autonomy.level", "banana"))

	p := New(store)
	level, err := p.AutonomyLevel()
	require.NoError(t, err)
	assert.Equal(t, DefaultAutonomyLevel, level)
}

type brokenStore struct {
	storage.Store
}

func (b *brokenStore) GetPreference(key string) (string, bool, error) {
	return "", false, errors.New("database closed")
}

// TestFailSafeDefaults: an unreachable store reads as kill switch active
// and a conservative autonomy level, with the error surfaced
func TestFailSafeDefaults(t *testing.T) {
	p := New(&brokenStore{})

	active, err := p.KillSwitchActive()
	assert.Error(t, err)
	assert.True(t, active, "kill switch must fail safe to active")

	level, err := p.AutonomyLevel()
	assert.Error(t, err)
	assert.Equal(t, DefaultAutonomyLevel, level)
}
