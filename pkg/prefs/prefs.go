// Package prefs exposes typed accessors over the preference store for the
// two operator-controlled settings: the kill switch and the autonomy level.
package prefs

import (
	"fmt"
	"strconv"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

const (
	keyKillSwitch    = "killswitch.active"
	keyAutonomyLevel = "autonomy.level"
)

// DefaultAutonomyLevel applies when the operator has never set a level
const DefaultAutonomyLevel = types.AutonomyActAndReport

// Prefs wraps a storage.Store with typed preference accessors
type Prefs struct {
	store storage.Store
}

// New creates a preference accessor backed by the given store
func New(store storage.Store) *Prefs {
	return &Prefs{store: store}
}

// KillSwitchActive reads the kill switch. An error means the store is
// unreachable; callers must fail safe and treat the switch as active.
func (p *Prefs) KillSwitchActive() (bool, error) {
	value, found, err := p.store.GetPreference(keyKillSwitch)
	if err != nil {
		return true, fmt.Errorf("failed to read kill switch: %w", err)
	}
	if !found {
		return false, nil
	}
	return value == "true", nil
}

// SetKillSwitch persists the kill switch state
func (p *Prefs) SetKillSwitch(active bool) error {
	return p.store.SetPreference(keyKillSwitch, strconv.FormatBool(active))
}

// AutonomyLevel reads the operator-set autonomy level. On a store error
// or a corrupt value the conservative default (act-and-report) applies.
func (p *Prefs) AutonomyLevel() (types.AutonomyLevel, error) {
	value, found, err := p.store.GetPreference(keyAutonomyLevel)
	if err != nil {
		return DefaultAutonomyLevel, fmt.Errorf("failed to read autonomy level: %w", err)
	}
	if !found {
		return DefaultAutonomyLevel, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || !types.AutonomyLevel(n).Valid() {
		return DefaultAutonomyLevel, nil
	}
	return types.AutonomyLevel(n), nil
}

// SetAutonomyLevel persists the autonomy level after range-checking it
func (p *Prefs) SetAutonomyLevel(level types.AutonomyLevel) error {
	if !level.Valid() {
		return fmt.Errorf("autonomy level out of range: %d", level)
	}
	return p.store.SetPreference(keyAutonomyLevel, strconv.Itoa(int(level)))
}
