package guardrail

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/runbook"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

func testIncident(key string) types.Incident {
	return types.Incident{
		ID:            "inc-1",
		Key:           key,
		ConditionType: types.ConditionVMStopped,
		TargetID:      "vm-1",
	}
}

func testRunbook() *runbook.Runbook {
	return &runbook.Runbook{
		ID:               "rb-vm-restart",
		Trigger:          types.ConditionVMStopped,
		MinAutonomyLevel: types.AutonomyActAndReport,
		Action:           "vm.start",
	}
}

func newTestChain(t *testing.T) (*Chain, *prefs.Prefs, *RateLimiter, *BlastRadius) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := prefs.New(store)
	require.NoError(t, p.SetAutonomyLevel(types.AutonomyActAndReport))

	limiter := NewRateLimiter(3, time.Hour)
	blast := NewBlastRadius(10 * time.Minute)
	return NewChain(p, limiter, blast), p, limiter, blast
}

// TestKillSwitchBlocksEverything: an active kill switch blocks regardless
// of every other guardrail's state
func TestKillSwitchBlocksEverything(t *testing.T) {
	chain, p, limiter, blast := newTestChain(t)
	require.NoError(t, p.SetKillSwitch(true))

	// Make every other guardrail passing
	require.True(t, limiter.Allow("vm-stopped:vm-1"))
	require.False(t, blast.Busy())

	res := chain.CheckAll(testIncident("vm-stopped:vm-1"), testRunbook())
	assert.False(t, res.Allowed)
	assert.Equal(t, GuardrailKillSwitch, res.Guardrail)

	// Switch off: the chain passes again
	require.NoError(t, p.SetKillSwitch(false))
	res = chain.CheckAll(testIncident("vm-stopped:vm-1"), testRunbook())
	assert.True(t, res.Allowed)
}

type failingStore struct {
	storage.Store
}

func (f *failingStore) GetPreference(key string) (string, bool, error) {
	return "", false, errors.New("database closed")
}

// TestKillSwitchFailsSafe: an unreadable preference store blocks as if the
// switch were active
func TestKillSwitchFailsSafe(t *testing.T) {
	p := prefs.New(&failingStore{})
	chain := NewChain(p, NewRateLimiter(3, time.Hour), NewBlastRadius(10*time.Minute))

	res := chain.CheckKillSwitch()
	assert.False(t, res.Allowed)
	assert.Equal(t, GuardrailKillSwitch, res.Guardrail)
	assert.Contains(t, res.Reason, "failing safe")
}

// TestRateLimitBlocksFourthAttempt covers the K=3 window: after three
// recorded attempts the chain blocks with a rate-limit reason
func TestRateLimitBlocksFourthAttempt(t *testing.T) {
	chain, _, limiter, _ := newTestChain(t)
	key := "vm-stopped:vm-1"

	for i := 0; i < 3; i++ {
		res := chain.CheckAll(testIncident(key), testRunbook())
		require.True(t, res.Allowed, "attempt %d should pass", i+1)
		limiter.Record(key)
	}

	res := chain.CheckAll(testIncident(key), testRunbook())
	assert.False(t, res.Allowed)
	assert.Equal(t, GuardrailRateLimit, res.Guardrail)
	assert.Contains(t, res.Reason, "escalating")
}

func TestRateLimitWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(3, time.Hour)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	key := "vm-stopped:vm-1"
	for i := 0; i < 3; i++ {
		limiter.Record(key)
	}
	assert.False(t, limiter.Allow(key))

	// 61 minutes later the window has passed
	current = current.Add(61 * time.Minute)
	assert.True(t, limiter.Allow(key))
	assert.Equal(t, 0, limiter.Attempts(key))
}

func TestMarkEscalatedOncePerWindow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Hour)
	current := time.Now()
	limiter.now = func() time.Time { return current }

	assert.True(t, limiter.MarkEscalated("k"))
	assert.False(t, limiter.MarkEscalated("k"))
	assert.False(t, limiter.MarkEscalated("k"))

	// A fresh window allows a fresh escalation
	current = current.Add(2 * time.Hour)
	assert.True(t, limiter.MarkEscalated("k"))
}

// TestBlastRadiusSerializesFleet: remediation active on X blocks incidents
// on any other target Y until released
func TestBlastRadiusSerializesFleet(t *testing.T) {
	chain, _, _, blast := newTestChain(t)

	require.True(t, blast.Acquire("vm-x"))

	incidentY := types.Incident{
		Key:           "vm-stopped:vm-y",
		ConditionType: types.ConditionVMStopped,
		TargetID:      "vm-y",
	}
	res := chain.CheckAll(incidentY, testRunbook())
	assert.False(t, res.Allowed)
	assert.Equal(t, GuardrailBlastRadius, res.Guardrail)

	// A second acquire on any target fails while one is held
	assert.False(t, blast.Acquire("vm-y"))
	assert.False(t, blast.Acquire("vm-x"))

	blast.Release("vm-x")
	res = chain.CheckAll(incidentY, testRunbook())
	assert.True(t, res.Allowed)
	assert.True(t, blast.Acquire("vm-y"))
}

func TestBlastRadiusStaleEntryForceCleared(t *testing.T) {
	blast := NewBlastRadius(10 * time.Minute)
	current := time.Now()
	blast.now = func() time.Time { return current }

	require.True(t, blast.Acquire("vm-x"))
	assert.True(t, blast.Busy())

	// 11 minutes later the stuck entry no longer deadlocks the fleet
	current = current.Add(11 * time.Minute)
	assert.False(t, blast.Busy())
	assert.True(t, blast.Acquire("vm-y"))
}

func TestAutonomyLevelBlocks(t *testing.T) {
	chain, p, _, _ := newTestChain(t)
	require.NoError(t, p.SetAutonomyLevel(types.AutonomyRecommend))

	res := chain.CheckAll(testIncident("vm-stopped:vm-1"), testRunbook())
	assert.False(t, res.Allowed)
	assert.Equal(t, GuardrailAutonomy, res.Guardrail)

	require.NoError(t, p.SetAutonomyLevel(types.AutonomyActSilently))
	res = chain.CheckAll(testIncident("vm-stopped:vm-1"), testRunbook())
	assert.True(t, res.Allowed)
}

// TestRehydrateFromAuditLog: a restart must not forget attempts recorded
// inside the window, or an escalated key would silently re-arm
func TestRehydrateFromAuditLog(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	key := "vm-stopped:vm-1"
	base := time.Now().Add(-10 * time.Minute)
	for i := 0; i < 3; i++ {
		rec := &types.AuditRecord{
			ID:          string(rune('a' + i)),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			IncidentKey: key,
			Result:      types.AuditResultFailure,
		}
		if i == 2 {
			rec.Result = types.AuditResultEscalated
			rec.Escalated = true
		}
		require.NoError(t, store.SaveAuditRecord(rec))
	}
	// A blocked record and an old record must not count
	require.NoError(t, store.SaveAuditRecord(&types.AuditRecord{
		ID: "blocked", Timestamp: base.Add(4 * time.Minute),
		IncidentKey: key, Result: types.AuditResultBlocked,
	}))
	require.NoError(t, store.SaveAuditRecord(&types.AuditRecord{
		ID: "ancient", Timestamp: time.Now().Add(-2 * time.Hour),
		IncidentKey: key, Result: types.AuditResultFailure,
	}))

	limiter := NewRateLimiter(3, time.Hour)
	require.NoError(t, limiter.Rehydrate(store))

	assert.Equal(t, 3, limiter.Attempts(key))
	assert.False(t, limiter.Allow(key))
	assert.False(t, limiter.MarkEscalated(key), "escalation already fired before the restart")
}
