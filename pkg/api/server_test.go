package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

type fakeEngine struct {
	active int
	queued int
}

func (f *fakeEngine) ActiveRemediationCount() int { return f.active }
func (f *fakeEngine) QueueDepth() int             { return f.queued }

func newTestServer(t *testing.T) (*Server, storage.Store, *prefs.Prefs) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := prefs.New(store)
	require.NoError(t, p.SetAutonomyLevel(types.AutonomyActAndReport))

	return NewServer(p, store, &fakeEngine{queued: 2}, events.NewBroker()), store, p
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	srv, _, p := newTestServer(t)
	require.NoError(t, p.SetKillSwitch(true))

	rec := doJSON(t, srv, http.MethodGet, "/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Running)
	assert.True(t, status.KillSwitchActive)
	assert.Equal(t, 3, status.AutonomyLevel)
	assert.Equal(t, "act-and-report", status.AutonomyLevelName)
	assert.Equal(t, 2, status.QueueDepth)
}

func TestSetKillSwitch(t *testing.T) {
	srv, _, p := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/v1/killswitch", KillSwitchRequest{Active: true})
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := p.KillSwitchActive()
	require.NoError(t, err)
	assert.True(t, active)

	rec = doJSON(t, srv, http.MethodPut, "/v1/killswitch", KillSwitchRequest{Active: false})
	require.Equal(t, http.StatusOK, rec.Code)

	active, err = p.KillSwitchActive()
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSetAutonomyLevel(t *testing.T) {
	srv, _, p := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/v1/autonomy-level", AutonomyRequest{Level: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	level, err := p.AutonomyLevel()
	require.NoError(t, err)
	assert.Equal(t, types.AutonomyAlert, level)
}

func TestSetAutonomyLevelRejectsOutOfRange(t *testing.T) {
	srv, _, p := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/v1/autonomy-level", AutonomyRequest{Level: 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	level, err := p.AutonomyLevel()
	require.NoError(t, err)
	assert.Equal(t, types.AutonomyActAndReport, level, "invalid input leaves the level unchanged")
}

func TestListActions(t *testing.T) {
	srv, store, _ := newTestServer(t)

	for i, key := range []string{"vm-stopped:vm-1", "vm-stopped:vm-2", "disk-critical:vm-1"} {
		require.NoError(t, store.SaveAuditRecord(&types.AuditRecord{
			ID:          key,
			Timestamp:   time.Now().Add(time.Duration(i) * time.Second),
			IncidentKey: key,
			Result:      types.AuditResultSuccess,
		}))
	}

	rec := doJSON(t, srv, http.MethodGet, "/v1/actions?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []*types.AuditRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "disk-critical:vm-1", records[0].IncidentKey, "most recent first")
}

func TestListActionsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestListActionsRejectsBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/actions?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadBodyRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/killswitch", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
