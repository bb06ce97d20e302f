package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-assistant/assistant"
	"github.com/clinicdesk/clinic-assistant/store"
	"github.com/clinicdesk/clinic-assistant/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := assistant.NewEngine(assistant.Deps{
		Appointments: mem,
		Accounts:     mem,
	})
	s := NewServer(0, engine, mem, mem, []string{"*"})
	ts := httptest.NewServer(s.http.Handler)
	t.Cleanup(ts.Close)
	return ts, mem
}

func postChat(t *testing.T, ts *httptest.Server, body string) (*http.Response, types.ChatResponse) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out types.ChatResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestChatEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, out := postChat(t, ts, `{"message":"show my appointments"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, out.SessionID, "server mints a session id")
	assert.Equal(t, "show_appointments", out.Intent)
	assert.Equal(t, "No appointments found.", out.Reply)
}

func TestChatEndpoint_SessionContinuity(t *testing.T) {
	ts, mem := newTestServer(t)

	_, out := postChat(t, ts, `{"session_id":"s1","message":"book an appointment for jane on friday at 3pm"}`)
	assert.Contains(t, out.Reply, "(yes/no)")

	_, out = postChat(t, ts, `{"session_id":"s1","message":"yes"}`)
	assert.Contains(t, out.Reply, "✅ Booked Jane")

	items, _ := mem.LoadAppointments(context.Background())
	assert.Len(t, items, 1)
}

func TestChatEndpoint_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := postChat(t, ts, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postChat(t, ts, `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAppointmentsEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	require.NoError(t, mem.AppendAppointment(context.Background(),
		types.Appointment{Name: "Jane", Date: "14-03-2025", Time: "03:00 PM"}))

	resp, err := http.Get(ts.URL + "/api/appointments")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Appointments []types.Appointment `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Appointments, 1)
	assert.Equal(t, "Jane", out.Appointments[0].Name)
}

func TestStatsEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, mem.UpdateAccount(ctx, "Alice", types.Account{TotalAmount: 300, TotalPaid: 100}))

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats types.ClinicStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Clients)
	assert.InDelta(t, 100, stats.TotalPaid, 1e-9)
	assert.InDelta(t, 200, stats.TotalOwed, 1e-9)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
