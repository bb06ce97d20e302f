package store

import (
	"context"
	"sync"

	"github.com/clinicdesk/clinic-assistant/types"
)

// Memory keeps appointments and accounts in process memory. Used by tests
// and by deployments that don't want a database file.
type Memory struct {
	mu       sync.Mutex
	appts    []types.Appointment
	accounts map[string]types.Account
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]types.Account)}
}

func (m *Memory) LoadAppointments(ctx context.Context) ([]types.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Appointment, len(m.appts))
	copy(out, m.appts)
	return out, nil
}

func (m *Memory) AppendAppointment(ctx context.Context, appt types.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a == appt {
			return nil
		}
	}
	m.appts = append(m.appts, appt)
	return nil
}

// UpdateAccount mirrors the SQLite upsert: set fields replace, zero fields
// keep the stored value.
func (m *Memory) UpdateAccount(ctx context.Context, name string, acc types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nameKey(name)
	cur := m.accounts[key]
	cur.Name = name
	if acc.TotalAmount != 0 {
		cur.TotalAmount = acc.TotalAmount
	}
	if acc.TotalPaid != 0 {
		cur.TotalPaid = acc.TotalPaid
	}
	m.accounts[key] = cur
	return nil
}

func (m *Memory) LoadAccounts(ctx context.Context) ([]types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}
