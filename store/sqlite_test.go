package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-assistant/types"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "clinic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_Appointments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	items, err := db.LoadAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	a := types.Appointment{Name: "Jane Smith", Date: "14-03-2025", Time: "03:00 PM"}
	require.NoError(t, db.AppendAppointment(ctx, a))
	// repeat booking is a no-op
	require.NoError(t, db.AppendAppointment(ctx, a))
	require.NoError(t, db.AppendAppointment(ctx,
		types.Appointment{Name: "Bob Lee", Date: "15-03-2025", Time: "09:00 AM"}))

	items, err = db.LoadAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0]) // insertion order preserved
}

func TestSQLite_AccountsUpsertReplaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpdateAccount(ctx, "Sara", types.Account{TotalPaid: 200}))
	// repeating the same update must not double the balance
	require.NoError(t, db.UpdateAccount(ctx, "Sara", types.Account{TotalPaid: 200}))
	require.NoError(t, db.UpdateAccount(ctx, "sara", types.Account{TotalAmount: 400}))

	accounts, err := db.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1, "name casing must hit the same account")
	assert.InDelta(t, 200, accounts[0].TotalPaid, 1e-9, "paid is replaced, not summed")
	assert.InDelta(t, 400, accounts[0].TotalAmount, 1e-9, "amount-only update keeps paid")
	assert.InDelta(t, 200, accounts[0].Owed(), 1e-9)

	require.NoError(t, db.UpdateAccount(ctx, "Sara", types.Account{TotalPaid: 250}))
	accounts, err = db.LoadAccounts(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 250, accounts[0].TotalPaid, 1e-9)
	assert.InDelta(t, 400, accounts[0].TotalAmount, 1e-9, "paid-only update keeps amount")
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinic.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.AppendAppointment(ctx,
		types.Appointment{Name: "Jane", Date: "14-03-2025", Time: "03:00 PM"}))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	items, err := db.LoadAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMemory_Stores(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := types.Appointment{Name: "Jane", Date: "14-03-2025", Time: "03:00 PM"}
	require.NoError(t, m.AppendAppointment(ctx, a))
	require.NoError(t, m.AppendAppointment(ctx, a))
	items, _ := m.LoadAppointments(ctx)
	assert.Len(t, items, 1)

	require.NoError(t, m.UpdateAccount(ctx, "Sara", types.Account{TotalPaid: 100, TotalAmount: 300}))
	require.NoError(t, m.UpdateAccount(ctx, "SARA", types.Account{TotalPaid: 100}))
	accounts, _ := m.LoadAccounts(ctx)
	require.Len(t, accounts, 1)
	assert.InDelta(t, 100, accounts[0].TotalPaid, 1e-9, "paid is replaced, not summed")
	assert.InDelta(t, 300, accounts[0].TotalAmount, 1e-9)
}
