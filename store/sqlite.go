// Package store provides the persistence backends: SQLite for appointments
// and accounts, Redis or memory for conversation history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/clinicdesk/clinic-assistant/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	date       TEXT NOT NULL,
	time       TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(name, date, time)
);

CREATE TABLE IF NOT EXISTS accounts (
	name_key     TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	total_amount REAL NOT NULL DEFAULT 0,
	total_paid   REAL NOT NULL DEFAULT 0,
	updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite backs both AppointmentStore and AccountStore on a single file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_journal=WAL&_sync=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// the sqlite driver serializes writes; one connection avoids
	// SQLITE_BUSY under concurrent sessions
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) LoadAppointments(ctx context.Context) ([]types.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, date, time FROM appointments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	defer rows.Close()

	var out []types.Appointment
	for rows.Next() {
		var a types.Appointment
		if err := rows.Scan(&a.Name, &a.Date, &a.Time); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) AppendAppointment(ctx context.Context, appt types.Appointment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (name, date, time) VALUES (?, ?, ?)
		 ON CONFLICT(name, date, time) DO NOTHING`,
		appt.Name, appt.Date, appt.Time)
	if err != nil {
		return fmt.Errorf("append appointment: %w", err)
	}
	return nil
}

// UpdateAccount upserts the account keyed by the case-folded name. Set
// fields replace the stored values; zero fields keep them, so a payment
// update never wipes the billed amount.
func (s *SQLite) UpdateAccount(ctx context.Context, name string, acc types.Account) error {
	key := nameKey(name)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (name_key, name, total_amount, total_paid)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name_key) DO UPDATE SET
			name         = excluded.name,
			total_amount = CASE WHEN excluded.total_amount <> 0 THEN excluded.total_amount ELSE accounts.total_amount END,
			total_paid   = CASE WHEN excluded.total_paid <> 0 THEN excluded.total_paid ELSE accounts.total_paid END,
			updated_at   = CURRENT_TIMESTAMP`,
		key, name, acc.TotalAmount, acc.TotalPaid)
	if err != nil {
		return fmt.Errorf("update account %q: %w", name, err)
	}
	return nil
}

func (s *SQLite) LoadAccounts(ctx context.Context) ([]types.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, total_amount, total_paid FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var out []types.Account
	for rows.Next() {
		var a types.Account
		if err := rows.Scan(&a.Name, &a.TotalAmount, &a.TotalPaid); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
