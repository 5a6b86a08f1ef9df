package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hapsayrizal/barangay-booking/internal/booking"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS appointments (
	local_id         TEXT PRIMARY KEY,
	reference_no     TEXT NOT NULL,
	resident_id      INTEGER,
	full_name        TEXT NOT NULL,
	email            TEXT NOT NULL,
	phone            TEXT NOT NULL,
	service_id       INTEGER NOT NULL,
	time_slot_id     INTEGER,
	appointment_date TEXT NOT NULL,
	appointment_time TEXT NOT NULL,
	notes            TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	synced           INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appointments_synced ON appointments(synced);
`

// SQLite implements AppointmentStore on an embedded database file. Open with
// ":memory:" for tests.
type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// database/sql pools connections; each :memory: connection would be its
	// own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply store schema: %w", err)
	}
	if err := ensureVersion(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func ensureVersion(db *sql.DB) error {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("read store schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported %d", version, schemaVersion)
	}
	return nil
}

func (s *SQLite) GetAll(ctx context.Context) ([]Appointment, error) {
	return s.query(ctx, `SELECT `+columns+` FROM appointments ORDER BY created_at`)
}

func (s *SQLite) PendingSync(ctx context.Context, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, `SELECT `+columns+` FROM appointments WHERE synced = 0 ORDER BY created_at LIMIT ?`, limit)
}

func (s *SQLite) SaveOne(ctx context.Context, appt Appointment) error {
	_, err := s.db.ExecContext(ctx, upsert, args(appt, time.Now())...)
	if err != nil {
		return fmt.Errorf("save appointment %s: %w", appt.LocalID, err)
	}
	return nil
}

// SaveAll replaces the stored set in one transaction so that a failure midway
// leaves the previous data intact.
func (s *SQLite) SaveAll(ctx context.Context, appts []Appointment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save-all: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM appointments`); err != nil {
		return fmt.Errorf("clear appointments: %w", err)
	}

	now := time.Now()
	for _, appt := range appts {
		if _, err := tx.ExecContext(ctx, insert, args(appt, now)...); err != nil {
			return fmt.Errorf("save appointment %s: %w", appt.LocalID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) MarkSynced(ctx context.Context, localID string, serverRef string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE appointments SET synced = 1, reference_no = ?, updated_at = ? WHERE local_id = ?`,
		serverRef, time.Now().Format(time.RFC3339), localID)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", localID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark synced %s: no such appointment", localID)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM appointments`)
	return err
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

const columns = `local_id, reference_no, resident_id, full_name, email, phone,
	service_id, time_slot_id, appointment_date, appointment_time, notes, status,
	synced, created_at, updated_at`

const insert = `INSERT INTO appointments (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsert = insert + `
	ON CONFLICT(local_id) DO UPDATE SET
		reference_no = excluded.reference_no,
		resident_id = excluded.resident_id,
		full_name = excluded.full_name,
		email = excluded.email,
		phone = excluded.phone,
		service_id = excluded.service_id,
		time_slot_id = excluded.time_slot_id,
		appointment_date = excluded.appointment_date,
		appointment_time = excluded.appointment_time,
		notes = excluded.notes,
		status = excluded.status,
		synced = excluded.synced,
		updated_at = excluded.updated_at`

func args(appt Appointment, now time.Time) []any {
	createdAt := appt.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return []any{
		appt.LocalID.String(),
		appt.ReferenceNo,
		appt.ResidentID,
		appt.FullName,
		appt.Email,
		appt.Phone,
		appt.ServiceID,
		appt.TimeSlotID,
		appt.Date,
		appt.Time,
		appt.Notes,
		string(appt.Status),
		appt.Synced,
		createdAt.Format(time.RFC3339),
		now.Format(time.RFC3339),
	}
}

func (s *SQLite) query(ctx context.Context, q string, qargs ...any) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			appt       Appointment
			localID    string
			residentID sql.NullInt64
			timeSlotID sql.NullInt64
			status     string
			createdAt  string
			updatedAt  string
		)
		if err := rows.Scan(&localID, &appt.ReferenceNo, &residentID, &appt.FullName,
			&appt.Email, &appt.Phone, &appt.ServiceID, &timeSlotID, &appt.Date,
			&appt.Time, &appt.Notes, &status, &appt.Synced, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}

		id, err := uuid.Parse(localID)
		if err != nil {
			return nil, fmt.Errorf("parse local id %q: %w", localID, err)
		}
		appt.LocalID = id
		if residentID.Valid {
			v := residentID.Int64
			appt.ResidentID = &v
		}
		if timeSlotID.Valid {
			v := timeSlotID.Int64
			appt.TimeSlotID = &v
		}
		appt.Status = booking.Status(status)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			appt.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			appt.UpdatedAt = t
		}

		out = append(out, appt)
	}
	return out, rows.Err()
}
