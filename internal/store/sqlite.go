package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store represents the SQLite password record store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks that the database connection is reachable, for use by
// liveness/readiness health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertRecord inserts a new password record and returns its assigned ID.
func (s *Store) InsertRecord(r *PasswordRecord) (int64, error) {
	if r.Status == "" {
		r.Status = StatusPending
	}

	result, err := s.db.Exec(`
		INSERT INTO password_records (visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.VisitorID, r.InviterID, r.RequestVariant, r.Parameters, r.EmittedText, r.StartTime, r.EndTime, string(r.Status),
	)
	if err != nil {
		return 0, fmt.Errorf("insert password record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// GetRecord retrieves a password record by ID.
func (s *Store) GetRecord(id int64) (*PasswordRecord, error) {
	var r PasswordRecord
	var status string

	err := s.db.QueryRow(`
		SELECT record_id, visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status
		FROM password_records WHERE record_id = ?`, id,
	).Scan(&r.RecordID, &r.VisitorID, &r.InviterID, &r.RequestVariant, &r.Parameters, &r.EmittedText, &r.StartTime, &r.EndTime, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get password record: %w", err)
	}

	r.Status = Status(status)
	return &r, nil
}

// GetRecordByText retrieves the most recent password record for an emitted
// text, if any. Used by verification to find the record to update status on.
func (s *Store) GetRecordByText(text string) (*PasswordRecord, error) {
	var r PasswordRecord
	var status string

	err := s.db.QueryRow(`
		SELECT record_id, visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status
		FROM password_records WHERE emitted_text = ?
		ORDER BY record_id DESC LIMIT 1`, text,
	).Scan(&r.RecordID, &r.VisitorID, &r.InviterID, &r.RequestVariant, &r.Parameters, &r.EmittedText, &r.StartTime, &r.EndTime, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get password record by text: %w", err)
	}

	r.Status = Status(status)
	return &r, nil
}

// ListByVisitor retrieves all records issued to a visitor, newest first.
func (s *Store) ListByVisitor(visitorID string) ([]PasswordRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_id, visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status
		FROM password_records
		WHERE visitor_id = ?
		ORDER BY record_id DESC`, visitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query records by visitor: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListPending retrieves all records still in the pending state.
func (s *Store) ListPending() ([]PasswordRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_id, visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status
		FROM password_records
		WHERE status = ?
		ORDER BY start_time ASC`, string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateStatus transitions a record to a new status.
func (s *Store) UpdateStatus(id int64, status Status) error {
	result, err := s.db.Exec(`UPDATE password_records SET status = ? WHERE record_id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("record not found: %d", id)
	}

	return nil
}

// RevokeByInviter marks every pending record issued by an inviter as
// revoked, e.g. in response to an admin key rotation.
func (s *Store) RevokeByInviter(inviterID string) (int64, error) {
	result, err := s.db.Exec(`
		UPDATE password_records SET status = ?
		WHERE inviter_id = ? AND status = ?`,
		string(StatusRevoked), inviterID, string(StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("revoke by inviter: %w", err)
	}
	return result.RowsAffected()
}

func scanRecords(rows *sql.Rows) ([]PasswordRecord, error) {
	var records []PasswordRecord

	for rows.Next() {
		var r PasswordRecord
		var status string
		if err := rows.Scan(&r.RecordID, &r.VisitorID, &r.InviterID, &r.RequestVariant, &r.Parameters, &r.EmittedText, &r.StartTime, &r.EndTime, &status); err != nil {
			return nil, fmt.Errorf("scan password record: %w", err)
		}
		r.Status = Status(status)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password records: %w", err)
	}

	return records, nil
}
