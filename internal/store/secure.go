// Package store provides SQLite-based persistence of password records for
// nekogate.
//
// Security model for SealedStore:
//  1. File permissions: 0600 (owner read/write only)
//  2. Confidentiality: visitor_id and parameters are encrypted at rest
//     with AES-256-GCM, keyed by a field-encryption key the caller
//     supplies (normally unsealed from internal/tpmseal). emitted_text
//     stays in plaintext so records can be looked up by password text.
//
// Door-access records change status over their lifetime (pending -> auth or
// revoked), so unlike an append-only event log there is no hash chain to
// verify here: each record is sealed and opened independently.
package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SealedStore wraps Store with field-level encryption for sensitive columns.
type SealedStore struct {
	*Store
	gcm cipher.AEAD
}

// OpenSealed opens or creates a SQLite database whose sensitive fields are
// encrypted at rest with the given 32-byte AES-256 key.
func OpenSealed(path string, fieldKey []byte) (*SealedStore, error) {
	if len(fieldKey) != 32 {
		return nil, errors.New("field encryption key must be 32 bytes")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	block, err := aes.NewCipher(fieldKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &SealedStore{Store: &Store{db: db}, gcm: gcm}, nil
}

// seal encrypts plaintext and returns a base64-encoded nonce||ciphertext.
func (s *SealedStore) seal(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open reverses seal.
func (s *SealedStore) open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed field: %w", err)
	}
	nonceSize := s.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("sealed field too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open sealed field: %w", err)
	}
	return string(plaintext), nil
}

// InsertRecord inserts a record with visitor_id and parameters encrypted at
// rest. emitted_text is left in plaintext since verification must look
// records up by exact password text.
func (s *SealedStore) InsertRecord(r *PasswordRecord) (int64, error) {
	sealedVisitor, err := s.seal(r.VisitorID)
	if err != nil {
		return 0, err
	}
	sealedParams, err := s.seal(r.Parameters)
	if err != nil {
		return 0, err
	}

	clear := *r
	clear.VisitorID = sealedVisitor
	clear.Parameters = sealedParams

	return s.Store.InsertRecord(&clear)
}

// GetRecordByText retrieves a record by its (plaintext) emitted password
// text and decrypts its remaining sensitive fields.
func (s *SealedStore) GetRecordByText(text string) (*PasswordRecord, error) {
	r, err := s.Store.GetRecordByText(text)
	if err != nil || r == nil {
		return r, err
	}
	return s.unseal(r)
}

// GetRecord retrieves a record and decrypts its sensitive fields.
func (s *SealedStore) GetRecord(id int64) (*PasswordRecord, error) {
	r, err := s.Store.GetRecord(id)
	if err != nil || r == nil {
		return r, err
	}
	return s.unseal(r)
}

// ListByVisitor cannot filter server-side on an encrypted column, so it
// decrypts every record and filters in memory.
func (s *SealedStore) ListByVisitor(visitorID string) ([]PasswordRecord, error) {
	rows, err := s.Store.db.Query(`
		SELECT record_id, visitor_id, inviter_id, request_variant, parameters, emitted_text, start_time, end_time, status
		FROM password_records
		ORDER BY record_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	all, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	var matched []PasswordRecord
	for i := range all {
		r, err := s.unseal(&all[i])
		if err != nil {
			continue
		}
		if r.VisitorID == visitorID {
			matched = append(matched, *r)
		}
	}
	return matched, nil
}

func (s *SealedStore) unseal(r *PasswordRecord) (*PasswordRecord, error) {
	visitor, err := s.open(r.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("unseal visitor_id: %w", err)
	}
	params, err := s.open(r.Parameters)
	if err != nil {
		return nil, fmt.Errorf("unseal parameters: %w", err)
	}

	out := *r
	out.VisitorID = visitor
	out.Parameters = params
	return &out, nil
}
