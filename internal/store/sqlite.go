package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailbridge/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// UpsertMessages inserts or replaces a batch of normalized records
// for an account, keyed by mailbox and message id.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, account string, msgs []model.NormalizedEmail) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			row_id, account, mailbox, msg_id,
			subject, timestamp, record, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range msgs {
		record, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", m.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			uuid.New().String(), account, m.Mailbox, m.ID,
			m.Subject, m.Timestamp, string(record), now,
		)
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// GetMessage retrieves a single cached record.
func (s *SQLiteStore) GetMessage(ctx context.Context, account, mailbox, id string) (*model.NormalizedEmail, error) {
	var record string
	err := s.db.GetContext(ctx, &record,
		"SELECT record FROM messages WHERE account = ? AND mailbox = ? AND msg_id = ?",
		account, mailbox, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %s/%s: %w", mailbox, id, err)
	}

	var msg model.NormalizedEmail
	if err := json.Unmarshal([]byte(record), &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling record %s/%s: %w", mailbox, id, err)
	}
	return &msg, nil
}

// ListMessages retrieves cached records matching the filter, newest
// first by timestamp.
func (s *SQLiteStore) ListMessages(ctx context.Context, f MessageFilter) ([]model.NormalizedEmail, error) {
	var conditions []string
	var args []interface{}

	if f.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, f.Account)
	}
	if f.Mailbox != "" {
		conditions = append(conditions, "mailbox = ?")
		args = append(args, f.Mailbox)
	}
	if f.Query != "" {
		conditions = append(conditions, "subject LIKE ?")
		args = append(args, "%"+f.Query+"%")
	}

	query := "SELECT record FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.NormalizedEmail
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		var msg model.NormalizedEmail
		if err := json.Unmarshal([]byte(record), &msg); err != nil {
			return nil, fmt.Errorf("unmarshaling message row: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
