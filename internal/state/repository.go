package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists acknowledged values.
type Repository interface {
	LoadAll(ctx context.Context) ([]Value, error)
	Save(ctx context.Context, v Value) error
}

// CommandRecord is one row of the command log.
type CommandRecord struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// timestampFormat is fixed width so stored timestamps sort lexically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

const (
	defaultCommandLimit = 50
	maxCommandLimit     = 500
)

// SQLiteRepository stores values as JSON text in the states table and
// command outcomes in command_log.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LoadAll returns every stored value.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]Value, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT path, value, ack, source, updated_at FROM states ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("querying states: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var (
			v         Value
			raw       string
			ack       int
			updatedAt string
		)
		if err := rows.Scan(&v.Path, &raw, &ack, &v.Source, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning state: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &v.Value); err != nil {
			return nil, fmt.Errorf("decoding state %s: %w", v.Path, err)
		}
		v.Ack = ack != 0
		v.UpdatedAt, err = time.Parse(timestampFormat, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at for %s: %w", v.Path, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating states: %w", err)
	}
	return values, nil
}

// Save upserts a value.
func (r *SQLiteRepository) Save(ctx context.Context, v Value) error {
	raw, err := json.Marshal(v.Value)
	if err != nil {
		return fmt.Errorf("encoding state %s: %w", v.Path, err)
	}

	ack := 0
	if v.Ack {
		ack = 1
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO states (path, value, ack, source, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   value = excluded.value, ack = excluded.ack,
		   source = excluded.source, updated_at = excluded.updated_at`,
		v.Path, string(raw), ack, v.Source, v.UpdatedAt.UTC().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("saving state %s: %w", v.Path, err)
	}
	return nil
}

// RecordCommand appends a command outcome to the command log.
func (r *SQLiteRepository) RecordCommand(ctx context.Context, rec CommandRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("command id is required")
	}
	raw, err := json.Marshal(rec.Value)
	if err != nil {
		return fmt.Errorf("encoding command value: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO command_log (id, path, value, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Path, string(raw), rec.Status, errText, rec.CreatedAt.UTC().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting command log: %w", err)
	}
	return nil
}

// RecentCommands returns the newest command log entries first.
// limit defaults to 50 and is capped at 500.
func (r *SQLiteRepository) RecentCommands(ctx context.Context, limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = defaultCommandLimit
	}
	if limit > maxCommandLimit {
		limit = maxCommandLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, path, value, status, error, created_at
		 FROM command_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	records := make([]CommandRecord, 0, limit)
	for rows.Next() {
		var (
			rec       CommandRecord
			raw       string
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &raw, &rec.Status, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Value); err != nil {
			return nil, fmt.Errorf("decoding command value: %w", err)
		}
		rec.Error = errText.String
		rec.CreatedAt, err = time.Parse(timestampFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}
	return records, nil
}
