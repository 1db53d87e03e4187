// Package store persists lead records to a local SQLite file. It is the
// single source of truth for conversation progress and follow-up metadata,
// shared by the turn path and the follow-up monitor.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	_ "modernc.org/sqlite"
)

// DefaultWriteTimeout bounds a single durable write. Liberal, but finite:
// a stuck disk surfaces as an error instead of a hang.
const DefaultWriteTimeout = 5 * time.Second

// Store is a thread-safe durable table of lead records. Writers are
// serialized by SQLite's single-writer connection; readers snapshot.
type Store struct {
	db           *sql.DB
	log          *logger.Logger
	writeTimeout time.Duration
}

// Open opens (creating if needed) the lead database at path.
func Open(path string, log *logger.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open lead db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping lead db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize lead schema: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, log: log, writeTimeout: DefaultWriteTimeout}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable (readiness checks).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectColumns = `lead_id, name, step, age, country, interest, status,
	last_agent_message_at, last_user_message_at, follow_up_sent, created_at, updated_at`

// Get returns the record for leadID, or apperr.NotFound when absent.
func (s *Store) Get(ctx context.Context, leadID string) (domain.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM leads WHERE lead_id = ?`, leadID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LeadRecord{}, apperr.NotFound("lead not found").WithOp("store.Get")
	}
	if err != nil {
		return domain.LeadRecord{}, apperr.Wrap(apperr.KindInternal, "read lead", err).WithOp("store.Get")
	}
	return rec, nil
}

// Upsert applies an atomic read-modify-write for one lead. The mutator sees
// the current record (or a blank one carrying only the lead id when the lead
// does not exist yet) and edits it in place. The commit is flushed durably
// before Upsert returns. Returning an error from the mutator aborts the
// write and leaves the row untouched.
func (s *Store) Upsert(ctx context.Context, leadID string, mutate func(*domain.LeadRecord) error) (domain.LeadRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.LeadRecord{}, apperr.Wrap(apperr.KindInternal, "begin write", err).WithOp("store.Upsert")
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM leads WHERE lead_id = ?`, leadID)

	rec, err := scanRecord(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec = domain.LeadRecord{LeadID: leadID}
	case err != nil:
		return domain.LeadRecord{}, apperr.Wrap(apperr.KindInternal, "read lead", err).WithOp("store.Upsert")
	}

	if err := mutate(&rec); err != nil {
		return domain.LeadRecord{}, err
	}
	rec.LeadID = leadID // immutable key

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leads (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (lead_id) DO UPDATE SET
			name = excluded.name,
			step = excluded.step,
			age = excluded.age,
			country = excluded.country,
			interest = excluded.interest,
			status = excluded.status,
			last_agent_message_at = excluded.last_agent_message_at,
			last_user_message_at = excluded.last_user_message_at,
			follow_up_sent = excluded.follow_up_sent,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		rec.LeadID, rec.Name, string(rec.Step), rec.Age, rec.Country, rec.Interest,
		string(rec.Status), encodeTime(rec.LastAgentMessageAt), encodeTime(rec.LastUserMessageAt),
		boolToInt(rec.FollowUpSent), encodeTime(rec.CreatedAt), encodeTime(rec.UpdatedAt),
	)
	if err != nil {
		return domain.LeadRecord{}, apperr.Wrap(apperr.KindInternal, "write lead", err).WithOp("store.Upsert")
	}

	if err := tx.Commit(); err != nil {
		return domain.LeadRecord{}, apperr.Wrap(apperr.KindInternal, "commit lead", err).WithOp("store.Upsert")
	}
	return rec, nil
}

// Scan returns a point-in-time snapshot of all records matching pred.
// Rows that fail to decode (unknown enums, unparsable timestamps) are
// skipped with a warning; a corrupt row never fails the whole scan.
func (s *Store) Scan(ctx context.Context, pred func(domain.LeadRecord) bool) ([]domain.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM leads ORDER BY lead_id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan leads", err).WithOp("store.Scan")
	}
	defer rows.Close()

	var out []domain.LeadRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			if s.log != nil {
				s.log.CorruptRecord(rec.LeadID, err.Error())
			}
			continue
		}
		if pred == nil || pred(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "scan leads", err).WithOp("store.Scan")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.LeadRecord, error) {
	var (
		rec                  domain.LeadRecord
		step, status         string
		agentAt, userAt      string
		createdAt, updatedAt string
		followUpSent         int
	)

	err := row.Scan(&rec.LeadID, &rec.Name, &step, &rec.Age, &rec.Country, &rec.Interest,
		&status, &agentAt, &userAt, &followUpSent, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}

	rec.Step = domain.Step(step)
	rec.Status = domain.Status(status)
	rec.FollowUpSent = followUpSent != 0

	if !domain.IsKnownStep(rec.Step) {
		return rec, fmt.Errorf("unknown step %q", step)
	}
	if !domain.IsKnownStatus(rec.Status) {
		return rec, fmt.Errorf("unknown status %q", status)
	}

	if rec.LastAgentMessageAt, err = decodeTime(agentAt); err != nil {
		return rec, fmt.Errorf("last_agent_message_at: %w", err)
	}
	if rec.LastUserMessageAt, err = decodeTime(userAt); err != nil {
		return rec, fmt.Errorf("last_user_message_at: %w", err)
	}
	if rec.CreatedAt, err = decodeTime(createdAt); err != nil {
		return rec, fmt.Errorf("created_at: %w", err)
	}
	if rec.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return rec, fmt.Errorf("updated_at: %w", err)
	}

	return rec, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
