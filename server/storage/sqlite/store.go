// Package sqlite implements storage.Storage on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/server/storage"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Store implements storage.Storage interface using SQLite with WAL mode.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for Created/Modified.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens a SQLite database at the given path and applies
// pragmas and the schema. Use ":memory:" for a throwaway database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement, which cascades schedule deletes to exceptions
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection also
	// keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("sqlite storage opened", "path", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func notFound(id string) error {
	return &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "schedule not found: " + id,
	}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint && serr.ExtendedCode == code
}

func encodeSpec(spec *recurrence.RuleSpec) (sql.NullString, error) {
	if spec == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode recurrence: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// Schedule operations

func (s *Store) CreateSchedule(ctx context.Context, sched *storage.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	rec, err := encodeSpec(sched.Recurrence)
	if err != nil {
		return err
	}

	id := sched.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, title, start_at, recurrence, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, sched.Title, formatTime(sched.StartAt), rec, formatTime(now), formatTime(now))
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			s.logger.Warn("failed to create schedule: already exists", "id", id)
			return &storage.Error{
				Type:    storage.ErrAlreadyExists,
				Message: "schedule already exists: " + id,
			}
		}
		return fmt.Errorf("create schedule: %w", err)
	}

	sched.ID = id
	sched.Created = now
	sched.Modified = now
	s.logger.Debug("schedule created", "id", id, "recurring", sched.Recurrence != nil)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*storage.Schedule, error) {
	var (
		sched                      storage.Schedule
		startAt, created, modified string
		rec                        sql.NullString
	)
	if err := row.Scan(&sched.ID, &sched.Title, &startAt, &rec, &created, &modified); err != nil {
		return nil, err
	}

	var err error
	if sched.StartAt, err = time.Parse(time.RFC3339Nano, startAt); err != nil {
		return nil, fmt.Errorf("schedule %s: invalid start_at: %w", sched.ID, err)
	}
	if sched.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("schedule %s: invalid created_at: %w", sched.ID, err)
	}
	if sched.Modified, err = time.Parse(time.RFC3339Nano, modified); err != nil {
		return nil, fmt.Errorf("schedule %s: invalid modified_at: %w", sched.ID, err)
	}
	if rec.Valid {
		var spec recurrence.RuleSpec
		if err := json.Unmarshal([]byte(rec.String), &spec); err != nil {
			return nil, fmt.Errorf("schedule %s: invalid recurrence: %w", sched.ID, err)
		}
		sched.Recurrence = &spec
	}
	return &sched, nil
}

const selectSchedule = `SELECT id, title, start_at, recurrence, created_at, modified_at FROM schedules`

func (s *Store) GetSchedule(ctx context.Context, id string) (*storage.Schedule, error) {
	row := s.db.QueryRowContext(ctx, selectSchedule+` WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

func (s *Store) ListSchedules(ctx context.Context, opts *storage.ListOptions) ([]*storage.Schedule, error) {
	query := selectSchedule
	if opts != nil && opts.RecurringOnly {
		query += ` WHERE recurrence IS NOT NULL`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []*storage.Schedule{}
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("list schedules: %w", err)
		}
		if opts != nil && opts.StartsAfter != nil && sched.StartAt.Before(*opts.StartsAfter) {
			continue
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	// start_at keeps its original offset, so order chronologically here
	// rather than by string in SQL.
	sort.Slice(schedules, func(i, j int) bool {
		if !schedules[i].StartAt.Equal(schedules[j].StartAt) {
			return schedules[i].StartAt.Before(schedules[j].StartAt)
		}
		return schedules[i].ID < schedules[j].ID
	})

	if opts != nil && opts.Limit > 0 && len(schedules) > opts.Limit {
		schedules = schedules[:opts.Limit]
	}
	return schedules, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, sched *storage.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	rec, err := encodeSpec(sched.Recurrence)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET title = ?, start_at = ?, recurrence = ?, modified_at = ?
		WHERE id = ?
	`, sched.Title, formatTime(sched.StartAt), rec, formatTime(now), sched.ID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if err := expectOneRow(res, sched.ID); err != nil {
		return err
	}

	var created string
	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM schedules WHERE id = ?`, sched.ID).Scan(&created); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	sched.Created, _ = time.Parse(time.RFC3339Nano, created)
	sched.Modified = now
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}
	s.logger.Debug("schedule deleted", "id", id)
	return nil
}

func (s *Store) SetRecurrence(ctx context.Context, id string, spec *recurrence.RuleSpec) error {
	if spec != nil {
		if _, err := spec.Build(); err != nil {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "invalid recurrence", Err: err}
		}
	}
	rec, err := encodeSpec(spec)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET recurrence = ?, modified_at = ? WHERE id = ?
	`, rec, formatTime(s.now().UTC()), id)
	if err != nil {
		return fmt.Errorf("set recurrence: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM schedules WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(id)
	}
	if err != nil {
		return fmt.Errorf("lookup schedule: %w", err)
	}
	return nil
}

// Exception operations

func (s *Store) ListExceptions(ctx context.Context, id string) ([]time.Time, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM schedule_exceptions WHERE schedule_id = ? ORDER BY date
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("list exceptions: %w", err)
		}
		d, err := recurrence.ParseDate(value)
		if err != nil {
			return nil, fmt.Errorf("list exceptions: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	return dates, nil
}

func (s *Store) AddException(ctx context.Context, id string, date time.Time) error {
	value := recurrence.FormatDate(recurrence.DateOf(date))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (schedule_id, date) VALUES (?, ?)
	`, id, value)
	switch {
	case err == nil:
		return nil
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		return notFound(id)
	case isConstraint(err, sqlite3.ErrConstraintPrimaryKey):
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "exception already exists: " + value,
		}
	default:
		return fmt.Errorf("add exception: %w", err)
	}
}

func (s *Store) RemoveException(ctx context.Context, id string, date time.Time) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}

	value := recurrence.FormatDate(recurrence.DateOf(date))
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM schedule_exceptions WHERE schedule_id = ? AND date = ?
	`, id, value)
	if err != nil {
		return fmt.Errorf("remove exception: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "exception not found: " + value,
		}
	}
	return nil
}
