// Package sqlite implements persistence.Store on SQLite through the
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/calendar-slots/internal/persistence"
	"github.com/example/calendar-slots/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	dateLayout = "2006-01-02"
	// Fixed width keeps lexical order equal to chronological order.
	instantLayout = "2006-01-02T15:04:05.000000000Z"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Store implements persistence.Store. The value returned by Open talks to the
// pool; the value handed to WithinTransaction callbacks talks to one *sql.Tx.
type Store struct {
	pool   *ConnectionPool
	q      querier
	tx     *sql.Tx
	mapper *ErrorMapper
	retry  *RetryHelper
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:   pool,
		q:      pool.DB(),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		logger: logger.With("component", "sqlite"),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		"migrations",
		s.logger,
	)
	return manager.RunMigrations(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping reports store health.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithinTransaction runs fn inside one SQLite transaction. Transactions that
// fail on lock contention are retried from the start.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx persistence.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(s.withTx(tx))
		})
	})
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	clone := *s
	clone.q = tx
	clone.tx = tx
	return &clone
}

// atomically runs fn in the current transaction, or in a new one when the
// store is not bound to a transaction.
func (s *Store) atomically(ctx context.Context, fn func(q querier) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.mapper.MapError(s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(tx)
	}))
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse date %q: %w", value, err)
	}
	return t, nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func nullableInstant(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatInstant(t), Valid: true}
}

func parseInstant(value string) (time.Time, error) {
	t, err := time.Parse(instantLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse instant %q: %w", value, err)
	}
	return t, nil
}

func parseNullableInstant(value sql.NullString) (time.Time, error) {
	if !value.Valid {
		return time.Time{}, nil
	}
	return parseInstant(value.String)
}

// spanColumns lists the span columns shared by events and slots, in the
// order spanArgs and scanSpan use.
const spanColumns = "kind, start_date, end_date, start_time, end_time, start_zone, end_zone"

func spanArgs(span persistence.Span) []any {
	return []any{
		string(span.Kind),
		formatDate(span.StartDate),
		formatDate(span.EndDate),
		nullableInstant(span.StartTime),
		nullableInstant(span.EndTime),
		span.StartZone,
		span.EndZone,
	}
}

type spanRow struct {
	kind, startDate, endDate string
	startTime, endTime       sql.NullString
	startZone, endZone       string
}

func (r *spanRow) targets() []any {
	return []any{&r.kind, &r.startDate, &r.endDate, &r.startTime, &r.endTime, &r.startZone, &r.endZone}
}

func (r *spanRow) span() (persistence.Span, error) {
	span := persistence.Span{
		Kind:      persistence.Kind(r.kind),
		StartZone: r.startZone,
		EndZone:   r.endZone,
	}
	var err error
	if span.StartDate, err = parseDate(r.startDate); err != nil {
		return span, err
	}
	if span.EndDate, err = parseDate(r.endDate); err != nil {
		return span, err
	}
	if span.StartTime, err = parseNullableInstant(r.startTime); err != nil {
		return span, err
	}
	if span.EndTime, err = parseNullableInstant(r.endTime); err != nil {
		return span, err
	}
	return span, nil
}

func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(int(day))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("sqlite: invalid weekday %q", part)
		}
		days[i] = time.Weekday(n)
	}
	return days, nil
}

// insertGuests writes the ordered guest list rows for one owner.
func insertGuests(ctx context.Context, q querier, table, ownerColumn, ownerID string, guests []string) error {
	if len(guests) == 0 {
		return nil
	}
	stmt, err := q.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s, position, email) VALUES (?, ?, ?)", table, ownerColumn))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, email := range guests {
		if _, err := stmt.ExecContext(ctx, ownerID, i, email); err != nil {
			return err
		}
	}
	return nil
}
