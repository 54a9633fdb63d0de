package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Store persists users and tasks through database/sql. Queries are written with
// $n placeholders and rebound for SQLite.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects with the given driver ("pgx" or "sqlite") and DSN.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	if dsn == "" {
		return nil, errors.New("db dsn is empty")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s := New(db, driver, opts...)
	if driver == DriverSQLite {
		// PRAGMAs are per connection, so SQLite runs on a single one.
		db.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("ping", err)
	}
	return s, nil
}

func New(db *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{db: db, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

var placeholder = regexp.MustCompile(`\$\d+`)

// q rebinds a query for the active driver. Every query lists its $n placeholders
// once and in ascending order, so SQLite can take plain positional markers.
func (s *Store) q(query string) string {
	if s.driver == DriverSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return storage.ErrNotFound
		case "23505":
			return storage.ErrConflict
		}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return storage.ErrNotFound
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return storage.ErrConflict
		}
	}
	return storage.Unavailable(op, err)
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		select id, external_id, display_name, timezone, created_at
		from users
		where id = $1`),
		id,
	)
	return scanUser(row)
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		select id, external_id, display_name, timezone, created_at
		from users
		where external_id = $1`),
		externalID,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var ext sql.NullString
	if err := row.Scan(&u.ID, &ext, &u.DisplayName, &u.Timezone, &u.CreatedAt); err != nil {
		return domain.User{}, classify("get user", err)
	}
	u.ExternalID = ext.String
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	ext := sql.NullString{String: u.ExternalID, Valid: u.ExternalID != ""}
	_, err := s.db.ExecContext(ctx, s.q(`
		insert into users(id, external_id, display_name, timezone, created_at)
		values ($1, $2, $3, $4, $5)`),
		u.ID,
		ext,
		u.DisplayName,
		u.Timezone,
		u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, classify("create user", err)
	}
	return u, nil
}

const taskColumns = `id, owner_id, title, description, subject, due_at, priority, status,
	estimated_minutes, completed_minutes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (storage.Record, error) {
	var r storage.Record
	var dueAt sql.NullTime
	if err := sc.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Title,
		&r.Description,
		&r.Subject,
		&dueAt,
		&r.Priority,
		&r.Status,
		&r.EstimatedMinutes,
		&r.CompletedMinutes,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return storage.Record{}, err
	}
	r.DueAt, r.HasDueAt = dueAt.Time, dueAt.Valid
	return r.UTC(), nil
}

func nullDue(r storage.Record) sql.NullTime {
	return sql.NullTime{Time: r.DueAt, Valid: r.HasDueAt}
}

func (s *Store) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		select `+taskColumns+`
		from tasks
		where owner_id = $1
		order by created_at, id`),
		ownerID,
	)
	if err != nil {
		return nil, classify("list tasks", err)
	}
	defer rows.Close()
	res := make([]domain.Task, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, classify("list tasks", err)
		}
		res = append(res, storage.FromRecord(r))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tasks", err)
	}
	return res, nil
}

func (s *Store) Create(ctx context.Context, ownerID string, t domain.Task) (domain.Task, error) {
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.OwnerID = ownerID
	t.CreatedAt = now
	t.UpdatedAt = now
	r := storage.ToRecord(t).UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		insert into tasks(`+taskColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`),
		r.ID,
		r.OwnerID,
		r.Title,
		r.Description,
		r.Subject,
		nullDue(r),
		r.Priority,
		r.Status,
		r.EstimatedMinutes,
		r.CompletedMinutes,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, classify("create task", err)
	}
	return storage.FromRecord(r), nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, classify("update task", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanRecord(tx.QueryRowContext(ctx, s.q(`
		select `+taskColumns+`
		from tasks
		where id = $1 and owner_id = $2`),
		id,
		ownerID,
	))
	if err != nil {
		return domain.Task{}, classify("update task", err)
	}
	t := patch.Apply(storage.FromRecord(cur))
	t.UpdatedAt = s.now().UTC()
	r := storage.ToRecord(t).UTC()
	res, err := tx.ExecContext(ctx, s.q(`
		update tasks
		set title = $1,
			description = $2,
			subject = $3,
			due_at = $4,
			priority = $5,
			status = $6,
			estimated_minutes = $7,
			completed_minutes = $8,
			updated_at = $9
		where id = $10 and owner_id = $11`),
		r.Title,
		r.Description,
		r.Subject,
		nullDue(r),
		r.Priority,
		r.Status,
		r.EstimatedMinutes,
		r.CompletedMinutes,
		r.UpdatedAt,
		r.ID,
		r.OwnerID,
	)
	if err != nil {
		return domain.Task{}, classify("update task", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.Task{}, storage.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, classify("update task", err)
	}
	return storage.FromRecord(r), nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`delete from tasks where id = $1 and owner_id = $2`), id, ownerID)
	if err != nil {
		return classify("delete task", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("delete task", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
