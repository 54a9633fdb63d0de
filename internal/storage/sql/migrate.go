package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

const schemaTemplate = `
create table if not exists users (
	id text primary key,
	external_id text unique,
	display_name text not null default '',
	timezone text not null default 'UTC',
	created_at {{ts}} not null
);

create table if not exists tasks (
	id text primary key,
	owner_id text not null references users(id) on delete cascade,
	title text not null,
	description text not null default '',
	subject text not null,
	due_at {{ts}},
	priority text not null,
	status text not null,
	estimated_minutes integer not null,
	completed_minutes integer not null default 0,
	created_at {{ts}} not null,
	updated_at {{ts}} not null
);

create index if not exists tasks_owner_created_idx on tasks(owner_id, created_at)`

// schema returns the DDL statements for the driver. SQLite needs the TIMESTAMP
// declaration to hand back time.Time values on scan.
func (s *Store) schema() []string {
	ts := "timestamptz"
	if s.driver == DriverSQLite {
		ts = "TIMESTAMP"
	}
	ddl := strings.ReplaceAll(schemaTemplate, "{{ts}}", ts)
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
