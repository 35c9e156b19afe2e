package db

import (
	"context"

	"github.com/pkg/errors"
)

// Period boundaries are stored as local "HH:MM" strings. The wire format,
// the builder and the agent all operate on wall-clock strings in the school's
// time zone; storing them the same way avoids a round trip through TIME types
// for values that are never compared in SQL.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS display_screens (
		id               BIGSERIAL PRIMARY KEY,
		token            TEXT NOT NULL UNIQUE,
		school_id        BIGINT NOT NULL,
		bound_device_id  TEXT,
		bound_at         TIMESTAMPTZ,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		last_seen_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_screens_school ON display_screens (school_id)`,
	`CREATE TABLE IF NOT EXISTS school_settings (
		school_id            BIGINT PRIMARY KEY,
		name                 TEXT NOT NULL DEFAULT '',
		logo_url             TEXT NOT NULL DEFAULT '',
		theme                TEXT NOT NULL DEFAULT 'indigo',
		school_type          TEXT NOT NULL DEFAULT '',
		display_accent_color TEXT NOT NULL DEFAULT '',
		timezone_name        TEXT NOT NULL DEFAULT 'Asia/Riyadh',
		refresh_interval_sec INT NOT NULL DEFAULT 30,
		standby_scroll_speed DOUBLE PRECISION NOT NULL DEFAULT 0.8,
		periods_scroll_speed DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		featured_panel       TEXT NOT NULL DEFAULT 'excellence'
	)`,
	`CREATE TABLE IF NOT EXISTS day_schedules (
		id         BIGSERIAL PRIMARY KEY,
		school_id  BIGINT NOT NULL,
		weekday    SMALLINT NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (school_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS periods (
		id          BIGSERIAL PRIMARY KEY,
		school_id   BIGINT NOT NULL,
		weekday     SMALLINT NOT NULL,
		idx         SMALLINT NOT NULL,
		class_name  TEXT NOT NULL DEFAULT '',
		subject     TEXT NOT NULL DEFAULT '',
		teacher     TEXT NOT NULL DEFAULT '',
		starts_at   VARCHAR(5) NOT NULL,
		ends_at     VARCHAR(5) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_periods_day ON periods (school_id, weekday, idx)`,
	`CREATE TABLE IF NOT EXISTS breaks (
		id           BIGSERIAL PRIMARY KEY,
		school_id    BIGINT NOT NULL,
		weekday      SMALLINT NOT NULL,
		label        TEXT NOT NULL DEFAULT 'استراحة',
		starts_at    VARCHAR(5) NOT NULL,
		duration_min SMALLINT NOT NULL DEFAULT 20
	)`,
	`CREATE INDEX IF NOT EXISTS idx_breaks_day ON breaks (school_id, weekday)`,
	`CREATE TABLE IF NOT EXISTS standby_assignments (
		id           BIGSERIAL PRIMARY KEY,
		school_id    BIGINT NOT NULL,
		for_date     DATE NOT NULL,
		period_index SMALLINT NOT NULL,
		class_name   TEXT NOT NULL DEFAULT '',
		subject      TEXT NOT NULL DEFAULT '',
		teacher      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_standby_day ON standby_assignments (school_id, for_date, period_index)`,
	`CREATE TABLE IF NOT EXISTS duty_assignments (
		id           BIGSERIAL PRIMARY KEY,
		school_id    BIGINT NOT NULL,
		for_date     DATE NOT NULL,
		teacher_name TEXT NOT NULL DEFAULT '',
		duty_type    TEXT NOT NULL DEFAULT 'supervision',
		duty_label   TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL DEFAULT '',
		priority     INT NOT NULL DEFAULT 0,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_duty_day ON duty_assignments (school_id, for_date)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id         BIGSERIAL PRIMARY KEY,
		school_id  BIGINT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL DEFAULT '',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		starts_at  TIMESTAMPTZ,
		expires_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_announcements_school ON announcements (school_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS excellence (
		id        BIGSERIAL PRIMARY KEY,
		school_id BIGINT NOT NULL,
		name      TEXT NOT NULL DEFAULT '',
		reason    TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		priority  INT NOT NULL DEFAULT 0,
		start_at  TIMESTAMPTZ,
		end_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_excellence_school ON excellence (school_id)`,
}

// Migrate applies the schema. Every statement is idempotent so repeated runs
// are safe.
func (d *Database) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "could not apply migration")
		}
	}
	log.Info("Database schema up to date")
	return nil
}
