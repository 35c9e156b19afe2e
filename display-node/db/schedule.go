package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Loader caps. One bounded query per entity kind per snapshot build keeps the
// worst-case build cost flat regardless of how much a school accumulates.
const (
	maxPeriods       = 64
	maxBreaks        = 16
	maxStandby       = 50
	maxDuty          = 50
	maxAnnouncements = 20
	maxExcellence    = 30
)

// SchoolSettings is the presentation row embedded in every snapshot.
type SchoolSettings struct {
	SchoolID           int64   `db:"school_id"`
	Name               string  `db:"name"`
	LogoURL            string  `db:"logo_url"`
	Theme              string  `db:"theme"`
	SchoolType         string  `db:"school_type"`
	DisplayAccentColor string  `db:"display_accent_color"`
	TimezoneName       string  `db:"timezone_name"`
	RefreshIntervalSec int     `db:"refresh_interval_sec"`
	StandbyScrollSpeed float64 `db:"standby_scroll_speed"`
	PeriodsScrollSpeed float64 `db:"periods_scroll_speed"`
	FeaturedPanel      string  `db:"featured_panel"`
}

// SchedulePeriod is one lesson row. Several classes may share an index; the
// builder collapses them into a single timeline block and keeps every row for
// the period_classes list.
type SchedulePeriod struct {
	Index     int    `db:"idx"`
	ClassName string `db:"class_name"`
	Subject   string `db:"subject"`
	Teacher   string `db:"teacher"`
	StartsAt  string `db:"starts_at"`
	EndsAt    string `db:"ends_at"`
}

// BreakBlock is a scheduled break. Its end is derived from the duration.
type BreakBlock struct {
	Label       string `db:"label"`
	StartsAt    string `db:"starts_at"`
	DurationMin int    `db:"duration_min"`
}

// StandbyEntry is a substitute assignment for a specific date.
type StandbyEntry struct {
	PeriodIndex int    `db:"period_index"`
	ClassName   string `db:"class_name"`
	Subject     string `db:"subject"`
	Teacher     string `db:"teacher"`
}

// DutyEntry is a supervision or duty assignment for a specific date.
type DutyEntry struct {
	TeacherName string `db:"teacher_name"`
	DutyType    string `db:"duty_type"`
	DutyLabel   string `db:"duty_label"`
	Location    string `db:"location"`
}

// AnnouncementRow is a notice inside its display window.
type AnnouncementRow struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
	Body  string `db:"body"`
}

// ExcellenceRow is one honor board row.
type ExcellenceRow struct {
	Name     string `db:"name"`
	Reason   string `db:"reason"`
	ImageURL string `db:"image_url"`
}

// Settings loads the display settings for a school.
func (d *Database) Settings(ctx context.Context, school int64) (*SchoolSettings, error) {
	var s SchoolSettings
	err := d.db.GetContext(ctx, &s,
		`SELECT school_id, name, logo_url, theme, school_type, display_accent_color,
		        timezone_name, refresh_interval_sec, standby_scroll_speed,
		        periods_scroll_speed, featured_panel
		 FROM school_settings WHERE school_id = $1`, school)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not query school settings")
	}
	return &s, nil
}

// SchoolDay reports whether a weekday is configured and whether it is a
// school day. Weekdays run Monday=1 through Sunday=7.
func (d *Database) SchoolDay(ctx context.Context, school int64, weekday int) (active, found bool, err error) {
	var isActive bool
	err = d.db.GetContext(ctx, &isActive,
		`SELECT is_active FROM day_schedules WHERE school_id = $1 AND weekday = $2`, school, weekday)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrap(err, "could not query day schedule")
	}
	return isActive, true, nil
}

// PeriodsForWeekday loads every lesson row for a weekday in timeline order.
func (d *Database) PeriodsForWeekday(ctx context.Context, school int64, weekday int) ([]SchedulePeriod, error) {
	out := make([]SchedulePeriod, 0, 8)
	err := d.db.SelectContext(ctx, &out,
		`SELECT idx, class_name, subject, teacher, starts_at, ends_at
		 FROM periods WHERE school_id = $1 AND weekday = $2
		 ORDER BY idx, starts_at LIMIT $3`, school, weekday, maxPeriods)
	return out, errors.Wrap(err, "could not query periods")
}

// BreaksForWeekday loads the scheduled breaks for a weekday.
func (d *Database) BreaksForWeekday(ctx context.Context, school int64, weekday int) ([]BreakBlock, error) {
	out := make([]BreakBlock, 0, 2)
	err := d.db.SelectContext(ctx, &out,
		`SELECT label, starts_at, duration_min
		 FROM breaks WHERE school_id = $1 AND weekday = $2
		 ORDER BY starts_at LIMIT $3`, school, weekday, maxBreaks)
	return out, errors.Wrap(err, "could not query breaks")
}

// StandbyForDate loads the substitute roster for one date.
func (d *Database) StandbyForDate(ctx context.Context, school int64, date time.Time) ([]StandbyEntry, error) {
	out := make([]StandbyEntry, 0, 4)
	err := d.db.SelectContext(ctx, &out,
		`SELECT period_index, class_name, subject, teacher
		 FROM standby_assignments WHERE school_id = $1 AND for_date = $2
		 ORDER BY period_index, id LIMIT $3`, school, date, maxStandby)
	return out, errors.Wrap(err, "could not query standby assignments")
}

// DutyForDate loads the active duty roster for one date in priority order.
func (d *Database) DutyForDate(ctx context.Context, school int64, date time.Time) ([]DutyEntry, error) {
	out := make([]DutyEntry, 0, 4)
	err := d.db.SelectContext(ctx, &out,
		`SELECT teacher_name, duty_type, duty_label, location
		 FROM duty_assignments WHERE school_id = $1 AND for_date = $2 AND is_active
		 ORDER BY priority, id DESC LIMIT $3`, school, date, maxDuty)
	return out, errors.Wrap(err, "could not query duty assignments")
}

// ActiveAnnouncements loads notices whose display window covers now.
func (d *Database) ActiveAnnouncements(ctx context.Context, school int64, now time.Time) ([]AnnouncementRow, error) {
	out := make([]AnnouncementRow, 0, 4)
	err := d.db.SelectContext(ctx, &out,
		`SELECT id, title, body FROM announcements
		 WHERE school_id = $1 AND is_active
		   AND (starts_at IS NULL OR starts_at <= $2)
		   AND (expires_at IS NULL OR expires_at > $2)
		 ORDER BY id DESC LIMIT $3`, school, now, maxAnnouncements)
	return out, errors.Wrap(err, "could not query announcements")
}

// ActiveExcellence loads honor board rows whose window covers now.
func (d *Database) ActiveExcellence(ctx context.Context, school int64, now time.Time) ([]ExcellenceRow, error) {
	out := make([]ExcellenceRow, 0, 4)
	err := d.db.SelectContext(ctx, &out,
		`SELECT name, reason, image_url FROM excellence
		 WHERE school_id = $1
		   AND (start_at IS NULL OR start_at <= $2)
		   AND (end_at IS NULL OR end_at > $2)
		 ORDER BY priority DESC, id DESC LIMIT $3`, school, now, maxExcellence)
	return out, errors.Wrap(err, "could not query excellence")
}
