package snapshot

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/crypto/hash"
	"github.com/azzam1122112-dot/school-display/display-node/db"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultTimezone applies when a school has no timezone configured or the
// configured name cannot be loaded.
const defaultTimezone = "Asia/Riyadh"

// Presentation defaults for unconfigured or out-of-range settings rows.
const (
	defaultTheme        = "indigo"
	defaultRefreshSec   = 30
	minRefreshSec       = 5
	maxRefreshSec       = 864000
	defaultStandbySpeed = 0.8
	defaultPeriodsSpeed = 0.5
	minScrollSpeed      = 0.15
	maxScrollSpeed      = 4.0
)

var (
	buildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "display_snapshot_build_seconds",
		Help:    "Wall time of a full snapshot document build.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	builds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "display_snapshot_builds_total",
		Help: "Snapshot build attempts by result.",
	}, []string{"result"})
)

// ScheduleSource is the slice of the database a build reads.
type ScheduleSource interface {
	Settings(ctx context.Context, school int64) (*db.SchoolSettings, error)
	SchoolDay(ctx context.Context, school int64, weekday int) (active, found bool, err error)
	PeriodsForWeekday(ctx context.Context, school int64, weekday int) ([]db.SchedulePeriod, error)
	BreaksForWeekday(ctx context.Context, school int64, weekday int) ([]db.BreakBlock, error)
	StandbyForDate(ctx context.Context, school int64, date time.Time) ([]db.StandbyEntry, error)
	DutyForDate(ctx context.Context, school int64, date time.Time) ([]db.DutyEntry, error)
	ActiveAnnouncements(ctx context.Context, school int64, now time.Time) ([]db.AnnouncementRow, error)
	ActiveExcellence(ctx context.Context, school int64, now time.Time) ([]db.ExcellenceRow, error)
}

// Built is one immutable build product. Body is the canonical JSON the ETag
// hashes; a given (school, revision) must always serve these exact bytes.
type Built struct {
	Doc     *display.Document
	ETag    string
	Body    []byte
	BuiltAt time.Time
}

// Builder assembles snapshot documents from the authoritative store.
type Builder struct {
	src ScheduleSource
	now func() time.Time
}

// NewBuilder returns a Builder reading the wall clock.
func NewBuilder(src ScheduleSource) *Builder {
	return &Builder{src: src, now: time.Now}
}

// WithClock replaces the time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// isoWeekday maps Go weekdays to Monday=1 through Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func schoolLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		log.WithField("timezone", name).Warn("Unknown timezone on school settings, using default")
	}
	if loc, err := time.LoadLocation(defaultTimezone); err == nil {
		return loc
	}
	return time.FixedZone("AST", 3*3600)
}

func normalizeTheme(theme string) string {
	switch theme {
	case "", "default", "dark", "light":
		return defaultTheme
	default:
		return theme
	}
}

func normalizeSettings(row *db.SchoolSettings) display.Settings {
	s := display.Settings{
		Theme:              defaultTheme,
		RefreshIntervalSec: defaultRefreshSec,
		StandbyScrollSpeed: defaultStandbySpeed,
		PeriodsScrollSpeed: defaultPeriodsSpeed,
		FeaturedPanel:      display.PanelExcellence,
	}
	if row == nil {
		return s
	}
	s.Name = row.Name
	s.LogoURL = row.LogoURL
	s.SchoolType = row.SchoolType
	s.DisplayAccentColor = row.DisplayAccentColor
	s.Theme = normalizeTheme(row.Theme)
	s.TimezoneName = row.TimezoneName
	if row.RefreshIntervalSec >= minRefreshSec && row.RefreshIntervalSec <= maxRefreshSec {
		s.RefreshIntervalSec = row.RefreshIntervalSec
	}
	if row.StandbyScrollSpeed >= minScrollSpeed && row.StandbyScrollSpeed <= maxScrollSpeed {
		s.StandbyScrollSpeed = row.StandbyScrollSpeed
	}
	if row.PeriodsScrollSpeed >= minScrollSpeed && row.PeriodsScrollSpeed <= maxScrollSpeed {
		s.PeriodsScrollSpeed = row.PeriodsScrollSpeed
	}
	if row.FeaturedPanel == display.PanelDuty {
		s.FeaturedPanel = display.PanelDuty
	}
	return s
}

func rosterFromStandby(rows []db.StandbyEntry) []display.RosterEntry {
	out := make([]display.RosterEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, display.RosterEntry{
			PeriodIndex: r.PeriodIndex,
			Class:       r.ClassName,
			Subject:     r.Subject,
			Teacher:     r.Teacher,
		})
	}
	return out
}

func rosterFromPeriods(rows []db.SchedulePeriod) []display.RosterEntry {
	out := make([]display.RosterEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, display.RosterEntry{
			PeriodIndex: r.Index,
			Class:       r.ClassName,
			Subject:     r.Subject,
			Teacher:     r.Teacher,
		})
	}
	return out
}

func dutyBoard(rows []db.DutyEntry) display.Duty {
	items := make([]display.DutyItem, 0, len(rows))
	for _, r := range rows {
		kind := display.DutySupervision
		if r.DutyType == display.DutyShift {
			kind = display.DutyShift
		}
		items = append(items, display.DutyItem{
			Teacher:   r.TeacherName,
			DutyType:  kind,
			DutyLabel: r.DutyLabel,
			Location:  r.Location,
		})
	}
	return display.Duty{Items: items}
}

func noticeBoard(rows []db.AnnouncementRow) []display.Announcement {
	out := make([]display.Announcement, 0, len(rows))
	for _, r := range rows {
		out = append(out, display.Announcement{
			ID:    strconv.FormatInt(r.ID, 10),
			Title: r.Title,
			Body:  r.Body,
		})
	}
	return out
}

func honorBoard(rows []db.ExcellenceRow) []display.Excellence {
	out := make([]display.Excellence, 0, len(rows))
	for _, r := range rows {
		out = append(out, display.Excellence{
			Name:   r.Name,
			Reason: r.Reason,
			Image:  r.ImageURL,
		})
	}
	return out
}

// Build assembles, canonicalizes and hashes the snapshot document for one
// school at one revision. It never mutates stored state; building an old
// revision while the registry has moved on is allowed.
func (b *Builder) Build(ctx context.Context, schoolID, revision int64) (*Built, error) {
	start := time.Now()
	built, err := b.build(ctx, schoolID, revision)
	buildSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		builds.WithLabelValues("error").Inc()
		return nil, err
	}
	builds.WithLabelValues("ok").Inc()
	return built, nil
}

func (b *Builder) build(ctx context.Context, schoolID, revision int64) (*Built, error) {
	settingsRow, err := b.src.Settings(ctx, schoolID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, errors.Wrap(err, "could not load school settings")
	}
	settings := normalizeSettings(settingsRow)

	tzName := ""
	if settingsRow != nil {
		tzName = settingsRow.TimezoneName
	}
	now := b.now().In(schoolLocation(tzName))
	weekday := isoWeekday(now)

	active, found, err := b.src.SchoolDay(ctx, schoolID, weekday)
	if err != nil {
		return nil, errors.Wrap(err, "could not load day schedule")
	}
	schoolDay := found && active

	tl := BuildTimeline(nil, nil)
	var periodRows []db.SchedulePeriod
	if schoolDay {
		periodRows, err = b.src.PeriodsForWeekday(ctx, schoolID, weekday)
		if err != nil {
			return nil, errors.Wrap(err, "could not load periods")
		}
		breakRows, err := b.src.BreaksForWeekday(ctx, schoolID, weekday)
		if err != nil {
			return nil, errors.Wrap(err, "could not load breaks")
		}
		tl = BuildTimeline(periodRows, breakRows)
	}

	standby, err := b.src.StandbyForDate(ctx, schoolID, now)
	if err != nil {
		return nil, errors.Wrap(err, "could not load standby roster")
	}
	duty, err := b.src.DutyForDate(ctx, schoolID, now)
	if err != nil {
		return nil, errors.Wrap(err, "could not load duty roster")
	}
	announcements, err := b.src.ActiveAnnouncements(ctx, schoolID, now)
	if err != nil {
		return nil, errors.Wrap(err, "could not load announcements")
	}
	excellence, err := b.src.ActiveExcellence(ctx, schoolID, now)
	if err != nil {
		return nil, errors.Wrap(err, "could not load excellence board")
	}

	ev := tl.Evaluate(now)
	doc := &display.Document{
		Settings:      settings,
		State:         ev.State,
		CurrentPeriod: ev.CurrentPeriod,
		NextPeriod:    ev.NextPeriod,
		DayPath:       tl.DayPath(),
		Standby:       rosterFromStandby(standby),
		PeriodClasses: rosterFromPeriods(periodRows),
		Duty:          dutyBoard(duty),
		Announcements: noticeBoard(announcements),
		Excellence:    honorBoard(excellence),
		DateInfo:      DateBanner(now),
		Now:           now.Format(time.RFC3339),
		Meta: display.Meta{
			ScheduleRevision: revision,
			WSEnabled:        features.Get().WSEnabled,
			LocalDate:        now.Format("2006-01-02"),
			Weekday:          weekday,
			IsSchoolDay:      schoolDay && !tl.Empty(),
			IsActiveWindow:   ev.IsActiveWindow,
			ActiveWindow:     ev.Window,
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal snapshot document")
	}
	sum := hash.Hash256(body)
	return &Built{
		Doc:     doc,
		ETag:    `"` + hex.EncodeToString(sum[:]) + `"`,
		Body:    body,
		BuiltAt: b.now(),
	}, nil
}
