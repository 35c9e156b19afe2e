// Package display defines the wire types exchanged between the display node
// and the screens it serves: the snapshot document, the status poll response,
// the typed error body, and the WebSocket envelope. The display node builds
// and caches these documents per (school, revision); the agent decodes them.
package display

// StateType classifies where the school day currently stands.
type StateType string

const (
	// StateBefore covers the span from midnight until the first block starts.
	StateBefore StateType = "before"
	// StatePeriod means a lesson is in progress.
	StatePeriod StateType = "period"
	// StateBreak covers scheduled breaks and gaps between blocks.
	StateBreak StateType = "break"
	// StateOff marks weekends, holidays and days with an empty timetable.
	StateOff StateType = "off"
	// StateAfter covers the span after the last block ends.
	StateAfter StateType = "after"
)

// BlockKind tags day path entries as lessons or breaks.
type BlockKind string

const (
	BlockPeriod BlockKind = "period"
	BlockBreak  BlockKind = "break"
)

// DutyType values recognized on duty roster items.
const (
	DutySupervision = "supervision"
	DutyShift       = "duty"
)

// FeaturedPanel values select which side panel the screen highlights.
const (
	PanelExcellence = "excellence"
	PanelDuty       = "duty"
)

// On-screen state labels. The renderer re-derives day state locally between
// polls and must label the gaps exactly as the builder would.
const (
	LabelBeforeSchool = "قبل بداية الدوام"
	LabelBreak        = "استراحة"
	LabelDayOver      = "انتهى الدوام"
	LabelDayOff       = "يوم إجازة"
)

// Settings carries the per-school presentation knobs embedded in every
// snapshot. refresh_interval_sec doubles as the agent's base poll interval.
type Settings struct {
	Name               string  `json:"name"`
	LogoURL            string  `json:"logo_url"`
	Theme              string  `json:"theme"`
	SchoolType         string  `json:"school_type"`
	DisplayAccentColor string  `json:"display_accent_color"`
	RefreshIntervalSec int     `json:"refresh_interval_sec"`
	StandbyScrollSpeed float64 `json:"standby_scroll_speed"`
	PeriodsScrollSpeed float64 `json:"periods_scroll_speed"`
	FeaturedPanel      string  `json:"featured_panel"`
	TimezoneName       string  `json:"timezone_name,omitempty"`
}

// State is the derived position inside the school day. From and To are local
// "HH:MM" strings and are empty for off days. RemainingSeconds counts down to
// the To boundary, clamped at zero.
type State struct {
	Type             StateType `json:"type"`
	Label            string    `json:"label"`
	From             string    `json:"from,omitempty"`
	To               string    `json:"to,omitempty"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	PeriodIndex      int       `json:"period_index,omitempty"`
}

// PeriodRef identifies a single timetable block. Index is the 1-based period
// number within the day.
type PeriodRef struct {
	Index   int    `json:"index"`
	Class   string `json:"class"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// DayPathEntry is one block on the day timeline strip.
type DayPathEntry struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Label string    `json:"label"`
	Kind  BlockKind `json:"kind"`
}

// RosterEntry is a per-period assignment row, shared by the standby and
// period_classes lists.
type RosterEntry struct {
	PeriodIndex int    `json:"period_index"`
	Class       string `json:"class"`
	Subject     string `json:"subject"`
	Teacher     string `json:"teacher"`
}

// Duty wraps today's supervision and duty roster.
type Duty struct {
	Items []DutyItem `json:"items"`
}

// DutyItem is a single supervision or duty assignment for today.
type DutyItem struct {
	Teacher   string `json:"teacher"`
	DutyType  string `json:"duty_type"`
	DutyLabel string `json:"duty_label"`
	Location  string `json:"location"`
}

// Announcement is a school notice currently inside its display window.
type Announcement struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Excellence is one honor board entry.
type Excellence struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Image  string `json:"image"`
}

// CalendarDate renders one calendar's view of the local date.
type CalendarDate struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	MonthName string `json:"month_name"`
	Weekday   string `json:"weekday"`
	Formatted string `json:"formatted"`
}

// DateInfo carries the local date in both calendars used on screen.
type DateInfo struct {
	Gregorian CalendarDate `json:"gregorian"`
	Hijri     CalendarDate `json:"hijri"`
}

// ActiveWindow is the span, in school wall-clock "HH:MM" like every other
// time in the document, during which the agent polls at its active cadence.
// It runs from 30 minutes before the first block to 30 minutes after the
// last.
type ActiveWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Meta describes the snapshot itself rather than the school day.
// ScheduleRevision echoes the cache key the document was built for. IsStale
// is set only on documents served from an older revision while a rebuild is
// in flight elsewhere.
type Meta struct {
	ScheduleRevision int64         `json:"schedule_revision"`
	WSEnabled        bool          `json:"ws_enabled"`
	IsStale          bool          `json:"is_stale,omitempty"`
	StaleWarning     string        `json:"stale_warning,omitempty"`
	LocalDate        string        `json:"local_date"`
	Weekday          int           `json:"weekday,omitempty"`
	IsSchoolDay      bool          `json:"is_school_day"`
	IsActiveWindow   bool          `json:"is_active_window"`
	ActiveWindow     *ActiveWindow `json:"active_window,omitempty"`
}

// Document is the full snapshot served to a screen. CurrentPeriod is non-nil
// exactly when State.Type is StatePeriod. List fields are never nil so the
// wire always carries arrays.
type Document struct {
	Settings      Settings       `json:"settings"`
	State         State          `json:"state"`
	CurrentPeriod *PeriodRef     `json:"current_period"`
	NextPeriod    *PeriodRef     `json:"next_period"`
	DayPath       []DayPathEntry `json:"day_path"`
	Standby       []RosterEntry  `json:"standby"`
	PeriodClasses []RosterEntry  `json:"period_classes"`
	Duty          Duty           `json:"duty"`
	Announcements []Announcement `json:"announcements"`
	Excellence    []Excellence   `json:"excellence"`
	DateInfo      DateInfo       `json:"date_info"`
	Now           string         `json:"now"`
	Meta          Meta           `json:"meta"`
}
