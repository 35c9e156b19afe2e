// Package snapshot builds the per-school display document: it loads the
// timetable and boards from the database, derives the live day state, and
// produces canonical bytes with a content hash. Builds are read-only and
// deterministic for a fixed clock reading.
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/db"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "snapshot")

const (
	labelBefore = display.LabelBeforeSchool
	labelBreak  = display.LabelBreak
	labelAfter  = display.LabelDayOver
	labelOff    = display.LabelDayOff
)

func periodLabel(index int) string {
	return fmt.Sprintf("الحصة %d", index)
}

// classRef is the class-level detail behind one timetable slot.
type classRef struct {
	Class   string
	Subject string
	Teacher string
}

// block is one contiguous stretch of the school day.
type block struct {
	Kind  display.BlockKind
	Label string
	Index int // period index, zero for breaks
	From  int // minutes from local midnight
	To    int
}

// Timeline is the ordered day plan for one weekday. Periods sharing an index
// are collapsed into a single block; their class rows stay reachable for
// current_period enrichment.
type Timeline struct {
	blocks  []block
	classes map[int][]classRef
}

func parseHHMM(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func fmtHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 23*60+59 {
		minutes = 23*60 + 59
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// BuildTimeline collapses period rows by index and interleaves breaks.
// Rows with unparseable times are dropped with a warning rather than
// failing the whole build.
func BuildTimeline(periods []db.SchedulePeriod, breaks []db.BreakBlock) *Timeline {
	tl := &Timeline{classes: make(map[int][]classRef)}
	seen := make(map[int]bool)
	for _, p := range periods {
		from, okF := parseHHMM(p.StartsAt)
		to, okT := parseHHMM(p.EndsAt)
		if !okF || !okT || to <= from {
			log.WithFields(logrus.Fields{
				"index": p.Index,
				"from":  p.StartsAt,
				"to":    p.EndsAt,
			}).Warn("Skipping period with invalid time range")
			continue
		}
		tl.classes[p.Index] = append(tl.classes[p.Index], classRef{
			Class:   p.ClassName,
			Subject: p.Subject,
			Teacher: p.Teacher,
		})
		if seen[p.Index] {
			continue
		}
		seen[p.Index] = true
		tl.blocks = append(tl.blocks, block{
			Kind:  display.BlockPeriod,
			Label: periodLabel(p.Index),
			Index: p.Index,
			From:  from,
			To:    to,
		})
	}
	for _, b := range breaks {
		from, ok := parseHHMM(b.StartsAt)
		if !ok || b.DurationMin <= 0 {
			log.WithField("from", b.StartsAt).Warn("Skipping break with invalid time range")
			continue
		}
		label := b.Label
		if label == "" {
			label = labelBreak
		}
		tl.blocks = append(tl.blocks, block{
			Kind:  display.BlockBreak,
			Label: label,
			From:  from,
			To:    from + b.DurationMin,
		})
	}
	sort.SliceStable(tl.blocks, func(i, j int) bool {
		if tl.blocks[i].From != tl.blocks[j].From {
			return tl.blocks[i].From < tl.blocks[j].From
		}
		return tl.blocks[i].To < tl.blocks[j].To
	})
	return tl
}

// Empty reports whether the day has no scheduled blocks at all.
func (tl *Timeline) Empty() bool {
	return len(tl.blocks) == 0
}

// DayPath renders the ordered block list in wire form. Always non-nil so an
// empty day marshals as [].
func (tl *Timeline) DayPath() []display.DayPathEntry {
	out := make([]display.DayPathEntry, 0, len(tl.blocks))
	for _, b := range tl.blocks {
		out = append(out, display.DayPathEntry{
			From:  fmtHHMM(b.From),
			To:    fmtHHMM(b.To),
			Label: b.Label,
			Kind:  b.Kind,
		})
	}
	return out
}

// Window returns the padded active window, or nil for an empty day. Inside
// the window devices poll aggressively; outside they relax.
func (tl *Timeline) Window() *display.ActiveWindow {
	if tl.Empty() {
		return nil
	}
	margin := int(params.DisplayConfig().ActiveWindowMargin.Minutes())
	return &display.ActiveWindow{
		Start: fmtHHMM(tl.blocks[0].From - margin),
		End:   fmtHHMM(tl.blocks[len(tl.blocks)-1].To + margin),
	}
}

// InWindow reports whether the given local time falls inside the padded
// active window.
func (tl *Timeline) InWindow(now time.Time) bool {
	if tl.Empty() {
		return false
	}
	margin := int(params.DisplayConfig().ActiveWindowMargin.Minutes())
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= tl.blocks[0].From-margin && minutes < tl.blocks[len(tl.blocks)-1].To+margin
}
