// Package ui turns snapshot documents into terminal frames. Derivation is
// pure and re-evaluates the live day state from the document's day path and
// the synced clock on every tick, so the screen walks through period
// boundaries on its own while the poll loop confirms them in the background.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/azzam1122112-dot/school-display/api/display"
)

// Frame is everything one paint needs, derived from a document at an instant.
type Frame struct {
	SchoolName string
	DateLine   string
	Clock      string

	StateType api.StateType
	Headline  string
	Span      string
	Detail    string
	Countdown string
	Remaining int64
	// Progress is the percentage through the current block, -1 outside one.
	Progress int

	DayPath    []string
	ActiveCell int

	// PeriodIndex is the runtime period index driving list filtering: the
	// period in progress, or the next one coming up. Zero means none remain.
	PeriodIndex int
	Standby     []string
	PeriodRows  []string
	DutyRows    []string

	Announcement string
	Excellence   string

	StandbySpeed  float64
	PeriodsSpeed  float64
	FeaturedPanel string

	StaleWarning string
	Alert        string
	DayOver      bool
}

// DeriveOpts carries the per-tick inputs that are not part of the document.
type DeriveOpts struct {
	Now      time.Time
	Loc      *time.Location
	AnnIndex int
	ExcIndex int
}

type liveBlock struct {
	from, to int
	label    string
	kind     api.BlockKind
	period   int
}

func parseHM(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

func fmtHM(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// liveBlocks parses the day path into evaluable blocks, numbering periods by
// their order. Unparseable entries are skipped rather than failing the frame.
func liveBlocks(path []api.DayPathEntry) []liveBlock {
	out := make([]liveBlock, 0, len(path))
	period := 0
	for _, e := range path {
		from, ok1 := parseHM(e.From)
		to, ok2 := parseHM(e.To)
		if !ok1 || !ok2 || to <= from {
			continue
		}
		b := liveBlock{from: from, to: to, label: e.Label, kind: e.Kind}
		if e.Kind == api.BlockPeriod {
			period++
			b.period = period
		}
		out = append(out, b)
	}
	return out
}

type liveState struct {
	typ       api.StateType
	label     string
	from, to  int // minutes from midnight, -1 when the side is open
	remaining int64
	period    int
}

func remainingSec(boundaryMin, nowSec int) int64 {
	rem := int64(boundaryMin*60 - nowSec)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// evaluate walks the blocks the same way the snapshot builder does, so the
// labels and boundaries shown between polls match the next document.
func evaluate(blocks []liveBlock, nowSec int) liveState {
	if len(blocks) == 0 {
		return liveState{typ: api.StateOff, label: api.LabelDayOff, from: -1, to: -1}
	}
	nowMin := nowSec / 60
	first, last := blocks[0], blocks[len(blocks)-1]

	if nowMin < first.from {
		return liveState{
			typ:       api.StateBefore,
			label:     api.LabelBeforeSchool,
			from:      -1,
			to:        first.from,
			remaining: remainingSec(first.from, nowSec),
		}
	}
	if nowMin >= last.to {
		return liveState{typ: api.StateAfter, label: api.LabelDayOver, from: last.to, to: -1}
	}

	for _, b := range blocks {
		if nowMin < b.from || nowMin >= b.to {
			continue
		}
		ls := liveState{
			typ:       api.StateBreak,
			label:     b.label,
			from:      b.from,
			to:        b.to,
			remaining: remainingSec(b.to, nowSec),
		}
		if b.kind == api.BlockPeriod {
			ls.typ = api.StatePeriod
			ls.period = b.period
		}
		return ls
	}

	// Inside the teaching span but between blocks.
	prevTo := first.from
	for _, b := range blocks {
		if b.to <= nowMin && b.to > prevTo {
			prevTo = b.to
		}
	}
	nextFrom := last.to
	for _, b := range blocks {
		if b.from > nowMin {
			nextFrom = b.from
			break
		}
	}
	return liveState{
		typ:       api.StateBreak,
		label:     api.LabelBreak,
		from:      prevTo,
		to:        nextFrom,
		remaining: remainingSec(nextFrom, nowSec),
	}
}

func runtimeIndex(blocks []liveBlock, ls liveState, nowMin int) int {
	if ls.period > 0 {
		return ls.period
	}
	if ls.typ == api.StateAfter || ls.typ == api.StateOff {
		return 0
	}
	for _, b := range blocks {
		if b.kind == api.BlockPeriod && b.from > nowMin {
			return b.period
		}
	}
	return 0
}

func fmtCountdown(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func progressPct(ls liveState, nowSec int) int {
	if ls.from < 0 || ls.to <= ls.from {
		return -1
	}
	span := (ls.to - ls.from) * 60
	done := nowSec - ls.from*60
	if done < 0 {
		done = 0
	}
	if done > span {
		done = span
	}
	return done * 100 / span
}

func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " · ")
}

func rosterLines(rows []api.RosterEntry, idx int) []string {
	if idx == 0 {
		return nil
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.PeriodIndex < idx {
			continue
		}
		out = append(out, joinParts(strconv.Itoa(r.PeriodIndex), r.Class, r.Subject, r.Teacher))
	}
	return out
}

func dutyLines(d api.Duty) []string {
	out := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		out = append(out, joinParts(it.Teacher, it.DutyLabel, it.Location))
	}
	return out
}

// periodDetail finds the class detail line for the active period. Multi-class
// slots stay in the period list; only a single assignment is headlined.
func periodDetail(rows []api.RosterEntry, idx int) string {
	var found *api.RosterEntry
	for i := range rows {
		if rows[i].PeriodIndex != idx {
			continue
		}
		if found != nil {
			return ""
		}
		found = &rows[i]
	}
	if found == nil {
		return ""
	}
	return joinParts(found.Subject, found.Class, found.Teacher)
}

func dayPathCells(blocks []liveBlock, nowMin int) ([]string, int) {
	cells := make([]string, 0, len(blocks))
	active := -1
	for i, b := range blocks {
		cells = append(cells, fmt.Sprintf("%s %s", fmtHM(b.from), b.label))
		if nowMin >= b.from && nowMin < b.to {
			active = i
		}
	}
	return cells, active
}

// Derive evaluates the document at the given instant and assembles the frame.
func Derive(doc *api.Document, o DeriveOpts) *Frame {
	loc := o.Loc
	if loc == nil {
		loc = time.Local
	}
	now := o.Now.In(loc)
	nowSec := secondsOfDay(now)
	nowMin := nowSec / 60

	blocks := liveBlocks(doc.DayPath)
	ls := evaluate(blocks, nowSec)
	idx := runtimeIndex(blocks, ls, nowMin)

	f := &Frame{
		SchoolName:    doc.Settings.Name,
		DateLine:      joinParts(doc.DateInfo.Gregorian.Formatted, doc.DateInfo.Hijri.Formatted),
		Clock:         now.Format("15:04:05"),
		StateType:     ls.typ,
		Headline:      ls.label,
		Remaining:     ls.remaining,
		Progress:      progressPct(ls, nowSec),
		PeriodIndex:   idx,
		StandbySpeed:  doc.Settings.StandbyScrollSpeed,
		PeriodsSpeed:  doc.Settings.PeriodsScrollSpeed,
		FeaturedPanel: doc.Settings.FeaturedPanel,
		StaleWarning:  doc.Meta.StaleWarning,
		DayOver:       ls.typ == api.StateAfter,
	}
	if ls.to >= 0 {
		f.Countdown = fmtCountdown(ls.remaining)
	}
	if ls.from >= 0 && ls.to >= 0 {
		f.Span = fmtHM(ls.from) + " - " + fmtHM(ls.to)
	}
	if ls.typ == api.StatePeriod {
		f.Detail = periodDetail(doc.PeriodClasses, idx)
	}

	f.DayPath, f.ActiveCell = dayPathCells(blocks, nowMin)

	if !f.DayOver {
		f.Standby = rosterLines(doc.Standby, idx)
		f.PeriodRows = rosterLines(doc.PeriodClasses, idx)
		f.DutyRows = dutyLines(doc.Duty)
	}

	if n := len(doc.Announcements); n > 0 && o.AnnIndex >= 0 {
		a := doc.Announcements[o.AnnIndex%n]
		f.Announcement = joinParts(a.Title, a.Body)
	}
	if n := len(doc.Excellence); n > 0 && o.ExcIndex >= 0 {
		e := doc.Excellence[o.ExcIndex%n]
		f.Excellence = joinParts(e.Name, e.Reason)
	}
	return f
}
