package snapshot

import (
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
)

// Evaluation is the live reading of a timeline at one instant.
type Evaluation struct {
	State          display.State
	CurrentPeriod  *display.PeriodRef
	NextPeriod     *display.PeriodRef
	IsActiveWindow bool
	Window         *display.ActiveWindow
}

// secondsOfDay ignores the date part; day boundaries are handled by the
// weekday selection upstream.
func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func clampRemaining(boundaryMin, nowSec int) int64 {
	rem := int64(boundaryMin*60 - nowSec)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// periodRef builds the wire reference for a period block. Class detail is
// attached only when the slot maps to exactly one class; multi-class slots
// are enumerated in period_classes instead.
func (tl *Timeline) periodRef(b block) *display.PeriodRef {
	ref := &display.PeriodRef{
		Index: b.Index,
		From:  fmtHHMM(b.From),
		To:    fmtHHMM(b.To),
	}
	if rows := tl.classes[b.Index]; len(rows) == 1 {
		ref.Class = rows[0].Class
		ref.Subject = rows[0].Subject
		ref.Teacher = rows[0].Teacher
	}
	return ref
}

// blockLabel prefers the single shared subject for a period slot and falls
// back to the numbered label.
func (tl *Timeline) blockLabel(b block) string {
	if b.Kind != display.BlockPeriod {
		return b.Label
	}
	rows := tl.classes[b.Index]
	subject := ""
	for _, r := range rows {
		if r.Subject == "" {
			continue
		}
		if subject != "" && subject != r.Subject {
			return b.Label
		}
		subject = r.Subject
	}
	if subject != "" {
		return subject
	}
	return b.Label
}

// Evaluate derives the day state at the given local time. An empty timeline
// is an off day. Gaps between blocks read as breaks.
func (tl *Timeline) Evaluate(now time.Time) Evaluation {
	ev := Evaluation{
		Window:         tl.Window(),
		IsActiveWindow: tl.InWindow(now),
	}
	if tl.Empty() {
		ev.State = display.State{Type: display.StateOff, Label: labelOff}
		return ev
	}

	nowSec := secondsOfDay(now)
	nowMin := nowSec / 60
	first, last := tl.blocks[0], tl.blocks[len(tl.blocks)-1]

	ev.NextPeriod = tl.nextPeriodAfter(nowMin)

	switch {
	case nowMin < first.From:
		ev.State = display.State{
			Type:             display.StateBefore,
			Label:            labelBefore,
			To:               fmtHHMM(first.From),
			RemainingSeconds: clampRemaining(first.From, nowSec),
		}
	case nowMin >= last.To:
		ev.State = display.State{
			Type:  display.StateAfter,
			Label: labelAfter,
			From:  fmtHHMM(last.To),
		}
	default:
		ev.State = tl.stateWithin(nowMin, nowSec, &ev)
	}
	return ev
}

// stateWithin handles instants inside the teaching span: either inside a
// block or in a gap between two blocks.
func (tl *Timeline) stateWithin(nowMin, nowSec int, ev *Evaluation) display.State {
	for _, b := range tl.blocks {
		if nowMin < b.From || nowMin >= b.To {
			continue
		}
		st := display.State{
			Type:             display.StateBreak,
			Label:            tl.blockLabel(b),
			From:             fmtHHMM(b.From),
			To:               fmtHHMM(b.To),
			RemainingSeconds: clampRemaining(b.To, nowSec),
		}
		if b.Kind == display.BlockPeriod {
			st.Type = display.StatePeriod
			st.PeriodIndex = b.Index
			ev.CurrentPeriod = tl.periodRef(b)
		}
		return st
	}

	// Between blocks. Find the surrounding pair.
	prevTo := tl.blocks[0].From
	for _, b := range tl.blocks {
		if b.To <= nowMin && b.To > prevTo {
			prevTo = b.To
		}
	}
	nextFrom := tl.blocks[len(tl.blocks)-1].To
	for _, b := range tl.blocks {
		if b.From > nowMin {
			nextFrom = b.From
			break
		}
	}
	return display.State{
		Type:             display.StateBreak,
		Label:            labelBreak,
		From:             fmtHHMM(prevTo),
		To:               fmtHHMM(nextFrom),
		RemainingSeconds: clampRemaining(nextFrom, nowSec),
	}
}

func (tl *Timeline) nextPeriodAfter(nowMin int) *display.PeriodRef {
	for _, b := range tl.blocks {
		if b.Kind == display.BlockPeriod && b.From > nowMin {
			return tl.periodRef(b)
		}
	}
	return nil
}
