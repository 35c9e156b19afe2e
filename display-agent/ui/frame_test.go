package ui

import (
	"testing"
	"time"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func schoolDoc() *api.Document {
	return &api.Document{
		Settings: api.Settings{
			Name:               "مدرسة النور",
			StandbyScrollSpeed: 24,
			PeriodsScrollSpeed: 24,
			FeaturedPanel:      api.PanelExcellence,
		},
		DayPath: []api.DayPathEntry{
			{From: "08:00", To: "08:45", Label: "رياضيات", Kind: api.BlockPeriod},
			{From: "08:45", To: "09:00", Label: "استراحة", Kind: api.BlockBreak},
			{From: "09:00", To: "09:45", Label: "علوم", Kind: api.BlockPeriod},
			{From: "10:00", To: "10:45", Label: "لغتي", Kind: api.BlockPeriod},
		},
		Standby: []api.RosterEntry{
			{PeriodIndex: 1, Class: "3أ", Teacher: "أحمد"},
			{PeriodIndex: 2, Class: "4ب", Teacher: "سعيد"},
			{PeriodIndex: 3, Class: "5ج", Teacher: "خالد"},
		},
		PeriodClasses: []api.RosterEntry{
			{PeriodIndex: 1, Class: "3أ", Subject: "رياضيات", Teacher: "أحمد"},
			{PeriodIndex: 2, Class: "4ب", Subject: "علوم", Teacher: "سعيد"},
			{PeriodIndex: 3, Class: "5ج", Subject: "لغتي", Teacher: "خالد"},
		},
		Duty: api.Duty{Items: []api.DutyItem{
			{Teacher: "فهد", DutyLabel: "إشراف الفسحة", Location: "الساحة"},
		}},
		Announcements: []api.Announcement{
			{Title: "تنبيه", Body: "اجتماع المعلمين اليوم"},
			{Title: "تهنئة", Body: "فوز فريق المدرسة"},
		},
		Excellence: []api.Excellence{{Name: "سارة", Reason: "حفظ القرآن"}},
		DateInfo: api.DateInfo{
			Gregorian: api.CalendarDate{Formatted: "2026-03-02"},
			Hijri:     api.CalendarDate{Formatted: "13 رمضان 1447"},
		},
		Meta: api.Meta{ScheduleRevision: 4, IsSchoolDay: true},
	}
}

func at(hh, mm, ss int) DeriveOpts {
	return DeriveOpts{
		Now: time.Date(2026, 3, 2, hh, mm, ss, 0, time.UTC),
		Loc: time.UTC,
	}
}

func TestDerive_BeforeSchool(t *testing.T) {
	f := Derive(schoolDoc(), at(7, 30, 0))

	assert.Equal(t, api.StateBefore, f.StateType)
	assert.Equal(t, api.LabelBeforeSchool, f.Headline)
	assert.Equal(t, "30:00", f.Countdown)
	assert.Equal(t, -1, f.Progress, "no block, no progress")
	assert.Equal(t, 1, f.PeriodIndex)
	assert.Equal(t, 3, len(f.Standby), "nothing is filtered before the first period")
	assert.Equal(t, -1, f.ActiveCell)
}

func TestDerive_InsidePeriod(t *testing.T) {
	f := Derive(schoolDoc(), at(8, 10, 0))

	assert.Equal(t, api.StatePeriod, f.StateType)
	assert.Equal(t, "رياضيات", f.Headline)
	assert.Equal(t, "08:00 - 08:45", f.Span)
	assert.Equal(t, "35:00", f.Countdown)
	assert.Equal(t, 22, f.Progress)
	assert.Equal(t, 1, f.PeriodIndex)
	assert.Equal(t, 0, f.ActiveCell)
	assert.Equal(t, "رياضيات · 3أ · أحمد", f.Detail)
	assert.Equal(t, 3, len(f.PeriodRows))
	assert.Equal(t, 1, len(f.DutyRows))
}

func TestDerive_ScheduledBreakKeepsBlockLabel(t *testing.T) {
	f := Derive(schoolDoc(), at(8, 50, 0))

	assert.Equal(t, api.StateBreak, f.StateType)
	assert.Equal(t, "استراحة", f.Headline)
	assert.Equal(t, "10:00", f.Countdown)
	assert.Equal(t, 2, f.PeriodIndex, "a break shows the upcoming period's lists")
	assert.Equal(t, 2, len(f.Standby), "period 1 rows are behind us")
}

func TestDerive_GapBetweenBlocksIsABreak(t *testing.T) {
	f := Derive(schoolDoc(), at(9, 50, 0))

	assert.Equal(t, api.StateBreak, f.StateType)
	assert.Equal(t, api.LabelBreak, f.Headline)
	assert.Equal(t, "09:45 - 10:00", f.Span)
	assert.Equal(t, "10:00", f.Countdown)
	assert.Equal(t, 3, f.PeriodIndex)
	assert.Equal(t, 1, len(f.Standby))
	assert.Equal(t, -1, f.ActiveCell, "a gap highlights no day path cell")
}

func TestDerive_AfterSchoolEmptiesLists(t *testing.T) {
	f := Derive(schoolDoc(), at(11, 0, 0))

	assert.Equal(t, api.StateAfter, f.StateType)
	assert.Equal(t, api.LabelDayOver, f.Headline)
	assert.Equal(t, true, f.DayOver)
	assert.Equal(t, "", f.Countdown)
	assert.Equal(t, 0, f.PeriodIndex)
	assert.Equal(t, 0, len(f.Standby))
	assert.Equal(t, 0, len(f.PeriodRows))
	assert.Equal(t, 0, len(f.DutyRows))
}

func TestDerive_EmptyDayPathIsOffDay(t *testing.T) {
	doc := schoolDoc()
	doc.DayPath = nil

	f := Derive(doc, at(9, 0, 0))
	assert.Equal(t, api.StateOff, f.StateType)
	assert.Equal(t, api.LabelDayOff, f.Headline)
	assert.Equal(t, 0, f.PeriodIndex)
}

func TestDerive_RotationIndices(t *testing.T) {
	doc := schoolDoc()
	opts := at(8, 10, 0)
	opts.AnnIndex = 3

	f := Derive(doc, opts)
	assert.Equal(t, "تهنئة · فوز فريق المدرسة", f.Announcement, "index wraps around the list")

	opts.AnnIndex = -1
	f = Derive(doc, opts)
	assert.Equal(t, "", f.Announcement)
	assert.Equal(t, "سارة · حفظ القرآن", f.Excellence)
}

func TestDerive_StaleWarningPassesThrough(t *testing.T) {
	doc := schoolDoc()
	doc.Meta.IsStale = true
	doc.Meta.StaleWarning = "عرض نسخة سابقة من الجدول"

	f := Derive(doc, at(8, 10, 0))
	assert.Equal(t, "عرض نسخة سابقة من الجدول", f.StaleWarning)
}

func TestDerive_MalformedPathEntriesAreSkipped(t *testing.T) {
	doc := schoolDoc()
	doc.DayPath = append([]api.DayPathEntry{{From: "late", To: "08:00", Label: "bad", Kind: api.BlockPeriod}}, doc.DayPath...)

	f := Derive(doc, at(8, 10, 0))
	require.Equal(t, api.StatePeriod, f.StateType)
	assert.Equal(t, 1, f.PeriodIndex, "the unparseable entry must not shift period numbering")
	assert.Equal(t, "رياضيات", f.Headline)
}

func TestDerive_TimezoneShiftsTheClock(t *testing.T) {
	doc := schoolDoc()
	opts := DeriveOpts{
		// 05:10 UTC reads as 08:10 in the school's zone.
		Now: time.Date(2026, 3, 2, 5, 10, 0, 0, time.UTC),
		Loc: time.FixedZone("AST", 3*3600),
	}

	f := Derive(doc, opts)
	assert.Equal(t, api.StatePeriod, f.StateType)
	assert.Equal(t, "08:10:00", f.Clock)
}

func TestFmtCountdown(t *testing.T) {
	assert.Equal(t, "00:00", fmtCountdown(0))
	assert.Equal(t, "00:09", fmtCountdown(9))
	assert.Equal(t, "59:59", fmtCountdown(3599))
	assert.Equal(t, "1:00:00", fmtCountdown(3600))
	assert.Equal(t, "2:05:04", fmtCountdown(2*3600+5*60+4))
	assert.Equal(t, "00:00", fmtCountdown(-5))
}
