package util

import (
	"context"
	"time"

	"github.com/azzam1122112-dot/school-display/display-node/db"
)

// FakeScheduleSource answers the snapshot builder's queries from fixed rows.
// Error fields, when set, surface on the matching call.
type FakeScheduleSource struct {
	SchoolSettings *db.SchoolSettings
	SettingsErr    error
	DayActive      bool
	DayFound       bool
	Periods        []db.SchedulePeriod
	Breaks         []db.BreakBlock
	Standby        []db.StandbyEntry
	Duty           []db.DutyEntry
	DutyErr        error
	Announcements  []db.AnnouncementRow
	Excellence     []db.ExcellenceRow
}

// SchoolDaySource returns a source primed with a small but fully populated
// school day for school 7: two morning lessons, one standby fill-in, one
// supervision duty, an announcement and an excellence entry.
func SchoolDaySource() *FakeScheduleSource {
	return &FakeScheduleSource{
		SchoolSettings: &db.SchoolSettings{
			SchoolID:           7,
			Name:               "متوسطة النور",
			Theme:              "dark",
			TimezoneName:       "UTC",
			RefreshIntervalSec: 45,
			StandbyScrollSpeed: 1.2,
			PeriodsScrollSpeed: 0.5,
			FeaturedPanel:      "duty",
		},
		DayActive: true,
		DayFound:  true,
		Periods: []db.SchedulePeriod{
			{Index: 1, ClassName: "أول/1", Subject: "رياضيات", Teacher: "أ. محمد", StartsAt: "07:00", EndsAt: "07:45"},
			{Index: 2, ClassName: "أول/1", Subject: "علوم", Teacher: "أ. سالم", StartsAt: "08:00", EndsAt: "08:45"},
		},
		Standby: []db.StandbyEntry{
			{PeriodIndex: 2, ClassName: "ثالث/2", Subject: "علوم", Teacher: "أ. بدر"},
		},
		Duty: []db.DutyEntry{
			{TeacherName: "أ. فهد", DutyType: "supervision", DutyLabel: "إشراف الفسحة", Location: "الساحة"},
		},
		Announcements: []db.AnnouncementRow{{ID: 42, Title: "تنبيه", Body: "اجتماع الأحد"}},
		Excellence:    []db.ExcellenceRow{{Name: "خالد", Reason: "أول الفصل", ImageURL: "https://cdn/img.png"}},
	}
}

func (f *FakeScheduleSource) Settings(_ context.Context, _ int64) (*db.SchoolSettings, error) {
	if f.SettingsErr != nil {
		return nil, f.SettingsErr
	}
	return f.SchoolSettings, nil
}

func (f *FakeScheduleSource) SchoolDay(_ context.Context, _ int64, _ int) (bool, bool, error) {
	return f.DayActive, f.DayFound, nil
}

func (f *FakeScheduleSource) PeriodsForWeekday(_ context.Context, _ int64, _ int) ([]db.SchedulePeriod, error) {
	return f.Periods, nil
}

func (f *FakeScheduleSource) BreaksForWeekday(_ context.Context, _ int64, _ int) ([]db.BreakBlock, error) {
	return f.Breaks, nil
}

func (f *FakeScheduleSource) StandbyForDate(_ context.Context, _ int64, _ time.Time) ([]db.StandbyEntry, error) {
	return f.Standby, nil
}

func (f *FakeScheduleSource) DutyForDate(_ context.Context, _ int64, _ time.Time) ([]db.DutyEntry, error) {
	if f.DutyErr != nil {
		return nil, f.DutyErr
	}
	return f.Duty, nil
}

func (f *FakeScheduleSource) ActiveAnnouncements(_ context.Context, _ int64, _ time.Time) ([]db.AnnouncementRow, error) {
	return f.Announcements, nil
}

func (f *FakeScheduleSource) ActiveExcellence(_ context.Context, _ int64, _ time.Time) ([]db.ExcellenceRow, error) {
	return f.Excellence, nil
}
