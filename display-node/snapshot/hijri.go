package snapshot

import (
	"fmt"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
)

// Hijri dates use the tabular civil calendar (30-year intercalation cycle).
// It tracks the announced Umm al-Qura dates within a day, which is enough
// for a wall display banner.

var hijriMonths = [12]string{
	"محرم", "صفر", "ربيع الأول", "ربيع الآخر",
	"جمادى الأولى", "جمادى الآخرة", "رجب", "شعبان",
	"رمضان", "شوال", "ذو القعدة", "ذو الحجة",
}

var gregorianMonths = [12]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "الأحد",
	time.Monday:    "الاثنين",
	time.Tuesday:   "الثلاثاء",
	time.Wednesday: "الأربعاء",
	time.Thursday:  "الخميس",
	time.Friday:    "الجمعة",
	time.Saturday:  "السبت",
}

// julianDayNumber converts a Gregorian calendar date to its Julian day
// number at noon.
func julianDayNumber(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// hijriFromJDN is the tabular conversion. All intermediates are positive for
// any date after the Hijri epoch, so Go's truncating division behaves as the
// floor the formula expects.
func hijriFromJDN(jdn int) (year, month, day int) {
	l := jdn - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29
	month = (24 * l) / 709
	day = l - (709*month)/24
	year = 30*n + j - 30
	return year, month, day
}

func hijriDate(t time.Time) display.CalendarDate {
	y, m, d := hijriFromJDN(julianDayNumber(t.Year(), int(t.Month()), t.Day()))
	name := ""
	if m >= 1 && m <= 12 {
		name = hijriMonths[m-1]
	}
	return display.CalendarDate{
		Year:      y,
		Month:     m,
		Day:       d,
		MonthName: name,
		Weekday:   weekdayNames[t.Weekday()],
		Formatted: fmt.Sprintf("%d %s %d", d, name, y),
	}
}

func gregorianDate(t time.Time) display.CalendarDate {
	name := gregorianMonths[int(t.Month())-1]
	return display.CalendarDate{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		MonthName: name,
		Weekday:   weekdayNames[t.Weekday()],
		Formatted: fmt.Sprintf("%d %s %d", t.Day(), name, t.Year()),
	}
}

// DateBanner assembles both calendar readings for the snapshot.
func DateBanner(t time.Time) display.DateInfo {
	return display.DateInfo{
		Gregorian: gregorianDate(t),
		Hijri:     hijriDate(t),
	}
}
