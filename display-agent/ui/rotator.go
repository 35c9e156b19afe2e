package ui

import "time"

// rotator steps an index through a list on a fixed cadence. An empty list
// suspends rotation; the cadence restarts when content returns.
type rotator struct {
	interval time.Duration
	last     time.Time
	pos      int
}

func newRotator(interval time.Duration) *rotator {
	return &rotator{interval: interval}
}

func (r *rotator) index(now time.Time, n int) int {
	if n <= 0 {
		r.last = now
		return -1
	}
	if r.last.IsZero() {
		r.last = now
	}
	for now.Sub(r.last) >= r.interval {
		r.pos++
		r.last = r.last.Add(r.interval)
	}
	return r.pos % n
}

// rowHeightPx converts the school's scroll speed, expressed in pixels per
// second, into rows per second on a character terminal.
const rowHeightPx = 24.0

// marqueeRows windows a vertical marquee over rows. Content that fits the
// viewport is returned as is; longer content wraps around continuously, the
// terminal analogue of the dual-copy scroller.
func marqueeRows(rows []string, height int, elapsed time.Duration, speed float64) []string {
	if height <= 0 || len(rows) == 0 {
		return nil
	}
	if len(rows) <= height {
		return rows
	}
	if speed <= 0 {
		speed = rowHeightPx
	}
	step := int(elapsed.Seconds() * speed / rowHeightPx)
	out := make([]string, 0, height)
	for i := 0; i < height; i++ {
		out = append(out, rows[(step+i)%len(rows)])
	}
	return out
}
