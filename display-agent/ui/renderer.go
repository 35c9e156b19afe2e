package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	nodeapi "github.com/azzam1122112-dot/school-display/api/client/display"
	api "github.com/azzam1122112-dot/school-display/api/display"
	ansi "github.com/k0kubun/go-ansi"
	"github.com/logrusorgru/aurora"
	"github.com/schollz/progressbar/v3"
)

const (
	frameWidth = 80
	listHeight = 6
)

// renderer repaints the terminal in place with ANSI cursor control. It owns
// nothing but presentation; a paint must never mutate the frame.
type renderer struct {
	out    io.Writer
	au     aurora.Aurora
	barBuf *bytes.Buffer
	bar    *progressbar.ProgressBar
}

func newRenderer(out io.Writer, colors bool) *renderer {
	if out == nil {
		out = ansi.NewAnsiStdout()
	}
	theme := progressbar.Theme{Saucer: "=", SaucerHead: ">", SaucerPadding: " ", BarStart: "[", BarEnd: "]"}
	if colors {
		theme = progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}
	}
	buf := &bytes.Buffer{}
	return &renderer{
		out:    out,
		au:     aurora.NewAurora(colors),
		barBuf: buf,
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(buf),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(colors),
			progressbar.OptionSetTheme(theme),
		),
	}
}

func (r *renderer) paintBoot() {
	var b strings.Builder
	b.WriteString("\x1b[H")
	b.WriteString("Waiting for the first snapshot...\x1b[K\n")
	b.WriteString("\x1b[J")
	fmt.Fprint(r.out, b.String())
}

// paintBlocked draws the operator blocker screen. The poll loop has parked;
// only an unbind or a new token gets the screen back.
func (r *renderer) paintBlocked(be *nodeapi.BindingError) {
	var b strings.Builder
	b.WriteString("\x1b[H")
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\x1b[K\n")
	}
	line(fmt.Sprint(r.au.Red("SCREEN BLOCKED").Bold()))
	line("")
	line(fmt.Sprintf("code:    %s", be.Code))
	if be.Message != "" {
		line(fmt.Sprintf("reason:  %s", be.Message))
	}
	line("")
	line("This screen was refused by the server. Contact the administrator")
	line("to unbind the device or issue a new display token, then restart.")
	b.WriteString("\x1b[J")
	fmt.Fprint(r.out, b.String())
}

func (r *renderer) paint(f *Frame, elapsed time.Duration) {
	var b strings.Builder
	b.WriteString("\x1b[H")
	line := func(s string) {
		b.WriteString(truncate(s, frameWidth*2))
		b.WriteString("\x1b[K\n")
	}

	line(joinParts(fmt.Sprint(r.au.Bold(f.SchoolName)), f.DateLine))
	line(joinParts(f.Clock, r.stateBadge(f.StateType)))
	line("")

	headline := f.Headline
	if f.Detail != "" {
		headline = joinParts(headline, f.Detail)
	}
	line(fmt.Sprint(r.au.Bold(headline)))
	if f.Span != "" {
		line(joinParts(f.Span, fmt.Sprint(r.au.Bold(f.Countdown))))
	}
	if f.Progress >= 0 && f.StateType == api.StatePeriod {
		line(r.progressLine(f.Progress))
	}
	line("")

	if len(f.DayPath) > 0 {
		line(r.dayPathLine(f))
		line("")
	}

	r.paintList(line, "standby", marqueeRows(f.Standby, listHeight, elapsed, f.StandbySpeed))
	if f.FeaturedPanel == api.PanelDuty {
		r.paintList(line, "duty", marqueeRows(f.DutyRows, listHeight, elapsed, f.PeriodsSpeed))
	} else {
		r.paintList(line, "periods", marqueeRows(f.PeriodRows, listHeight, elapsed, f.PeriodsSpeed))
	}

	if f.Announcement != "" {
		line(fmt.Sprint(r.au.Cyan(">> "), f.Announcement))
	}
	if f.Excellence != "" {
		line(fmt.Sprint(r.au.Magenta("** "), f.Excellence))
	}
	if f.StaleWarning != "" {
		line(fmt.Sprint(r.au.Yellow("! " + f.StaleWarning)))
	}
	if f.Alert != "" {
		line(fmt.Sprint(r.au.Red("! " + f.Alert)))
	}

	b.WriteString("\x1b[J")
	fmt.Fprint(r.out, b.String())
}

func (r *renderer) paintList(line func(string), title string, rows []string) {
	if len(rows) == 0 {
		return
	}
	line(fmt.Sprint(r.au.Bold(title)))
	for _, row := range rows {
		line("  " + row)
	}
	line("")
}

func (r *renderer) progressLine(pct int) string {
	r.barBuf.Reset()
	_ = r.bar.Set(pct)
	return strings.TrimPrefix(r.barBuf.String(), "\r")
}

func (r *renderer) dayPathLine(f *Frame) string {
	cells := make([]string, 0, len(f.DayPath))
	for i, c := range f.DayPath {
		if i == f.ActiveCell {
			cells = append(cells, fmt.Sprintf("[%s]", r.au.Green(c)))
			continue
		}
		cells = append(cells, c)
	}
	return strings.Join(cells, "  ")
}

func (r *renderer) stateBadge(t api.StateType) string {
	switch t {
	case api.StatePeriod:
		return fmt.Sprint(r.au.Green(string(t)))
	case api.StateBreak:
		return fmt.Sprint(r.au.Yellow(string(t)))
	default:
		return string(t)
	}
}

// truncate trims overlong plain lines. Colored lines pass through untouched,
// cutting inside an escape sequence corrupts the whole row.
func truncate(s string, max int) string {
	if len(s) <= max || strings.ContainsRune(s, '\x1b') {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
