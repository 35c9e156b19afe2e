package util

import (
	"encoding/hex"
	"encoding/json"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/crypto/hash"
	"github.com/azzam1122112-dot/school-display/display-node/store"
)

// NewDocument creates a display document with minimum marshalable fields,
// pinned to an off day so no clock math is involved.
func NewDocument(rev int64) *display.Document {
	return &display.Document{
		DayPath:       []display.DayPathEntry{},
		Standby:       []display.RosterEntry{},
		PeriodClasses: []display.RosterEntry{},
		Duty:          display.Duty{Items: []display.DutyItem{}},
		Announcements: []display.Announcement{},
		Excellence:    []display.Excellence{},
		State:         display.State{Type: display.StateOff, Label: "يوم إجازة"},
		Meta:          display.Meta{ScheduleRevision: rev, LocalDate: "2026-08-25"},
	}
}

// DocumentBytes marshals NewDocument(rev).
func DocumentBytes(rev int64) []byte {
	body, _ := json.Marshal(NewDocument(rev))
	return body
}

// SavedDocument wraps DocumentBytes in a store entry shaped the way the
// build path persists one: quoted hex ETag over the body, fixed build time.
func SavedDocument(rev int64) *store.Saved {
	body := DocumentBytes(rev)
	sum := hash.Hash256(body)
	return &store.Saved{
		Body:    body,
		ETag:    `"` + hex.EncodeToString(sum[:]) + `"`,
		BuiltMS: 1756000000000,
	}
}
