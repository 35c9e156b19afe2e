package display

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/require"
)

func TestDocumentMarshal_NullPeriodsAndArrays(t *testing.T) {
	doc := Document{
		State:         State{Type: StateOff, Label: "يوم إجازة"},
		DayPath:       []DayPathEntry{},
		Standby:       []RosterEntry{},
		PeriodClasses: []RosterEntry{},
		Duty:          Duty{Items: []DutyItem{}},
		Announcements: []Announcement{},
		Excellence:    []Excellence{},
		Now:           "2025-09-01T06:00:00+03:00",
		Meta:          Meta{ScheduleRevision: 7, LocalDate: "2025-09-01"},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	s := string(b)

	assert.Equal(t, true, strings.Contains(s, `"current_period":null`))
	assert.Equal(t, true, strings.Contains(s, `"next_period":null`))
	assert.Equal(t, true, strings.Contains(s, `"day_path":[]`))
	assert.Equal(t, true, strings.Contains(s, `"standby":[]`))
	assert.Equal(t, true, strings.Contains(s, `"items":[]`))
	assert.Equal(t, true, strings.Contains(s, `"schedule_revision":7`))
	// is_stale is omitted on fresh documents.
	assert.Equal(t, false, strings.Contains(s, "is_stale"))
	assert.Equal(t, false, strings.Contains(s, "stale_warning"))
}

func TestDocumentMarshal_StaleFlagSurvivesRoundTrip(t *testing.T) {
	doc := Document{
		State:         State{Type: StatePeriod, Label: "الرياضيات", From: "08:00", To: "08:45", RemainingSeconds: 300, PeriodIndex: 2},
		CurrentPeriod: &PeriodRef{Index: 2, Class: "1-أ", Subject: "الرياضيات", Teacher: "خالد", From: "08:00", To: "08:45"},
		Meta:          Meta{ScheduleRevision: 42, WSEnabled: true, IsStale: true, StaleWarning: "يتم تحديث البيانات", LocalDate: "2025-09-01"},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, true, got.Meta.IsStale)
	assert.Equal(t, int64(42), got.Meta.ScheduleRevision)
	require.NotNil(t, got.CurrentPeriod)
	assert.Equal(t, 2, got.CurrentPeriod.Index)
	assert.Equal(t, StatePeriod, got.State.Type)
}

func TestStatusResponseShape(t *testing.T) {
	b, err := json.Marshal(StatusResponse{ScheduleRevision: 12, FetchRequired: true})
	require.NoError(t, err)
	assert.Equal(t, `{"schedule_revision":12,"fetch_required":true}`, string(b))
}

func TestErrorResponseShape(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Code: CodeScreenBound, Message: "screen is active on another device"})
	require.NoError(t, err)
	assert.Equal(t, `{"code":"screen_bound","message":"screen is active on another device"}`, string(b))
}

func TestWSMessage_RevisionOmittedOnPong(t *testing.T) {
	b, err := json.Marshal(WSMessage{Type: MsgPong})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pong"}`, string(b))

	b, err = json.Marshal(WSMessage{Type: MsgInvalidate, Revision: 99})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"invalidate","revision":99}`, string(b))
}
