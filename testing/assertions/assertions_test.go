package assertions_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/azzam1122112-dot/school-display/testing/assertions"
	"github.com/azzam1122112-dot/school-display/testing/require"
	"github.com/sirupsen/logrus"
	logTest "github.com/sirupsen/logrus/hooks/test"
)

func TestAssert_Equal(t *testing.T) {
	type args struct {
		tb       *assertions.TBMock
		expected interface{}
		actual   interface{}
		msgs     []interface{}
	}
	tests := []struct {
		name        string
		args        args
		expectedErr string
	}{
		{
			name: "equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   42,
			},
		},
		{
			name: "non-equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
			},
			expectedErr: "Values are not equal, got: 41, want: 42",
		},
		{
			name: "custom error message",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
				msgs:     []interface{}{"Custom values are not equal"},
			},
			expectedErr: "Custom values are not equal, got: 41, want: 42",
		},
		{
			name: "custom error message with params",
			args: args{
				tb:       &assertions.TBMock{},
				expected: 42,
				actual:   41,
				msgs:     []interface{}{"Custom values are not equal (for slot %d)", 12},
			},
			expectedErr: "Custom values are not equal (for slot 12), got: 41, want: 42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(tt.args.tb, tt.args.expected, tt.args.actual, tt.args.msgs...)
			if !strings.Contains(tt.args.tb.ErrMsg, tt.expectedErr) {
				t.Errorf("got: %q, want: %q", tt.args.tb.ErrMsg, tt.expectedErr)
			}
		})
	}
}

func TestAssert_DeepEqual(t *testing.T) {
	type args struct {
		tb       *assertions.TBMock
		expected interface{}
		actual   interface{}
	}
	tests := []struct {
		name        string
		args        args
		expectedErr string
	}{
		{
			name: "equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: struct{ i int }{42},
				actual:   struct{ i int }{42},
			},
		},
		{
			name: "non-equal values",
			args: args{
				tb:       &assertions.TBMock{},
				expected: struct{ i int }{42},
				actual:   struct{ i int }{41},
			},
			expectedErr: "Values are not equal, got: {41}, want: {42}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.DeepEqual(tt.args.tb, tt.args.expected, tt.args.actual)
			if !strings.Contains(tt.args.tb.ErrMsg, tt.expectedErr) {
				t.Errorf("got: %q, want: %q", tt.args.tb.ErrMsg, tt.expectedErr)
			}
		})
	}
}

func TestAssert_NoError(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.NoError(tb, nil)
	if tb.ErrMsg != "" {
		t.Errorf("unexpected error message: %q", tb.ErrMsg)
	}
	assert.NoError(tb, errors.New("failed"))
	if !strings.Contains(tb.ErrMsg, "Unexpected error: failed") {
		t.Errorf("got: %q", tb.ErrMsg)
	}
}

func TestAssert_ErrorContains(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.ErrorContains(tb, "failed", errors.New("something failed here"))
	if tb.ErrMsg != "" {
		t.Errorf("unexpected error message: %q", tb.ErrMsg)
	}
	assert.ErrorContains(tb, "missing", errors.New("something failed here"))
	if !strings.Contains(tb.ErrMsg, "No expected error existed") {
		t.Errorf("got: %q", tb.ErrMsg)
	}
}

func TestAssert_ErrorIs(t *testing.T) {
	sentinel := errors.New("token unknown")
	tb := &assertions.TBMock{}
	assert.ErrorIs(tb, sentinel, sentinel)
	if tb.ErrMsg != "" {
		t.Errorf("unexpected error message: %q", tb.ErrMsg)
	}
	assert.ErrorIs(tb, errors.New("other"), sentinel)
	if !strings.Contains(tb.ErrMsg, "Unexpected error") {
		t.Errorf("got: %q", tb.ErrMsg)
	}
}

func TestAssert_NotNil(t *testing.T) {
	tb := &assertions.TBMock{}
	var typedNil *struct{ i int }
	assert.NotNil(tb, typedNil)
	if !strings.Contains(tb.ErrMsg, "Unexpected nil value") {
		t.Errorf("got: %q", tb.ErrMsg)
	}

	tb = &assertions.TBMock{}
	assert.NotNil(tb, &struct{ i int }{42})
	if tb.ErrMsg != "" {
		t.Errorf("unexpected error message: %q", tb.ErrMsg)
	}
}

func TestRequire_NoErrorUsesFatal(t *testing.T) {
	tb := &assertions.TBMock{}
	require.NoError(tb, errors.New("failed"))
	if !strings.Contains(tb.FatalMsg, "Unexpected error: failed") {
		t.Errorf("got: %q", tb.FatalMsg)
	}
	if tb.ErrMsg != "" {
		t.Errorf("unexpected non-fatal message: %q", tb.ErrMsg)
	}
}

func TestAssert_LogsContain(t *testing.T) {
	hook := logTest.NewGlobal()
	logrus.WithField("prefix", "cache").Info("snapshot build lock acquired")

	tb := &assertions.TBMock{}
	assert.LogsContain(tb, hook, "build lock acquired")
	if tb.ErrMsg != "" {
		t.Errorf("unexpected error message: %q", tb.ErrMsg)
	}

	tb = &assertions.TBMock{}
	assert.LogsDoNotContain(tb, hook, "build lock acquired")
	if !strings.Contains(tb.ErrMsg, "Unexpected log found") {
		t.Errorf("got: %q", tb.ErrMsg)
	}

	tb = &assertions.TBMock{}
	assert.LogsContain(tb, hook, "stale snapshot served")
	if !strings.Contains(tb.ErrMsg, "Expected log not found") {
		t.Errorf("got: %q", tb.ErrMsg)
	}
}
