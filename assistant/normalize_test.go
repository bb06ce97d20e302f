package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicdesk/clinic-assistant/types"
)

// Monday, 10 March 2025, 09:00 local.
var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.Local)

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "John Smith", TitleCase("john smith"))
	assert.Equal(t, "John Smith", TitleCase("  JOHN   SMITH  "))
	assert.Equal(t, "", TitleCase(""))
	assert.Equal(t, "O'brien", TitleCase("o'brien"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"200", 200, true},
		{"1,250.50", 1250.50, true},
		{"$99.99", 99.99, true},
		{"  € 42 ", 42, true},
		{"", 0, false},
		{"a lot", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if ok {
			assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		context string
		want    string
	}{
		{"explicit numeric", "13-07-2025", "", "13-07-2025"},
		{"iso", "2025-07-13", "", "13-07-2025"},
		{"day month", "", "book sam on 13 july", "13-07-2025"},
		{"month day", "", "book sam on july 13", "13-07-2025"},
		{"weekday resolves forward", "", "see dr lee on friday", "14-03-2025"},
		{"same weekday means next week", "", "monday please", "17-03-2025"},
		{"tomorrow", "", "tomorrow at 3pm", "11-03-2025"},
		{"missing defaults to today", "", "book something", "10-03-2025"},
		{"past date without year rolls forward", "", "book on 5 january", "05-01-2026"},
		{"past date with explicit year stays", "", "book on 5 january 2025", "05-01-2025"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := NormalizeDate(tc.raw, tc.context, testNow)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeDate_Pretty(t *testing.T) {
	_, pretty := NormalizeDate("13-07-2025", "", testNow)
	assert.Equal(t, "July 13, 2025", pretty)
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		context string
		want    string
	}{
		{"slot already 12h", "03:00 PM", "", "03:00 PM"},
		{"bare meridiem in text", "", "book sam at 3pm", "03:00 PM"},
		{"minutes kept", "", "at 3:45 pm", "03:45 PM"},
		{"24h converted", "", "come at 15:30", "03:30 PM"},
		{"24h morning", "", "come at 09:05", "09:05 AM"},
		{"midnight", "", "at 00:30", "12:30 AM"},
		{"noon default", "", "book sam on friday", "12:00 PM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTime(tc.raw, tc.context))
		})
	}
}

func TestNormalizeAppointment(t *testing.T) {
	appt, pretty := NormalizeAppointment(
		"book jane smith on friday at 3pm",
		types.Slots{Name: "jane smith"},
		testNow,
	)
	assert.Equal(t, types.Appointment{Name: "Jane Smith", Date: "14-03-2025", Time: "03:00 PM"}, appt)
	assert.Equal(t, "March 14, 2025", pretty)
}

func TestNormalize_Idempotent(t *testing.T) {
	// normalized output run through again must not drift
	date, _ := NormalizeDate("14-03-2025", "14-03-2025", testNow)
	assert.Equal(t, "14-03-2025", date)
	assert.Equal(t, "03:00 PM", NormalizeTime("03:00 PM", ""))
}
