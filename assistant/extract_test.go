package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicdesk/clinic-assistant/types"
)

func TestFindName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"book an appointment for jane on friday at 3pm", "Jane"},
		{"book an appointment for jane smith on friday", "Jane Smith"},
		{"appointment for mary jones on monday", "Mary Jones"},
		{"her name is sara lee", "Sara Lee"},
		{"update payment for sara to 200", "Sara"},
		{"book for augusto tomorrow at 10am", "Augusto"},
		{"for janet next tuesday", "Janet"},
		{"book an appointment on friday at 3pm", ""},
		{"for friday at 3pm", ""},
		{"for march 14", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, findName(tc.in), "input: %q", tc.in)
	}
}

func TestIsDateWord(t *testing.T) {
	for _, w := range []string{"friday", "fri", "tuesday", "march", "jan", "december", "tomorrow"} {
		assert.True(t, isDateWord(w), w)
	}
	// names that share a prefix with a date word are not date words
	for _, w := range []string{"jane", "janet", "marcus", "frida", "augusto", "dechen", "sat-nam"} {
		assert.False(t, isDateWord(w), w)
	}
}

func TestRouteRegex_BookingSlots(t *testing.T) {
	out := routeRegex("book an appointment for jane on friday at 3pm", testNow)
	assert.Equal(t, types.IntentBookAppointment, out.Intent)
	assert.Equal(t, "Jane", out.Slots.Name)
	assert.Equal(t, "14-03-2025", out.Slots.Date)
	assert.Equal(t, "03:00 PM", out.Slots.Time)
}
