package types

import "strings"

// Intent is the closed set of actions the assistant can take on a chat turn.
// Everything the router cannot support collapses into IntentSmallTalk.
type Intent int

const (
	IntentSmallTalk Intent = iota
	IntentShowAppointments
	IntentBookAppointment
	IntentUpdatePayment
	IntentCreateReport
	IntentCalc
	IntentGetTime
	IntentShowClientStats
)

var intentNames = map[Intent]string{
	IntentSmallTalk:        "small_talk",
	IntentShowAppointments: "show_appointments",
	IntentBookAppointment:  "book_appointment",
	IntentUpdatePayment:    "update_payment",
	IntentCreateReport:     "create_report",
	IntentCalc:             "calc",
	IntentGetTime:          "get_time",
	IntentShowClientStats:  "show_client_stats",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "small_talk"
}

// ParseIntent maps a wire label to an Intent. Unknown labels report false.
func ParseIntent(s string) (Intent, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range intentNames {
		if name == s {
			return i, true
		}
	}
	return IntentSmallTalk, false
}

// Slots carries the raw strings pulled from an utterance. Empty means absent;
// nothing here is normalized yet.
type Slots struct {
	Name       string `json:"person_name,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Expression string `json:"expression,omitempty"`
	ReportType string `json:"report_type,omitempty"`
}

// Merge fills s's empty fields from other. Existing values win.
func (s *Slots) Merge(other Slots) {
	if s.Name == "" {
		s.Name = other.Name
	}
	if s.Date == "" {
		s.Date = other.Date
	}
	if s.Time == "" {
		s.Time = other.Time
	}
	if s.Amount == "" {
		s.Amount = other.Amount
	}
	if s.Expression == "" {
		s.Expression = other.Expression
	}
	if s.ReportType == "" {
		s.ReportType = other.ReportType
	}
}

// IntentResult is the outcome of one classification pass.
type IntentResult struct {
	Intent Intent `json:"intent"`
	Slots  Slots  `json:"slots"`
	Source string `json:"source"` // "llm" | "rules" | "fallback"
}
