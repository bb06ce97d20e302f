package assistant

import (
	"regexp"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-assistant/types"
)

// Regex-first extraction. The model still leads; these fill the gaps when it
// returns nothing usable.

var (
	nameLabelRe = regexp.MustCompile(`(?i)\b(?:person\s+name|patient\s+name|client\s+name|name\s+is)\s+([a-z][\w'\-]*(?:\s+[a-z][\w'\-]*){0,3})`)
	nameForRe   = regexp.MustCompile(`(?i)\bfor\s+([a-z][\w'\-]*(?:\s+[a-z][\w'\-]*){0,3})`)
	amountRe    = regexp.MustCompile(`\$?\s*(\d{1,3}(?:[,\d]{3})*(?:\.\d+)?)`)

	// words that terminate a captured name span
	nameStopwords = map[string]bool{
		"on": true, "at": true, "to": true, "by": true, "this": true,
		"next": true, "today": true, "tomorrow": true, "in": true,
	}
)

func guessIntent(t string) types.Intent {
	switch {
	case showApptsRe.MatchString(t):
		return types.IntentShowAppointments
	case bookingCueRe.MatchString(t):
		return types.IntentBookAppointment
	case paymentCueRe.MatchString(t):
		return types.IntentUpdatePayment
	case reportCueRe.MatchString(t):
		return types.IntentCreateReport
	case statsCueRe.MatchString(t):
		return types.IntentShowClientStats
	case hasArithmeticSignal(t):
		return types.IntentCalc
	case timeCueRe.MatchString(t):
		return types.IntentGetTime
	}
	return types.IntentSmallTalk
}

func findName(t string) string {
	for _, re := range []*regexp.Regexp{nameLabelRe, nameForRe} {
		if m := re.FindStringSubmatch(t); m != nil {
			return TitleCase(trimNameSpan(m[1]))
		}
	}
	return ""
}

// trimNameSpan cuts a captured span at the first date/time connective, so
// "jane smith on friday" yields "jane smith".
func trimNameSpan(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		if nameStopwords[f] || isDateWord(f) {
			fields = fields[:i]
			break
		}
	}
	return strings.Join(fields, " ")
}

// dateWordRe matches a whole token that is a weekday or month (full or
// abbreviated) or a relative day. Anchored: "jane" must not trip on "jan".
var dateWordRe = regexp.MustCompile(`(?i)^(?:` +
	`mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:rs(?:day)?)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?|` +
	`jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?|` +
	`today|tonight|tomorrow)$`)

// isDateWord flags tokens that are exactly a weekday or month word, which
// never belong to a name.
func isDateWord(f string) bool {
	return dateWordRe.MatchString(f)
}

func findAmount(t string) string {
	if !paymentCueRe.MatchString(t) {
		return ""
	}
	if m := amountRe.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	return ""
}

// routeRegex builds a rules-only classification of the utterance.
func routeRegex(text string, now time.Time) types.IntentResult {
	out := types.IntentResult{Intent: guessIntent(text), Source: "rules"}
	out.Slots.Name = findName(text)
	out.Slots.Amount = findAmount(text)

	if dt, ok := parseDatePhrase(text, now); ok {
		out.Slots.Date = dt.Format(dateLayout)
	}
	if m := time12Re.FindStringSubmatch(text); m != nil {
		out.Slots.Time = render12h(m)
	}
	if out.Intent == types.IntentCalc {
		out.Slots.Expression = ExtractExpression(text)
	}
	return out
}
