package assistant

import (
	"regexp"
	"strings"

	"github.com/clinicdesk/clinic-assistant/types"
)

// The gate is a deterministic override layer: an LLM classification only
// survives when the raw text carries a corroborating signal. It costs no
// model call and never upgrades an intent, only downgrades to small talk.

var (
	greetingFullRe = regexp.MustCompile(`(?i)^(hi|hello|hey|yo|sup|thanks|thank you|good (morning|evening|afternoon))[\.\!\s]*$`)

	bookingCueRe = regexp.MustCompile(`(?i)\b(book|schedule|appointment|appt|reserve|set\s*up|arrange|make\s+an?\s+appointment|see\s+(?:dr|doctor))\b`)
	showApptsRe  = regexp.MustCompile(`(?i)\b(show|list|view|see|display)\b.*\b(appointments|appts)\b`)
	paymentCueRe = regexp.MustCompile(`(?i)\b(pay|paid|payment|deposit|balance|invoice|amount|receipt)\b`)
	reportCueRe  = regexp.MustCompile(`(?i)\b(report|summary|note|letter|prescription)\b`)
	statsCueRe   = regexp.MustCompile(`(?i)\b(stats|statistics|clients)\b`)
	timeCueRe    = regexp.MustCompile(`(?i)\b(time|date|today|clock|day)\b`)

	arithOpRe      = regexp.MustCompile(`\d\s*[-+*/%]|\(|\bpi\b|\be\b`)
	arithKeywordRe = regexp.MustCompile(`(?i)\b(calc|calculate|compute|plus|minus|times|divided|multiply|subtract|add)\b`)
)

func isGreetingOrSmallTalk(t string) bool {
	tl := strings.TrimSpace(strings.ToLower(t))
	// Very lenient: short messages or classic greetings/thanks
	if len(tl) <= 2 {
		return true
	}
	return greetingFullRe.MatchString(tl)
}

func hasArithmeticSignal(t string) bool {
	return arithOpRe.MatchString(t) || arithKeywordRe.MatchString(t)
}

// requiredSignal maps each actionable intent to the text evidence it needs.
var requiredSignal = map[types.Intent]*regexp.Regexp{
	types.IntentBookAppointment:  bookingCueRe,
	types.IntentShowAppointments: showApptsRe,
	types.IntentUpdatePayment:    paymentCueRe,
	types.IntentCreateReport:     reportCueRe,
	types.IntentShowClientStats:  statsCueRe,
	types.IntentGetTime:          timeCueRe,
}

// Gate downgrades an intent to small talk when the utterance lacks the
// corroborating signal. First matching rule wins; the expression slot is
// dropped alongside a vetoed calc.
func Gate(result types.IntentResult, utterance string) types.IntentResult {
	if isGreetingOrSmallTalk(utterance) {
		result.Intent = types.IntentSmallTalk
		return result
	}
	if result.Intent == types.IntentCalc {
		if !hasArithmeticSignal(utterance) {
			result.Intent = types.IntentSmallTalk
			result.Slots.Expression = ""
		}
		return result
	}
	if re, ok := requiredSignal[result.Intent]; ok && !re.MatchString(utterance) {
		result.Intent = types.IntentSmallTalk
	}
	return result
}
