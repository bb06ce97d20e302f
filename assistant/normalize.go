// Package assistant implements the chat pipeline: classify, gate, normalize,
// confirm, dispatch. Public entry points never panic and never return errors
// to the chat layer; failures become safe defaults or user-facing strings.
package assistant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-assistant/types"
)

const (
	dateLayout   = "02-01-2006"     // dd-mm-yyyy, load-bearing for the UI tables
	prettyLayout = "January 02, 2006"
)

var (
	yearInTextRe = regexp.MustCompile(`\b20\d{2}\b`)
	time24Re     = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	time12Re     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b`)

	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4})\b`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonthRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)(?:\s+(\d{4}))?\b`)
	monthDayRe    = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(?:next\s+|this\s+)?(mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:rs(?:day)?)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`)
	relativeRe    = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow)\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByPrefix = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"sun": time.Sunday,
}

// TitleCase capitalizes each whitespace-delimited token. Empty in, empty out.
func TitleCase(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// ParseAmount strips thousands separators and currency symbols and parses a
// decimal. Non-numeric input reports false rather than a silent zero.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDatePhrase resolves the first date phrase found in text, relative to
// now. Relative phrases (weekdays, today/tomorrow) always resolve forward.
func parseDatePhrase(text string, now time.Time) (time.Time, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return time.Time{}, false
	}

	if m := numericDateRe.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		// dd-mm-yyyy first; swap when the day field can only be a month
		if mon > 12 && day <= 12 {
			day, mon = mon, day
		}
		if d, ok := makeDate(year, mon, day); ok {
			return d, true
		}
	}
	if m := isoDateRe.FindStringSubmatch(t); m != nil {
		year, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, mon, day); ok {
			return d, true
		}
	}
	if m := dayMonthRe.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		mon := monthsByPrefix[strings.ToLower(m[2])[:3]]
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := makeDate(year, int(mon), day); ok {
			return d, true
		}
	}
	if m := monthDayRe.FindStringSubmatch(t); m != nil {
		mon := monthsByPrefix[strings.ToLower(m[1])[:3]]
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := makeDate(year, int(mon), day); ok {
			return d, true
		}
	}
	if m := relativeRe.FindStringSubmatch(t); m != nil {
		base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if strings.EqualFold(m[1], "tomorrow") {
			base = base.AddDate(0, 0, 1)
		}
		return base, true
	}
	if m := weekdayRe.FindStringSubmatch(t); m != nil {
		target := weekdaysByPrefix[strings.ToLower(m[1])[:3]]
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7 // prefer the next occurrence, not today
		}
		base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return base.AddDate(0, 0, days), true
	}
	return time.Time{}, false
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if d.Day() != day { // e.g. 31-02
		return time.Time{}, false
	}
	return d, true
}

// NormalizeDate resolves raw (the extracted date slot) against the full
// utterance, defaulting to now's date. If the source text carried no 4-digit
// year and the resolved date is already past, it rolls forward one year.
// Returns (dd-mm-yyyy, "Month DD, YYYY").
func NormalizeDate(raw, contextText string, now time.Time) (string, string) {
	dt, ok := parseDatePhrase(raw, now)
	source := raw
	if !ok {
		dt, ok = parseDatePhrase(contextText, now)
		source = contextText
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if !ok {
		return today.Format(dateLayout), today.Format(prettyLayout)
	}

	if !yearInTextRe.MatchString(source) && dt.Before(today) {
		dt = dt.AddDate(1, 0, 0)
	}
	return dt.Format(dateLayout), dt.Format(prettyLayout)
}

// NormalizeTime resolves raw (the extracted time slot) against the full
// utterance. Output is always 12-hour "hh:mm AM/PM" with a zero-padded hour;
// missing time defaults to "12:00 PM".
func NormalizeTime(raw, contextText string) string {
	if t, ok := parseTimeToken(raw); ok {
		return t
	}
	if m := time12Re.FindStringSubmatch(contextText); m != nil {
		return render12h(m)
	}
	if m := time24Re.FindStringSubmatch(contextText); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return formatH12(hh, mm)
	}
	return "12:00 PM"
}

func parseTimeToken(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return "", false
	}
	if m := time12Re.FindStringSubmatch(t); m != nil {
		return render12h(m), true
	}
	if m := time24Re.FindStringSubmatch(t); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return formatH12(hh, mm), true
	}
	return "", false
}

func render12h(m []string) string {
	hh, _ := strconv.Atoi(m[1])
	mm := 0
	if m[2] != "" {
		mm, _ = strconv.Atoi(m[2])
	}
	if hh < 1 || hh > 12 || mm > 59 {
		return "12:00 PM"
	}
	meridiem := strings.ToUpper(m[3])
	return fmt.Sprintf("%02d:%02d %s", hh, mm, meridiem)
}

func formatH12(hh, mm int) string {
	meridiem := "AM"
	if hh >= 12 {
		meridiem = "PM"
	}
	h12 := hh % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, mm, meridiem)
}

// NormalizeAppointment turns raw slots plus the utterance into a bookable
// appointment and its pretty date for the confirmation prompt. Name may come
// back empty; the caller prompts for it.
func NormalizeAppointment(userText string, slots types.Slots, now time.Time) (types.Appointment, string) {
	name := TitleCase(slots.Name)
	date, pretty := NormalizeDate(slots.Date, userText, now)
	timeH12 := NormalizeTime(slots.Time, userText)
	return types.Appointment{Name: name, Date: date, Time: timeH12}, pretty
}
