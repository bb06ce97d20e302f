package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/clinicdesk/clinic-assistant/llm"
	"github.com/clinicdesk/clinic-assistant/resilience"
	"github.com/clinicdesk/clinic-assistant/types"
)

var routerJSONRe = regexp.MustCompile(`(?s)\{.*\}`)

const intentPrompt = `You are an intent/slot extractor for a clinic assistant.
Return ONLY compact JSON with:
  intent: one of ['small_talk','show_appointments','book_appointment','update_payment','create_report','calc','get_time','show_client_stats']
  name? : patient/client name if present
  date? : dd-mm-yyyy if present (convert natural dates)
  time? : hh:mm AM/PM if present
  amount?: number if about payments (no currency symbol)
  expression?: the arithmetic expression if the user asks for math
  report_type?: kind of report if asked

Rules:
- Greetings/chit-chat/uncertain -> small_talk.
- Only book_appointment when the user clearly wants to schedule (booking verbs OR says they want an appointment).
- "show/list/view appointments" -> show_appointments.
- Use 'calc' ONLY if the user clearly asks a math calculation.
- Use 'get_time' for date/time questions.
No commentary.

Examples:
User: "hi"
{"intent":"small_talk"}

User: "show my appointments"
{"intent":"show_appointments"}

User: "book muhammad on 13 july at 3pm"
{"intent":"book_appointment","name":"Muhammad","date":"13-07-2025","time":"03:00 PM"}

User: "calc 12.5*(3+2)"
{"intent":"calc","expression":"12.5*(3+2)"}`

// Classifier turns an utterance into an IntentResult. It never returns an
// error: any model or parse failure leaves the rules-only classification.
type Classifier struct {
	client  llm.Client
	schema  *gojsonschema.Schema
	breaker *resilience.CircuitBreaker
}

// NewClassifier builds a classifier around an injected completion client.
// client may be nil; routing then runs on rules alone.
func NewClassifier(client llm.Client) *Classifier {
	schema, err := newIntentSchema()
	if err != nil {
		// static schema; only reachable if the embedded text is edited badly
		log.Printf("[classifier] schema compile failed: %v", err)
	}
	return &Classifier{
		client:  client,
		schema:  schema,
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
	}
}

// Classify runs the model first, then patches gaps with light regex
// extraction. The model's intent and slots win where present.
func (c *Classifier) Classify(ctx context.Context, text string, now time.Time) types.IntentResult {
	out := routeRegex(text, now)

	model, ok := c.llmRoute(ctx, text)
	if !ok {
		return out
	}
	out.Intent = model.Intent
	// model slots win; regex keeps only what the model left empty
	ms := model.Slots
	if ms.Name != "" {
		out.Slots.Name = ms.Name
	}
	if ms.Date != "" {
		out.Slots.Date = ms.Date
	}
	if ms.Time != "" {
		out.Slots.Time = ms.Time
	}
	if ms.Amount != "" {
		out.Slots.Amount = ms.Amount
	}
	if ms.Expression != "" {
		out.Slots.Expression = ms.Expression
	}
	if ms.ReportType != "" {
		out.Slots.ReportType = ms.ReportType
	}
	out.Source = "llm"
	return out
}

type routeWire struct {
	Intent     string      `json:"intent"`
	Name       string      `json:"name"`
	Date       string      `json:"date"`
	Time       string      `json:"time"`
	Amount     interface{} `json:"amount"`
	Expression string      `json:"expression"`
	ReportType string      `json:"report_type"`
}

// llmRoute asks the model for the intent contract. Deterministic settings,
// small token budget, single attempt behind the circuit breaker.
func (c *Classifier) llmRoute(ctx context.Context, text string) (types.IntentResult, bool) {
	var zero types.IntentResult
	if c.client == nil {
		return zero, false
	}

	var raw string
	err := c.breaker.Execute(func() error {
		out, err := c.client.ChatMessages(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: intentPrompt},
			{Role: llm.RoleUser, Content: text},
		}, llm.Options{Temperature: 1e-6, MaxTokens: 160})
		raw = out
		return err
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		return zero, false
	}

	doc := routerJSONRe.FindString(raw)
	if doc == "" {
		return zero, false
	}
	if c.schema != nil {
		res, err := c.schema.Validate(gojsonschema.NewStringLoader(doc))
		if err != nil || !res.Valid() {
			return zero, false
		}
	}

	var w routeWire
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return zero, false
	}
	intent, known := types.ParseIntent(w.Intent)
	if !known {
		return zero, false
	}

	out := types.IntentResult{Intent: intent, Source: "llm"}
	out.Slots = types.Slots{
		Name:       strings.TrimSpace(w.Name),
		Date:       strings.TrimSpace(w.Date),
		Time:       strings.TrimSpace(w.Time),
		Amount:     amountString(w.Amount),
		Expression: strings.TrimSpace(w.Expression),
		ReportType: strings.TrimSpace(w.ReportType),
	}
	return out, true
}

func amountString(v interface{}) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case float64:
		if a == float64(int64(a)) {
			return fmt.Sprintf("%d", int64(a))
		}
		return fmt.Sprintf("%g", a)
	default:
		return ""
	}
}
