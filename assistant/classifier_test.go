package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicdesk/clinic-assistant/llm"
	"github.com/clinicdesk/clinic-assistant/types"
)

// scriptedClient replays canned completions in order and remembers the last
// prompt it was sent.
type scriptedClient struct {
	replies  []string
	err      error
	calls    int
	lastMsgs []llm.Message
}

func (c *scriptedClient) Chat(ctx context.Context, system, user string) (string, error) {
	return c.ChatMessages(ctx, nil, llm.Options{})
}

func (c *scriptedClient) ChatMessages(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	c.lastMsgs = msgs
	if c.err != nil {
		return "", c.err
	}
	if c.calls >= len(c.replies) {
		return "", errors.New("script exhausted")
	}
	out := c.replies[c.calls]
	c.calls++
	return out, nil
}

func TestClassify_ModelWins(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{
		`{"intent":"book_appointment","name":"Muhammad","date":"13-07-2025","time":"03:00 PM"}`,
	}})
	out := c.Classify(context.Background(), "book muhammad on 13 july at 3pm", testNow)
	assert.Equal(t, types.IntentBookAppointment, out.Intent)
	assert.Equal(t, "llm", out.Source)
	assert.Equal(t, "Muhammad", out.Slots.Name)
	assert.Equal(t, "13-07-2025", out.Slots.Date)
	assert.Equal(t, "03:00 PM", out.Slots.Time)
}

func TestClassify_SurroundingProseStripped(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{
		"Sure, here is the JSON:\n{\"intent\":\"show_appointments\"}\nHope that helps!",
	}})
	out := c.Classify(context.Background(), "show my appointments", testNow)
	assert.Equal(t, types.IntentShowAppointments, out.Intent)
	assert.Equal(t, "llm", out.Source)
}

func TestClassify_NumericAmount(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{
		`{"intent":"update_payment","name":"Sara","amount":200}`,
	}})
	out := c.Classify(context.Background(), "sara paid 200", testNow)
	assert.Equal(t, types.IntentUpdatePayment, out.Intent)
	assert.Equal(t, "200", out.Slots.Amount)
}

func TestClassify_GarbageFallsBackToRules(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{"not json at all"}})
	out := c.Classify(context.Background(), "show my appointments", testNow)
	assert.Equal(t, types.IntentShowAppointments, out.Intent)
	assert.Equal(t, "rules", out.Source)
}

func TestClassify_UnknownIntentFallsBack(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{`{"intent":"fly_to_moon"}`}})
	out := c.Classify(context.Background(), "show my appointments", testNow)
	assert.Equal(t, types.IntentShowAppointments, out.Intent)
	assert.Equal(t, "rules", out.Source)
}

func TestClassify_SchemaRejectsMissingIntent(t *testing.T) {
	c := NewClassifier(&scriptedClient{replies: []string{`{"name":"Sara"}`}})
	out := c.Classify(context.Background(), "sara paid 200", testNow)
	assert.Equal(t, "rules", out.Source)
	assert.Equal(t, types.IntentUpdatePayment, out.Intent) // rules still route it
}

func TestClassify_ModelErrorFallsBack(t *testing.T) {
	c := NewClassifier(&scriptedClient{err: errors.New("boom")})
	out := c.Classify(context.Background(), "what time is it", testNow)
	assert.Equal(t, types.IntentGetTime, out.Intent)
	assert.Equal(t, "rules", out.Source)
}

func TestClassify_NilClientUsesRules(t *testing.T) {
	c := NewClassifier(nil)
	out := c.Classify(context.Background(), "book an appointment for jane on friday at 3pm", testNow)
	assert.Equal(t, types.IntentBookAppointment, out.Intent)
	assert.Equal(t, "rules", out.Source)
	assert.Equal(t, "Jane", out.Slots.Name)
	assert.Equal(t, "03:00 PM", out.Slots.Time)
}

func TestClassify_RegexFillsModelGaps(t *testing.T) {
	// model names the intent but drops the slots; regex supplies them
	c := NewClassifier(&scriptedClient{replies: []string{`{"intent":"book_appointment"}`}})
	out := c.Classify(context.Background(), "book an appointment for jane on friday at 3pm", testNow)
	assert.Equal(t, types.IntentBookAppointment, out.Intent)
	assert.Equal(t, "llm", out.Source)
	assert.Equal(t, "Jane", out.Slots.Name)
	assert.Equal(t, "03:00 PM", out.Slots.Time)
}
