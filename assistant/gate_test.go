package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicdesk/clinic-assistant/types"
)

func TestGate_GreetingAlwaysSmallTalk(t *testing.T) {
	in := types.IntentResult{Intent: types.IntentBookAppointment, Source: "llm"}
	out := Gate(in, "hello!")
	assert.Equal(t, types.IntentSmallTalk, out.Intent)

	out = Gate(in, "hi")
	assert.Equal(t, types.IntentSmallTalk, out.Intent)
}

func TestGate_CalcNeedsArithmetic(t *testing.T) {
	in := types.IntentResult{
		Intent: types.IntentCalc,
		Slots:  types.Slots{Expression: "__import__('os')"},
	}
	out := Gate(in, "tell me about your day")
	assert.Equal(t, types.IntentSmallTalk, out.Intent)
	assert.Empty(t, out.Slots.Expression, "vetoed calc must drop the expression")

	in.Slots.Expression = "2+2"
	out = Gate(in, "what is 2+2")
	assert.Equal(t, types.IntentCalc, out.Intent)
	assert.Equal(t, "2+2", out.Slots.Expression)
}

func TestGate_ActionableNeedsSignal(t *testing.T) {
	tests := []struct {
		name      string
		intent    types.Intent
		utterance string
		want      types.Intent
	}{
		{"booking with cue", types.IntentBookAppointment, "please book jane for friday", types.IntentBookAppointment},
		{"booking without cue", types.IntentBookAppointment, "tell me a story", types.IntentSmallTalk},
		{"show with cue", types.IntentShowAppointments, "show my appointments", types.IntentShowAppointments},
		{"show without cue", types.IntentShowAppointments, "how are you", types.IntentSmallTalk},
		{"payment with cue", types.IntentUpdatePayment, "sara paid 200", types.IntentUpdatePayment},
		{"payment without cue", types.IntentUpdatePayment, "sara was here", types.IntentSmallTalk},
		{"report with cue", types.IntentCreateReport, "draft a report for tom", types.IntentCreateReport},
		{"stats with cue", types.IntentShowClientStats, "open client stats", types.IntentShowClientStats},
		{"time with cue", types.IntentGetTime, "what time is it", types.IntentGetTime},
		{"time without cue", types.IntentGetTime, "hmm interesting", types.IntentSmallTalk},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Gate(types.IntentResult{Intent: tc.intent}, tc.utterance)
			assert.Equal(t, tc.want, out.Intent)
		})
	}
}

func TestGate_SmallTalkPassesThrough(t *testing.T) {
	in := types.IntentResult{Intent: types.IntentSmallTalk}
	out := Gate(in, "what do you think about rainy days")
	assert.Equal(t, types.IntentSmallTalk, out.Intent)
}
