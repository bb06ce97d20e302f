package llm

import (
	"context"
	"regexp"
	"strings"
)

var greetingRe = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|yo|sup|thanks|thank you|good (morning|evening|afternoon))[\.\!\s]*$`)

// NullClient is the client used when no model is configured. It returns
// deterministic canned replies so the rest of the pipeline stays exercisable.
type NullClient struct{}

// Chat returns a canned reply for the user text.
func (NullClient) Chat(ctx context.Context, system, user string) (string, error) {
	return cannedReply(user), nil
}

// ChatMessages answers based on the last user turn.
func (NullClient) ChatMessages(ctx context.Context, msgs []Message, opts Options) (string, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return cannedReply(msgs[i].Content), nil
		}
	}
	return cannedReply(""), nil
}

// ChatStream delivers the canned reply as a single chunk.
func (n NullClient) ChatStream(ctx context.Context, msgs []Message, opts Options, fn func(chunk string) error) error {
	out, _ := n.ChatMessages(ctx, msgs, opts)
	return fn(out)
}

func cannedReply(user string) string {
	u := strings.TrimSpace(user)
	switch {
	case greetingRe.MatchString(u):
		return "Hello! How can I help you today?"
	case strings.Contains(strings.ToLower(u), "what can you do"),
		strings.Contains(strings.ToLower(u), "help me with"):
		return "I can book appointments, update payments, show your schedule and client stats, do quick math, and tell you the date."
	default:
		return "Got it. How else can I help?"
	}
}
