package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-assistant/llm"
	"github.com/clinicdesk/clinic-assistant/logger"
	"github.com/clinicdesk/clinic-assistant/resilience"
	"github.com/clinicdesk/clinic-assistant/types"
)

const systemPrompt = "You are a concise, friendly medical assistant for a small clinic. " +
	"You can chat naturally, but keep replies brief. If you don't understand or miss key details, " +
	"ask a short clarifying question. If the user asks what you can do, briefly list: " +
	"show appointments, book appointments (with confirmation), update payments, and draft quick reports. " +
	"Do not write role labels. No HTML."

const (
	defaultHistoryTurns = 10
	freeChatTemperature = 0.7
	freeChatMaxTokens   = 240
)

var (
	capabilityRe = regexp.MustCompile(`(?i)\b(what can you do|help me with|capabilities|tasks)\b`)
	roleLabelRe  = regexp.MustCompile(`(?m)^\s*(system|assistant|user)\s*:\s*`)
)

// AppointmentStore is the booking collaborator.
type AppointmentStore interface {
	LoadAppointments(ctx context.Context) ([]types.Appointment, error)
	AppendAppointment(ctx context.Context, appt types.Appointment) error
}

// AccountStore is the payment/stats collaborator.
type AccountStore interface {
	LoadAccounts(ctx context.Context) ([]types.Account, error)
	UpdateAccount(ctx context.Context, name string, acc types.Account) error
}

// Deps wires an Engine. Client may be nil (rules + canned replies only);
// History nil defaults to in-memory; Now nil defaults to time.Now.
type Deps struct {
	Client       llm.Client
	Appointments AppointmentStore
	Accounts     AccountStore
	History      HistoryStore
	Notify       func(types.Event)
	Now          func() time.Time
	HistoryTurns int
}

// Engine processes chat turns: pending confirmation first, then
// classify -> gate -> normalize -> dispatch.
type Engine struct {
	client     llm.Client
	classifier *Classifier
	appts      AppointmentStore
	accounts   AccountStore
	history    HistoryStore
	pending    *pendingStore
	notify     func(types.Event)
	now        func() time.Time
	maxTurns   int
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		client:     d.Client,
		classifier: NewClassifier(d.Client),
		appts:      d.Appointments,
		accounts:   d.Accounts,
		history:    d.History,
		pending:    newPendingStore(),
		notify:     d.Notify,
		now:        d.Now,
		maxTurns:   d.HistoryTurns,
	}
	if e.history == nil {
		e.history = NewMemoryHistory()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.maxTurns <= 0 {
		e.maxTurns = defaultHistoryTurns
	}
	if e.notify == nil {
		e.notify = func(types.Event) {}
	}
	return e
}

// HandleTurn processes one chat turn synchronously.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, text string) types.ChatResponse {
	reply, intent := e.handle(ctx, sessionID, text, nil)
	return types.ChatResponse{SessionID: sessionID, Intent: intent.String(), Reply: reply}
}

// StreamTurn processes one chat turn, delivering free-chat output through
// onChunk as it arrives. Intent-handled replies arrive as a single chunk.
// A cancelled ctx stops the stream; the partial output is discarded from
// history and the returned reply marks the stop.
func (e *Engine) StreamTurn(ctx context.Context, sessionID, text string, onChunk func(chunk string) error) types.ChatResponse {
	reply, intent := e.handle(ctx, sessionID, text, onChunk)
	return types.ChatResponse{SessionID: sessionID, Intent: intent.String(), Reply: reply}
}

func (e *Engine) handle(ctx context.Context, sessionID, text string, stream func(string) error) (string, types.Intent) {
	log := logger.For("assistant")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.IntentSmallTalk
	}

	// A live pending action intercepts the turn before classification.
	prefix := ""
	if p, ok := e.pending.get(sessionID); ok {
		reply, done := e.resumePending(ctx, sessionID, p, text)
		if done {
			e.recordTurn(ctx, sessionID, text, reply)
			e.emit(stream, reply)
			return reply, types.IntentBookAppointment
		}
		// neither yes nor no: the pending action is cancelled and the
		// utterance is routed normally
		prefix = reply
	}

	if err := e.history.Append(ctx, sessionID, types.Turn{Role: "user", Content: text}); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("history append failed")
	}

	result := e.classifier.Classify(ctx, text, e.now())
	result = Gate(result, text)
	log.Debug().
		Str("session", sessionID).
		Str("intent", result.Intent.String()).
		Str("source", result.Source).
		Msg("routed")

	reply, stopped := e.dispatch(ctx, sessionID, text, result, stream)
	if prefix != "" && reply != "" {
		reply = prefix + "\n" + reply
	}
	if !stopped && reply != "" {
		reply = strings.TrimSpace(roleLabelRe.ReplaceAllString(reply, ""))
		if err := e.history.Append(ctx, sessionID, types.Turn{Role: "assistant", Content: reply}); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("history append failed")
		}
	}
	return reply, result.Intent
}

// resumePending advances the confirmation state machine. done=false means
// the turn was neither a confirmation nor a name answer; the returned reply
// is then a cancellation notice to prepend.
func (e *Engine) resumePending(ctx context.Context, sessionID string, p *pendingAppt, text string) (string, bool) {
	switch p.Stage {
	case stageNeedName:
		// "no"/"cancel" backs out of the booking even before a name exists
		if _, no := parseYesNo(text); no {
			e.pending.clear(sessionID)
			return "Okay, I won't book it.", true
		}
		name := findName(text)
		if name == "" && looksLikeName(text) {
			name = TitleCase(text)
		}
		if name != "" {
			p.Appt.Name = name
			p.Stage = stageAwaitConfirm
			e.pending.set(sessionID, p)
			return confirmQuestion(p), true
		}
		p.Asked++
		if p.Asked >= 2 {
			e.pending.clear(sessionID)
			return "Okay, I won't book it.", true
		}
		e.pending.set(sessionID, p)
		return "Who is the appointment for?", true

	case stageAwaitConfirm:
		yes, no := parseYesNo(text)
		switch {
		case yes:
			e.pending.clear(sessionID)
			if err := e.appts.AppendAppointment(ctx, p.Appt); err != nil {
				return fmt.Sprintf("⚠️ Couldn't save that appointment: %v", err), true
			}
			e.notify(types.Event{Kind: "appointment_created", Data: map[string]string{
				"name": p.Appt.Name, "date": p.Appt.Date, "time": p.Appt.Time,
			}})
			return fmt.Sprintf("✅ Booked %s on %s at %s.", p.Appt.Name, p.Appt.Date, p.Appt.Time), true
		case no:
			e.pending.clear(sessionID)
			return "Okay, I won't book it.", true
		default:
			e.pending.clear(sessionID)
			return "Okay, I won't book it.", false
		}
	}
	e.pending.clear(sessionID)
	return "", false
}

func confirmQuestion(p *pendingAppt) string {
	return fmt.Sprintf("Would you like me to book %s on %s at %s? (yes/no)", p.Appt.Name, p.Pretty, p.Appt.Time)
}

// recordTurn appends a user/assistant pair outside the normal dispatch path
// (confirmation turns).
func (e *Engine) recordTurn(ctx context.Context, sessionID, user, reply string) {
	_ = e.history.Append(ctx, sessionID, types.Turn{Role: "user", Content: user})
	if reply != "" {
		_ = e.history.Append(ctx, sessionID, types.Turn{Role: "assistant", Content: reply})
	}
}

// emit forwards an intent-handled reply to a streaming consumer as one chunk.
func (e *Engine) emit(stream func(string) error, reply string) {
	if stream != nil && reply != "" {
		_ = stream(reply)
	}
}

// freeChat answers small talk. Returns stopped=true when a streaming call
// was cancelled mid-generation; the partial text is already discarded.
func (e *Engine) freeChat(ctx context.Context, sessionID, text string, stream func(string) error) (string, bool) {
	if capabilityRe.MatchString(text) {
		return "I can show appointments, book appointments (with confirmation), update payments, and draft quick reports.", false
	}
	if e.client == nil {
		return cannedFallback(text), false
	}

	turns, err := e.history.Recent(ctx, sessionID, e.maxTurns)
	if err != nil {
		turns = []types.Turn{{Role: "user", Content: text}}
	}
	msgs := make([]llm.Message, 0, len(turns)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	opts := llm.Options{Temperature: freeChatTemperature, MaxTokens: freeChatMaxTokens}

	if sc, ok := e.client.(llm.StreamingClient); ok && stream != nil {
		var b strings.Builder
		err := sc.ChatStream(ctx, msgs, opts, func(chunk string) error {
			chunk = roleLabelRe.ReplaceAllString(chunk, "")
			b.WriteString(chunk)
			return stream(chunk)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// drop the dangling user turn so the next exchange starts clean
				_ = e.history.RemoveLast(context.Background(), sessionID)
				return "⏹️ Stopped.", true
			}
			logger.For("assistant").Warn().Err(err).Msg("free chat stream failed")
			return cannedFallback(text), false
		}
		return strings.TrimSpace(b.String()), false
	}

	var out string
	err = resilience.RetryWithBackoff(ctx, 2, 500*time.Millisecond, func() error {
		var cerr error
		out, cerr = e.client.ChatMessages(ctx, msgs, opts)
		return cerr
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return cannedFallback(text), false
	}
	return strings.TrimSpace(roleLabelRe.ReplaceAllString(out, "")), false
}

func cannedFallback(text string) string {
	if isGreetingOrSmallTalk(text) {
		return "Hello! How can I help you today?"
	}
	return "Got it. How else can I help?"
}
