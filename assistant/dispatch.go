package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicdesk/clinic-assistant/types"
)

// dispatch executes one routed intent and produces the reply text. The
// second return is true when a streaming free-chat call was cancelled.
func (e *Engine) dispatch(ctx context.Context, sessionID, text string, res types.IntentResult, stream func(string) error) (string, bool) {
	switch res.Intent {
	case types.IntentShowAppointments:
		reply := e.showAppointments(ctx)
		e.emit(stream, reply)
		return reply, false

	case types.IntentBookAppointment:
		reply := e.startBooking(sessionID, text, res.Slots)
		e.emit(stream, reply)
		return reply, false

	case types.IntentUpdatePayment:
		reply := e.updatePayment(ctx, res.Slots)
		e.emit(stream, reply)
		return reply, false

	case types.IntentCreateReport:
		reply := e.createReport(res.Slots)
		e.emit(stream, reply)
		return reply, false

	case types.IntentCalc:
		reply := e.calc(text, res.Slots)
		e.emit(stream, reply)
		return reply, false

	case types.IntentGetTime:
		now := e.now()
		reply := fmt.Sprintf("It's %s on %s.", now.Format("03:04 PM"), now.Format("Monday, January 02, 2006"))
		e.emit(stream, reply)
		return reply, false

	case types.IntentShowClientStats:
		reply := e.showClientStats(ctx)
		e.emit(stream, reply)
		return reply, false

	default:
		return e.freeChat(ctx, sessionID, text, stream)
	}
}

func (e *Engine) showAppointments(ctx context.Context) string {
	items, err := e.appts.LoadAppointments(ctx)
	if err != nil || len(items) == 0 {
		return "No appointments found."
	}
	var b strings.Builder
	b.WriteString("Your upcoming appointments:")
	for _, a := range items {
		fmt.Fprintf(&b, "\n• %s %s — %s", a.Date, a.Time, a.Name)
	}
	return b.String()
}

// startBooking normalizes the slots into a concrete appointment and parks it
// as pending. Missing name defers the confirmation question by one turn.
func (e *Engine) startBooking(sessionID, text string, slots types.Slots) string {
	appt, pretty := NormalizeAppointment(text, slots, e.now())
	p := &pendingAppt{Appt: appt, Pretty: pretty}
	if appt.Name == "" {
		p.Stage = stageNeedName
		e.pending.set(sessionID, p)
		return "Who is the appointment for?"
	}
	p.Stage = stageAwaitConfirm
	e.pending.set(sessionID, p)
	return confirmQuestion(p)
}

func (e *Engine) updatePayment(ctx context.Context, slots types.Slots) string {
	name := TitleCase(slots.Name)
	if name == "" {
		return "Whose payment should I update?"
	}
	amt, ok := ParseAmount(slots.Amount)
	if !ok {
		return fmt.Sprintf("How much did %s pay?", name)
	}
	if err := e.accounts.UpdateAccount(ctx, name, types.Account{Name: name, TotalPaid: amt}); err != nil {
		return fmt.Sprintf("⚠️ Couldn't update payment: %v", err)
	}
	return fmt.Sprintf("💾 Updated payment for %s: %.2f.", name, amt)
}

func (e *Engine) createReport(slots types.Slots) string {
	name := TitleCase(slots.Name)
	if name == "" {
		name = "Unknown"
	}
	rtype := strings.TrimSpace(slots.ReportType)
	if rtype == "" {
		rtype = "visit"
	}
	e.notify(types.Event{Kind: "report_requested", Data: map[string]string{
		"name": name, "type": rtype,
	}})
	return fmt.Sprintf("📝 Preparing a %s report for %s…", rtype, name)
}

func (e *Engine) calc(text string, slots types.Slots) string {
	expr := strings.TrimSpace(slots.Expression)
	if expr == "" {
		expr = ExtractExpression(text)
	}
	v, err := EvalExpression(expr)
	if expr == "" || err != nil {
		return "Sorry, I couldn't evaluate that. Try something like 12.5*(3+2)."
	}
	return fmt.Sprintf("%s = %s", expr, FormatNumber(v))
}

func (e *Engine) showClientStats(ctx context.Context) string {
	e.notify(types.Event{Kind: "navigate_stats"})
	accounts, err := e.accounts.LoadAccounts(ctx)
	if err != nil {
		return "Opening client stats…"
	}
	var stats types.ClinicStats
	stats.Clients = len(accounts)
	for _, a := range accounts {
		stats.TotalPaid += a.TotalPaid
		stats.TotalAmount += a.TotalAmount
		stats.TotalOwed += a.Owed()
	}
	return fmt.Sprintf("Opening client stats…\n- Clients: %d\n- Total Paid: %.2f\n- Total Amount: %.2f\n- Total Owed: %.2f",
		stats.Clients, stats.TotalPaid, stats.TotalAmount, stats.TotalOwed)
}
