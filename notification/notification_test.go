package notification

import (
	"strings"
	"testing"

	"github.com/raykavin/backnrun/core"
)

func TestFormatAlertIncludesTicketAndRegimeWhenSet(t *testing.T) {
	text := formatAlert(core.AlertEvent{
		Severity: core.AlertCritical,
		Title:    "position exit blocked",
		Detail:   "repeated modify failures",
		Ticket:   42,
		Regime:   core.RegimeTrendBull,
	})

	if !strings.Contains(text, "position exit blocked") {
		t.Fatalf("expected title in formatted alert, got %q", text)
	}
	if !strings.Contains(text, "ticket: `42`") {
		t.Fatalf("expected ticket in formatted alert, got %q", text)
	}
	if !strings.Contains(text, "regime: `trend_bull`") {
		t.Fatalf("expected regime in formatted alert, got %q", text)
	}
	if !strings.HasPrefix(text, "🛑") {
		t.Fatalf("expected critical severity prefix, got %q", text)
	}
}

func TestFormatAlertOmitsTicketWhenZero(t *testing.T) {
	text := formatAlert(core.AlertEvent{
		Severity: core.AlertWarning,
		Title:    "drawdown gate tripped",
		Detail:   "equity down 32% from peak",
	})

	if strings.Contains(text, "ticket:") {
		t.Fatalf("expected no ticket field for a ticket-less alert, got %q", text)
	}
	if !strings.HasPrefix(text, "⚠️") {
		t.Fatalf("expected warning severity prefix, got %q", text)
	}
}

type recordingNotifier struct {
	events []core.AlertEvent
}

func (r *recordingNotifier) Notify(event core.AlertEvent) {
	r.events = append(r.events, event)
}

func TestMultiFansOutToEveryNotifier(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	m := Multi{a, b}

	event := core.AlertEvent{Title: "emergency suspension", Severity: core.AlertCritical}
	m.Notify(event)

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both notifiers to receive the event, got a=%d b=%d", len(a.events), len(b.events))
	}
	if a.events[0].Title != "emergency suspension" || b.events[0].Title != "emergency suspension" {
		t.Fatalf("expected the exact event to fan out, got a=%+v b=%+v", a.events[0], b.events[0])
	}
}
