package risk

import (
	"time"

	"github.com/google/uuid"

	"zeus/internal/logger"
)

const (
	EventPositionSizing  = "position_sizing"
	EventTradeValidation = "trade_validation"
	EventBalanceUpdate   = "balance_update"
	EventDailyReset      = "daily_reset"
)

// Event is one audit entry in the ledger's bounded event log.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// EventSink receives every ledger event, e.g. for the sqlite audit store.
// Sinks must tolerate bursts; errors are logged and dropped.
type EventSink interface {
	Append(ev Event) error
}

// logEvent runs with l.mu held.
func (l *Ledger) logEvent(kind string, fields map[string]any) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      kind,
		Timestamp: time.Now(),
		Fields:    fields,
	}
	l.events.Push(ev)
	if l.sink != nil {
		if err := l.sink.Append(ev); err != nil {
			logger.Warnf("risk: event sink append failed type=%s err=%v", kind, err)
		}
	}
}
