package risk

import "time"

const (
	reportHistoryLimit = 50
	reportEventLimit   = 100
)

// Report is the bounded diagnostics export: parameters, live metrics and
// the tails of the history/event logs. Never used for replay or recovery.
type Report struct {
	Parameters  Parameters     `json:"risk_parameters"`
	Metrics     Metrics        `json:"current_metrics"`
	History     []HistoryEntry `json:"position_history"`
	Events      []Event        `json:"recent_events"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func (l *Ledger) ExportReport() Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Report{
		Parameters:  l.params,
		Metrics:     l.metricsLocked(),
		History:     l.history.Tail(reportHistoryLimit),
		Events:      l.events.Tail(reportEventLimit),
		GeneratedAt: time.Now(),
	}
}
