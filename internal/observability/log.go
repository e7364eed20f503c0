// Package observability implements spec.md §6's two append-only JSON-lines
// outputs: a per-signal log (create + every terminal transition, with all
// pricing/score/MFE-MAE/exit-reason detail) and a scoring-decision log
// (factor counts, regime weight, final score, gate result per proposal).
// Adapted from the teacher's use of structured log.Printf lines throughout
// app/*.go for every lifecycle event; here the same "every event is
// visible, nothing drops silently" stance (spec.md §7) is expressed as
// durable JSON lines via encoding/json rather than human-formatted text,
// since these are consumed by the per-signal audit trail, not an operator.
package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"futuressignalengine/internal/storedata"
)

// SignalEvent is one line of the per-signal log.
type SignalEvent struct {
	Timestamp       time.Time             `json:"timestamp"`
	EventType       string                `json:"event_type"` // "created" | "transition"
	SignalID        string                `json:"signal_id"`
	Symbol          string                `json:"symbol"`
	Strategy        string                `json:"strategy"`
	Direction       storedata.Direction   `json:"direction"`
	Status          storedata.SignalStatus `json:"status"`
	ExitReason      *storedata.ExitReason `json:"exit_reason,omitempty"`
	Entry           float64               `json:"entry"`
	SL              float64               `json:"sl"`
	TP1             float64               `json:"tp1"`
	TP2             *float64              `json:"tp2,omitempty"`
	TP1PnLPct       float64               `json:"tp1_pnl_pct"`
	TP2PnLPct       float64               `json:"tp2_pnl_pct"`
	RunnerPnLPct    float64               `json:"runner_pnl_pct"`
	FinalPnLPct     *float64              `json:"final_pnl_pct,omitempty"`
	MFE             float64               `json:"mfe"`
	MAE             float64               `json:"mae"`
	ConfidenceScore float64               `json:"confidence_score"`
	MarketRegime    string                `json:"market_regime"`
}

// ScoringDecisionEvent is one line of the scoring-decision log.
type ScoringDecisionEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Direction    string    `json:"direction"`
	FactorCount  int       `json:"factor_count"`
	RegimeWeight float64   `json:"regime_weight"`
	FinalScore   float64   `json:"final_score"`
	GateResult   string    `json:"gate_result"` // "accepted" | rejection reason
}

// Logger writes both streams as append-only JSON lines to separate files.
// One mutex per stream keeps concurrent writers (multiple symbol workers)
// from interleaving partial lines.
type Logger struct {
	signalMu sync.Mutex
	signalFile *os.File

	scoringMu sync.Mutex
	scoringFile *os.File
}

// Open creates or appends to the two log files at the given paths.
func Open(signalLogPath, scoringLogPath string) (*Logger, error) {
	signalFile, err := os.OpenFile(signalLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("observability: open signal log: %w", err)
	}
	scoringFile, err := os.OpenFile(scoringLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		signalFile.Close()
		return nil, fmt.Errorf("observability: open scoring log: %w", err)
	}
	return &Logger{signalFile: signalFile, scoringFile: scoringFile}, nil
}

func (l *Logger) Close() error {
	err1 := l.signalFile.Close()
	err2 := l.scoringFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// LogSignalEvent appends one line to the per-signal log.
func (l *Logger) LogSignalEvent(ev SignalEvent) error {
	l.signalMu.Lock()
	defer l.signalMu.Unlock()
	ev.Timestamp = time.Now().UTC()
	return json.NewEncoder(l.signalFile).Encode(ev)
}

// LogScoringDecision appends one line to the scoring-decision log.
func (l *Logger) LogScoringDecision(ev ScoringDecisionEvent) error {
	l.scoringMu.Lock()
	defer l.scoringMu.Unlock()
	ev.Timestamp = time.Now().UTC()
	return json.NewEncoder(l.scoringFile).Encode(ev)
}

// SignalCreated builds and logs the "created" event for a new signal.
func (l *Logger) SignalCreated(s *storedata.Signal) error {
	return l.LogSignalEvent(SignalEvent{
		EventType:       "created",
		SignalID:        s.ID,
		Symbol:          s.Symbol,
		Strategy:        s.Strategy,
		Direction:       s.Direction,
		Status:          s.Status,
		Entry:           s.Entry,
		SL:              s.SL,
		TP1:             s.TP1,
		TP2:             s.TP2,
		ConfidenceScore: s.ConfidenceScore,
		MarketRegime:    s.MarketRegime,
	})
}

// SignalTransitioned builds and logs a terminal-transition event.
func (l *Logger) SignalTransitioned(s *storedata.Signal) error {
	return l.LogSignalEvent(SignalEvent{
		EventType:    "transition",
		SignalID:     s.ID,
		Symbol:       s.Symbol,
		Strategy:     s.Strategy,
		Direction:    s.Direction,
		Status:       s.Status,
		ExitReason:   s.ExitReason,
		Entry:        s.Entry,
		SL:           s.SL,
		TP1:          s.TP1,
		TP2:          s.TP2,
		TP1PnLPct:    s.TP1PnLPct,
		TP2PnLPct:    s.TP2PnLPct,
		RunnerPnLPct: s.RunnerPnLPct,
		FinalPnLPct:  s.FinalPnLPct,
		MFE:          s.MFE,
		MAE:          s.MAE,
		MarketRegime: s.MarketRegime,
	})
}
