// Package storedata defines the persistent tables described in spec.md §3
// and wraps them behind small per-bounded-context repositories, following
// the teacher's GORM-over-PostgreSQL pattern (see
// _examples/nofendian17-stockbit-haka-haki/database/models.go and
// database/models_pkg/models.go).
package storedata

import "time"

// Candle is one OHLCV bar for a symbol/timeframe pair.
type Candle struct {
	Symbol     string    `gorm:"size:20;not null;primaryKey" json:"symbol"`
	Timeframe  string    `gorm:"size:8;not null;primaryKey" json:"timeframe"`
	OpenTime   time.Time `gorm:"not null;primaryKey;index" json:"open_time"`
	Open       float64   `gorm:"type:decimal(20,8);not null" json:"open"`
	High       float64   `gorm:"type:decimal(20,8);not null" json:"high"`
	Low        float64   `gorm:"type:decimal(20,8);not null" json:"low"`
	Close      float64   `gorm:"type:decimal(20,8);not null" json:"close"`
	Volume     float64   `gorm:"type:decimal(28,8);not null" json:"volume"`
	QuoteVolume float64  `gorm:"type:decimal(28,8)" json:"quote_volume"`
	CloseTime  time.Time `gorm:"not null" json:"close_time"`
	TradeCount int64     `json:"trade_count"`
	Closed     bool      `gorm:"not null" json:"closed"`
}

func (Candle) TableName() string { return "candles" }

// Direction is the side a signal trades.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// SignalStatus is the lifecycle state of a Signal.
type SignalStatus string

const (
	StatusPending SignalStatus = "PENDING"
	StatusActive  SignalStatus = "ACTIVE"
	StatusClosed  SignalStatus = "CLOSED"
)

// ExitReason is the terminal reason a signal closed.
type ExitReason string

const (
	ExitTP1        ExitReason = "TP1"
	ExitTP2        ExitReason = "TP2"
	ExitTrailing   ExitReason = "TRAILING"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitBreakeven  ExitReason = "BREAKEVEN"
	ExitTimeStop   ExitReason = "TIME_STOP"
)

// Signal is a tracked trading opportunity produced by the strategy set,
// carried through PENDING -> ACTIVE -> CLOSED. Field set follows spec.md §3
// verbatim: identity, pricing, partial-exit state, lifecycle and context.
type Signal struct {
	// Identity
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol    string    `gorm:"size:20;not null;index" json:"symbol"`
	Strategy  string    `gorm:"size:40;not null;index" json:"strategy_name"`
	Direction Direction `gorm:"size:8;not null" json:"direction"`

	// Pricing
	Entry float64  `gorm:"type:decimal(20,8);not null" json:"entry"`
	SL    float64  `gorm:"type:decimal(20,8);not null" json:"sl"`
	TP1   float64  `gorm:"type:decimal(20,8);not null" json:"tp1"`
	TP2   *float64 `gorm:"type:decimal(20,8)" json:"tp2,omitempty"`
	TP3   *float64 `gorm:"type:decimal(20,8)" json:"tp3,omitempty"`

	// Partial-exit state
	TP1Hit           bool       `gorm:"not null" json:"tp1_hit"`
	TP1ClosedAt      *time.Time `json:"tp1_closed_at,omitempty"`
	TP1PnLPct        float64    `json:"tp1_pnl_pct"`
	TP2Hit           bool       `gorm:"not null" json:"tp2_hit"`
	TP2ClosedAt      *time.Time `json:"tp2_closed_at,omitempty"`
	TP2PnLPct        float64    `json:"tp2_pnl_pct"`
	TrailingActive   bool       `gorm:"not null" json:"trailing_active"`
	TrailingPeakPrice *float64  `gorm:"type:decimal(20,8)" json:"trailing_peak_price,omitempty"`
	RunnerPnLPct     float64    `json:"runner_pnl_pct"`

	// Lifecycle
	Status      SignalStatus `gorm:"size:10;not null;index" json:"status"`
	ExitReason  *ExitReason  `gorm:"size:16" json:"exit_reason,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
	BarsToExit  int          `json:"bars_to_exit"`
	MFE         float64      `json:"mfe"`
	MAE         float64      `json:"mae"`
	FinalPnLPct *float64     `json:"final_pnl_pct,omitempty"`

	// Context
	MarketRegime    string  `gorm:"size:16" json:"market_regime"`
	ConfidenceScore float64 `json:"confidence_score"`
	Meta            string  `gorm:"type:jsonb" json:"meta"`

	// Internal bookkeeping not named directly in spec.md §3 but required to
	// evaluate the exit rules on each tracker pass.
	InitialSL  float64   `gorm:"type:decimal(20,8);not null" json:"initial_sl"`
	ATRAtEntry float64   `json:"atr_at_entry"`
	Timeframe  string    `gorm:"size:8;not null" json:"timeframe"`
}

func (Signal) TableName() string { return "signals" }

// ActionPriceMode is the mode selected from the total score band (spec.md
// §4.5): STANDARD (2R TP2), SCALP (1.5R TP2), or SKIP (no signal emitted).
type ActionPriceMode string

const (
	ModeStandard ActionPriceMode = "STANDARD"
	ModeScalp    ActionPriceMode = "SCALP"
	ModeSkip     ActionPriceMode = "SKIP"
)

// ActionPriceSignal is the parallel, EMA200-body-cross pipeline's own signal
// record: same lifecycle/partial-exit skeleton as Signal, plus the eleven
// scoring components and initiator/confirmation context (spec.md §3, §4.5).
type ActionPriceSignal struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol    string          `gorm:"size:20;not null;index" json:"symbol"`
	Direction Direction       `gorm:"size:8;not null" json:"direction"`
	Mode      ActionPriceMode `gorm:"size:10;not null" json:"mode"`

	Entry float64  `gorm:"type:decimal(20,8);not null" json:"entry"`
	SL    float64  `gorm:"type:decimal(20,8);not null" json:"sl"`
	TP1   float64  `gorm:"type:decimal(20,8);not null" json:"tp1"`
	TP2   float64  `gorm:"type:decimal(20,8);not null" json:"tp2"`

	TP1Hit            bool       `gorm:"not null" json:"tp1_hit"`
	TP1ClosedAt       *time.Time `json:"tp1_closed_at,omitempty"`
	TP1PnLPct         float64    `json:"tp1_pnl_pct"`
	TP2Hit            bool       `gorm:"not null" json:"tp2_hit"`
	TP2ClosedAt       *time.Time `json:"tp2_closed_at,omitempty"`
	TP2PnLPct         float64    `json:"tp2_pnl_pct"`
	TrailingActive    bool       `gorm:"not null" json:"trailing_active"`
	TrailingPeakPrice *float64   `gorm:"type:decimal(20,8)" json:"trailing_peak_price,omitempty"`
	RunnerPnLPct      float64    `json:"runner_pnl_pct"`

	Status      SignalStatus `gorm:"size:10;not null;index" json:"status"`
	ExitReason  *ExitReason  `gorm:"size:16" json:"exit_reason,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;index" json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
	FinalPnLPct *float64     `json:"final_pnl_pct,omitempty"`

	// Scoring components c1..c11 (spec.md §4.5), kept individually so the
	// observability log can report each one without reparsing JSON.
	TotalScore float64 `json:"total_score"`
	C1InitiatorSize      float64 `json:"c1_initiator_size"`
	C2EMA200Proximity    float64 `json:"c2_ema200_proximity"`
	C3PullbackDepth      float64 `json:"c3_pullback_depth"`
	C4EMA200Slope        float64 `json:"c4_ema200_slope"`
	C5FanCompactness     float64 `json:"c5_fan_compactness"`
	C6RetestTag          float64 `json:"c6_retest_tag"`
	C7BreakAndBaseTag    float64 `json:"c7_break_and_base_tag"`
	C8RejectionWick      float64 `json:"c8_rejection_wick"`
	C9VolumeConfirmation float64 `json:"c9_volume_confirmation"`
	C10LipuchkaPenalty   float64 `json:"c10_lipuchka_penalty"`
	C11Overextension     float64 `json:"c11_overextension_penalty"`

	InitiatorTimestamp time.Time `gorm:"not null" json:"initiator_timestamp"`
	ConfirmOpen        float64   `json:"confirm_open"`
	ConfirmHigh        float64   `json:"confirm_high"`
	ConfirmLow         float64   `json:"confirm_low"`
	ConfirmClose       float64   `json:"confirm_close"`
	EMA200AtEntry      float64   `json:"ema200_at_entry"`
	ATRAtEntry         float64   `json:"atr_at_entry"`
}

func (ActionPriceSignal) TableName() string { return "action_price_signals" }

// ZoneKind is S (support) or R (resistance) per spec.md §3.
type ZoneKind string

const (
	ZoneSupport    ZoneKind = "S"
	ZoneResistance ZoneKind = "R"
)

// Zone is a computed support/resistance level maintained by the single-writer
// zone registry (D3), owned per symbol and referenced read-only by
// strategies. Touches/reactions are stored as JSON arrays since they are a
// variable-length audit trail, not queried columns.
type Zone struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string    `gorm:"size:20;not null;index" json:"symbol"`
	Timeframe   string    `gorm:"size:8;not null" json:"timeframe"`
	Kind        ZoneKind  `gorm:"size:4;not null" json:"kind"`
	Low         float64   `gorm:"type:decimal(20,8);not null" json:"low"`
	High        float64   `gorm:"type:decimal(20,8);not null" json:"high"`
	Strength    float64   `json:"strength"`
	Touches     string    `gorm:"type:jsonb" json:"touches"`
	Reactions   string    `gorm:"type:jsonb" json:"reactions"`
	Freshness   int       `json:"freshness"`
	Flipped     bool      `gorm:"not null" json:"flipped"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Zone) TableName() string { return "zones" }

// SignalLock is the durable half of the keyed mutex in L1: a unique
// (symbol, direction, strategy) row acts as the authoritative
// compare-and-insert gate. The lock manager also sets a Redis key with SETNX
// before touching this row, as a fast path on acquire; lock reads use this
// table only.
type SignalLock struct {
	Symbol    string    `gorm:"size:20;not null;primaryKey" json:"symbol"`
	Direction Direction `gorm:"size:8;not null;primaryKey" json:"direction"`
	Strategy  string    `gorm:"size:40;not null;primaryKey" json:"strategy"`
	AcquiredAt time.Time `gorm:"not null" json:"acquired_at"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
}

func (SignalLock) TableName() string { return "signal_locks" }

// RateLedger persists the rate limiter's sliding-minute-window accounting so
// it can be rebuilt across a restart without over-crediting the budget.
type RateLedger struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WindowStart time.Time `gorm:"not null;index" json:"window_start"`
	UsedWeight  int       `gorm:"not null" json:"used_weight"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
}

func (RateLedger) TableName() string { return "rate_ledger" }
