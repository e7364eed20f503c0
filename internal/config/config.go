// Package config loads the engine's runtime configuration from the
// environment. YAML/file-based config loading is out of scope; callers are
// expected to hand the rest of the engine an already-populated *Config.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized environment option.
type Config struct {
	Exchange ExchangeConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Rate     RateConfig
	Loader   LoaderConfig
	Tracker  TrackerConfig
	Scorer   ScorerConfig
	ActionPrice ActionPriceConfig
}

// ExchangeConfig holds exchange API credentials and endpoints.
type ExchangeConfig struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	WSBaseURL  string
	Symbols    []string
	HTTPTimeout time.Duration
	WSConnectTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// RateConfig configures the request-weight rate limiter (R1).
type RateConfig struct {
	ThresholdFraction float64
	BanCooldownSec    int
}

// LoaderConfig configures the candle data loader (D1).
type LoaderConfig struct {
	ParallelMax       int
	RefreshHorizonDays int
	SettleDelaySec    int
	FreshnessSlackSec int
	BackfillMaxBars   int
}

// TrackerConfig configures the performance tracker (T1).
type TrackerConfig struct {
	CadenceSec           int
	TimeStopBars         int
	PostTP2TimeStopHours int
	TrailATRMult         float64
	TP1Fraction          float64
	TP2Fraction          float64
	RunnerFraction       float64
	BreakevenBufferPct   float64
}

// ScorerConfig configures the signal scorer (S3).
type ScorerConfig struct {
	EnterThreshold      float64
	MinFactors          int
	BTCPenalty          float64
	BTCFilterEnabled    bool
	CVDBonusWeight      float64
	ADXRefinementWeight float64
	RSIRefinementWeight float64
}

// ActionPriceConfig configures the Action Price recognizer (S2).
type ActionPriceConfig struct {
	MaxSLPercent        float64
	MinTotalScore       float64
	TP2ScalpRR          float64
	TP2StandardRR       float64
	TP1Fraction         float64
	TP2Fraction         float64
	RunnerFraction      float64
	TrailingATRMultiple float64
}

// LoadFromEnv loads a .env file if present, then reads every recognized
// option, falling back to its documented default.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  no .env file found, using process environment")
	}

	return &Config{
		Exchange: ExchangeConfig{
			APIKey:           os.Getenv("EXCHANGE_API_KEY"),
			APISecret:        os.Getenv("EXCHANGE_API_SECRET"),
			BaseURL:          getEnvOrDefault("EXCHANGE_BASE_URL", "https://fapi.binance.com"),
			WSBaseURL:        getEnvOrDefault("EXCHANGE_WS_BASE_URL", "wss://fstream.binance.com"),
			Symbols:          splitCSV(getEnvOrDefault("EXCHANGE_SYMBOLS", "BTCUSDT,ETHUSDT")),
			HTTPTimeout:      time.Duration(getEnvInt("EXCHANGE_HTTP_TIMEOUT_SEC", 60)) * time.Second,
			WSConnectTimeout: time.Duration(getEnvInt("EXCHANGE_WS_CONNECT_TIMEOUT_SEC", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			Name:     getEnvOrDefault("DB_NAME", "signalengine"),
			User:     getEnvOrDefault("DB_USER", "signalengine"),
			Password: getEnvOrDefault("DB_PASSWORD", "signalengine"),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
		},
		Rate: RateConfig{
			ThresholdFraction: getEnvFloat("RATE_THRESHOLD_FRACTION", 0.55),
			BanCooldownSec:    getEnvInt("RATE_BAN_COOLDOWN_SEC", 60),
		},
		Loader: LoaderConfig{
			ParallelMax:        getEnvInt("LOADER_PARALLEL_MAX", 50),
			RefreshHorizonDays: getEnvInt("LOADER_REFRESH_HORIZON_DAYS", 10),
			SettleDelaySec:     getEnvInt("LOADER_SETTLE_DELAY_SEC", 31),
			FreshnessSlackSec:  getEnvInt("LOADER_FRESHNESS_SLACK_SEC", 5),
			BackfillMaxBars:    getEnvInt("LOADER_BACKFILL_MAX_BARS", 1500),
		},
		Tracker: TrackerConfig{
			CadenceSec:           getEnvInt("TRACKER_CADENCE_SEC", 60),
			TimeStopBars:         getEnvInt("TRACKER_TIME_STOP_BARS", 12),
			PostTP2TimeStopHours: getEnvInt("TRACKER_POST_TP2_TIME_STOP_HOURS", 72),
			TrailATRMult:         getEnvFloat("TRACKER_TRAIL_ATR_MULT", 1.2),
			TP1Fraction:          getEnvFloat("TRACKER_TP1_FRACTION", 0.30),
			TP2Fraction:          getEnvFloat("TRACKER_TP2_FRACTION", 0.40),
			RunnerFraction:       getEnvFloat("TRACKER_RUNNER_FRACTION", 0.30),
			BreakevenBufferPct:   getEnvFloat("TRACKER_BREAKEVEN_BUFFER_PCT", 0.05),
		},
		Scorer: ScorerConfig{
			EnterThreshold:      getEnvFloat("SCORER_ENTER_THRESHOLD", 3.0),
			MinFactors:          getEnvInt("SCORER_MIN_FACTORS", 3),
			BTCPenalty:          getEnvFloat("SCORER_BTC_PENALTY", 2.0),
			BTCFilterEnabled:    getEnvOrDefault("SCORER_BTC_FILTER_ENABLED", "true") == "true",
			CVDBonusWeight:      getEnvFloat("SCORER_CVD_BONUS_WEIGHT", 0.5),
			ADXRefinementWeight: getEnvFloat("SCORER_ADX_REFINEMENT_WEIGHT", 0.3),
			RSIRefinementWeight: getEnvFloat("SCORER_RSI_REFINEMENT_WEIGHT", 0.3),
		},
		ActionPrice: ActionPriceConfig{
			MaxSLPercent:        getEnvFloat("ACTION_PRICE_MAX_SL_PERCENT", 15.0),
			MinTotalScore:       getEnvFloat("ACTION_PRICE_MIN_TOTAL_SCORE", 6.0),
			TP2ScalpRR:          getEnvFloat("ACTION_PRICE_TP2_SCALP_RR", 1.5),
			TP2StandardRR:       getEnvFloat("ACTION_PRICE_TP2_STANDARD_RR", 2.0),
			TP1Fraction:         getEnvFloat("ACTION_PRICE_TP1_FRACTION", 0.30),
			TP2Fraction:         getEnvFloat("ACTION_PRICE_TP2_FRACTION", 0.40),
			RunnerFraction:      getEnvFloat("ACTION_PRICE_RUNNER_FRACTION", 0.30),
			TrailingATRMultiple: getEnvFloat("ACTION_PRICE_TRAILING_ATR_MULTIPLE", 1.2),
		},
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(value); i++ {
		if i == len(value) || value[i] == ',' {
			if i > start {
				out = append(out, value[start:i])
			}
			start = i + 1
		}
	}
	return out
}
