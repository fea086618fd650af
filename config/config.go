package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fxHedgeBot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Broker API
	BrokerToken     string
	BrokerAccountID string
	IsPractice      bool

	// Identity
	Agent string // Partitions the order ledger between running agents

	// Trading Parameters
	Granularity    string         // Bar granularity for ranking and exits, e.g. "M15"
	RiskVariant    string         // Name recorded on trades, e.g. "conservative"
	RiskFraction   float64        // Fraction of equity risked per trade
	TrapOffsetPips float64        // Limit price offset from mid, in pips
	OrderExpiry    time.Duration  // GTD lifetime of resting entry orders
	CycleInterval  time.Duration  // Live evaluation cadence
	PacingDelay    time.Duration  // Delay between sequential leg submissions
	CooldownBars   int            // Re-entry cooldown per leg, in cycles
	MaxHoldingBars int            // Time stop; 0 disables it
	Legs           []domain.HedgeLeg
	Currencies     []domain.Currency

	// Database
	DBPath string

	// Logging
	LogLevel string
	LogFile  string
}

// DefaultLegs is the compiled three-leg configuration, used when no legs
// file is provided. Weights sum to 1.
func DefaultLegs() []domain.HedgeLeg {
	return []domain.HedgeLeg{
		{ID: 1, Label: "alpha", StrongSlot: 1, WeakSlot: 8, Weight: 0.5, MinStopPips: 25, RewardRatio: 2.0},
		{ID: 2, Label: "beta", StrongSlot: 2, WeakSlot: 7, Weight: 0.3, MinStopPips: 20, RewardRatio: 1.8},
		{ID: 3, Label: "gamma", StrongSlot: 3, WeakSlot: 6, Weight: 0.2, MinStopPips: 15, RewardRatio: 1.6},
	}
}

// legsFile is the YAML shape of an external legs configuration.
type legsFile struct {
	Legs []domain.HedgeLeg `yaml:"legs"`
}

// LoadLegs reads a legs configuration from a YAML file.
func LoadLegs(path string) ([]domain.HedgeLeg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legs file '%s': %w", path, err)
	}
	var parsed legsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse legs file '%s': %w", path, err)
	}
	if len(parsed.Legs) == 0 {
		return nil, fmt.Errorf("legs file '%s' defines no legs", path)
	}
	return parsed.Legs, nil
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Broker API
	cfg.BrokerToken = getEnv("BROKER_API_TOKEN", "")
	cfg.BrokerAccountID = getEnv("BROKER_ACCOUNT_ID", "")
	cfg.IsPractice = getEnvAsBool("IS_PRACTICE", true) // Default to practice for safety

	if cfg.BrokerToken == "" {
		errs = append(errs, "BROKER_API_TOKEN must be set")
	}
	if cfg.BrokerAccountID == "" {
		errs = append(errs, "BROKER_ACCOUNT_ID must be set")
	}

	// Identity
	cfg.Agent = getEnv("AGENT_NAME", "hedge-alpha")

	// Trading Parameters
	cfg.Granularity = getEnv("GRANULARITY", "M15")
	cfg.RiskVariant = getEnv("RISK_VARIANT", "conservative")

	cfg.RiskFraction, err = getEnvAsFloatRequired("RISK_FRACTION", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FRACTION: %v", err))
	} else if cfg.RiskFraction <= 0 || cfg.RiskFraction >= 1.0 {
		errs = append(errs, "RISK_FRACTION must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.TrapOffsetPips, err = getEnvAsFloatRequired("TRAP_OFFSET_PIPS", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRAP_OFFSET_PIPS: %v", err))
	} else if cfg.TrapOffsetPips < 0 {
		errs = append(errs, "TRAP_OFFSET_PIPS cannot be negative")
	}

	orderExpirySeconds := getEnvAsInt("ORDER_EXPIRY_SECONDS", 90)
	if orderExpirySeconds <= 0 {
		errs = append(errs, "ORDER_EXPIRY_SECONDS must be positive")
	}
	cfg.OrderExpiry = time.Duration(orderExpirySeconds) * time.Second

	cycleSeconds := getEnvAsInt("CYCLE_INTERVAL_SECONDS", 60)
	if cycleSeconds <= 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS must be positive")
	}
	cfg.CycleInterval = time.Duration(cycleSeconds) * time.Second

	pacingMillis := getEnvAsInt("PACING_DELAY_MS", 250)
	if pacingMillis < 0 {
		errs = append(errs, "PACING_DELAY_MS cannot be negative")
	}
	cfg.PacingDelay = time.Duration(pacingMillis) * time.Millisecond

	cfg.CooldownBars = getEnvAsInt("COOLDOWN_BARS", 5)
	if cfg.CooldownBars < 0 {
		errs = append(errs, "COOLDOWN_BARS cannot be negative")
	}

	cfg.MaxHoldingBars = getEnvAsInt("MAX_HOLDING_BARS", 0)
	if cfg.MaxHoldingBars < 0 {
		errs = append(errs, "MAX_HOLDING_BARS cannot be negative")
	}

	// Hedge legs: a YAML file when provided, the compiled defaults otherwise.
	legsPath := getEnv("LEGS_FILE", "")
	if legsPath != "" {
		cfg.Legs, err = LoadLegs(legsPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid LEGS_FILE: %v", err))
		}
	} else {
		cfg.Legs = DefaultLegs()
	}
	if legErrs := validateLegs(cfg.Legs); len(legErrs) > 0 {
		errs = append(errs, legErrs...)
	}

	cfg.Currencies = domain.MajorCurrencies

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/hedge_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// validateLegs checks the structural invariants of a leg set.
func validateLegs(legs []domain.HedgeLeg) []string {
	var errs []string
	if len(legs) == 0 {
		errs = append(errs, "at least one hedge leg must be configured")
		return errs
	}
	seen := make(map[int]bool, len(legs))
	maxSlot := len(domain.MajorCurrencies)
	var totalWeight float64
	for _, leg := range legs {
		if seen[leg.ID] {
			errs = append(errs, fmt.Sprintf("duplicate leg ID %d", leg.ID))
		}
		seen[leg.ID] = true
		if leg.StrongSlot < 1 || leg.StrongSlot > maxSlot || leg.WeakSlot < 1 || leg.WeakSlot > maxSlot {
			errs = append(errs, fmt.Sprintf("leg %d rank slots must be within 1..%d", leg.ID, maxSlot))
		}
		if leg.StrongSlot >= leg.WeakSlot {
			errs = append(errs, fmt.Sprintf("leg %d strong slot must be above its weak slot", leg.ID))
		}
		if leg.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("leg %d weight must be positive", leg.ID))
		}
		if leg.MinStopPips <= 0 {
			errs = append(errs, fmt.Sprintf("leg %d minimum stop must be positive", leg.ID))
		}
		if leg.RewardRatio <= 0 {
			errs = append(errs, fmt.Sprintf("leg %d reward ratio must be positive", leg.ID))
		}
		totalWeight += leg.Weight
	}
	if totalWeight > 1.0+1e-9 {
		errs = append(errs, fmt.Sprintf("leg weights sum to %.3f, must not exceed 1", totalWeight))
	}
	return errs
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
