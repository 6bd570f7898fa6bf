// Package config loads tool configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ladder-lab/internal/domain"
	"ladder-lab/internal/logger"
	"ladder-lab/internal/sweep"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override file values.
const (
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
	EnvLogDir        = "LADDER_LOG_DIR"
)

// Config is the root of the YAML document.
type Config struct {
	Plan       PlanConfig       `yaml:"plan"`
	Simulation SimulationConfig `yaml:"simulation"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    logger.Config    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Market     MarketConfig     `yaml:"market"`
}

// PlanConfig holds the ladder and overhead inputs shared by plans and simulations.
type PlanConfig struct {
	CurrentPrice   float64 `yaml:"current_price"`
	Quantity       float64 `yaml:"quantity"`
	AvailableFunds float64 `yaml:"available_funds"`
	Levels         int     `yaml:"levels"`
	Steepness      float64 `yaml:"steepness"`
	Risk           float64 `yaml:"risk"`
	Direction      string  `yaml:"direction"`
	RangeAbove     float64 `yaml:"range_above"`
	RangeBelow     float64 `yaml:"range_below"`

	FeeSpread             float64 `yaml:"fee_spread"`
	FeeHedgingCoefficient float64 `yaml:"fee_hedging_coefficient"`
	DeltaTime             float64 `yaml:"delta_time"`
	SymbolCount           int     `yaml:"symbol_count"`
	OffsetK               float64 `yaml:"offset_k"`
	SurplusRate           float64 `yaml:"surplus_rate"`
	FutureTradeCount      int     `yaml:"future_trade_count"`

	MaxRisk float64 `yaml:"max_risk"`
	MinRisk float64 `yaml:"min_risk"`

	StopLosses          bool    `yaml:"stop_losses"`
	StopLossFraction    float64 `yaml:"stop_loss_fraction"`
	StopLossHedgeCount  int     `yaml:"stop_loss_hedge_count"`
	DowntrendHedgeCount int     `yaml:"downtrend_hedge_count"`

	SavingsRate          float64 `yaml:"savings_rate"`
	ChainCycles          int     `yaml:"chain_cycles"` // cycles projected by the plan tool
	SkipStopLossClamp    bool    `yaml:"skip_stop_loss_clamp"`
	SkipFutureTradeHedge bool    `yaml:"skip_future_trade_hedge"`
}

// SimulationConfig holds the backtest inputs that are not part of the entry plan.
type SimulationConfig struct {
	Symbol          string  `yaml:"symbol"`
	StartingCapital float64 `yaml:"starting_capital"`
	Start           int64   `yaml:"start"` // unix seconds, 0 = series start
	End             int64   `yaml:"end"`   // unix seconds, 0 = series end
	BatchID         string  `yaml:"batch_id"`

	ExitLevels    int     `yaml:"exit_levels"`
	ExitRisk      float64 `yaml:"exit_risk"`
	ExitFraction  float64 `yaml:"exit_fraction"`
	ExitSteepness float64 `yaml:"exit_steepness"`

	FeeScenario string  `yaml:"fee_scenario"` // maker, taker or pessimistic; overrides the rates below
	BuyFeeRate  float64 `yaml:"buy_fee_rate"`
	SellFeeRate float64 `yaml:"sell_fee_rate"`

	ChainCycles   bool    `yaml:"chain_cycles"`
	SavingsRate   float64 `yaml:"savings_rate"`
	MinEntryRatio float64 `yaml:"min_entry_ratio"`
	StopLosses    bool    `yaml:"stop_losses"`
}

// SweepConfig configures a parameter sweep.
type SweepConfig struct {
	Symbols         []string   `yaml:"symbols"`
	Workers         int        `yaml:"workers"` // 0 = GOMAXPROCS
	SkipEmptySeries bool       `yaml:"skip_empty_series"`
	Grid            sweep.Grid `yaml:"grid"`
}

// StorageConfig selects the storage backends.
type StorageConfig struct {
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`

	// PostgreSQL pool sizing; zero keeps the driver default
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// MarketConfig configures price acquisition.
type MarketConfig struct {
	Interval      string        `yaml:"interval"`   // kline interval, e.g. 1m
	Limit         int           `yaml:"limit"`      // klines per request
	StreamURL     string        `yaml:"stream_url"` // base URL, streams are appended
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Plan: PlanConfig{
			CurrentPrice:          100,
			Quantity:              1,
			AvailableFunds:        1000,
			Levels:                4,
			Steepness:             6,
			Risk:                  0.5,
			Direction:             string(domain.DirectionLong),
			FeeSpread:             0.001,
			FeeHedgingCoefficient: 1,
			DeltaTime:             1,
			SymbolCount:           1,
			SurplusRate:           0.02,
			MaxRisk:               0.05,
			MinRisk:               0.005,
			StopLossFraction:      1,
			DowntrendHedgeCount:   1,
			ChainCycles:           1,
		},
		Simulation: SimulationConfig{
			StartingCapital: 1000,
			ExitRisk:        0.5,
			ExitFraction:    1,
			ExitSteepness:   4,
			MinEntryRatio:   0.01,
		},
		Storage: StorageConfig{
			UseMemory:       true,
			MaxConns:        8,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Addr:      ":9102",
			Namespace: "ladder_lab",
		},
		Market: MarketConfig{
			Interval:      "1m",
			Limit:         1000,
			StreamURL:     "wss://stream.binance.com:9443",
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
	}
}

// Load reads .env files, then the YAML file at path on top of Default, then
// applies environment overrides. An empty path skips the YAML step. A missing
// .env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		c.Logging.Dir = v
	}
}

// Validate checks the values the tools cannot coerce.
func (c *Config) Validate() error {
	p := c.Plan
	if p.Levels < 1 {
		return invalid("plan.levels must be >= 1, got %d", p.Levels)
	}
	if p.Risk < 0 || p.Risk > 1 {
		return invalid("plan.risk must be in [0,1], got %g", p.Risk)
	}
	switch domain.Direction(p.Direction) {
	case domain.DirectionLong, domain.DirectionShort:
	default:
		return invalid("plan.direction must be long or short, got %q", p.Direction)
	}
	if p.RangeAbove < 0 || p.RangeBelow < 0 {
		return invalid("plan ranges must be >= 0")
	}
	if p.StopLossFraction < 0 || p.StopLossFraction > 1 {
		return invalid("plan.stop_loss_fraction must be in [0,1], got %g", p.StopLossFraction)
	}
	if p.ChainCycles < 1 {
		return invalid("plan.chain_cycles must be >= 1, got %d", p.ChainCycles)
	}

	s := c.Simulation
	if s.StartingCapital < 0 {
		return invalid("simulation.starting_capital must be >= 0")
	}
	if s.End != 0 && s.End < s.Start {
		return invalid("simulation.end %d precedes start %d", s.End, s.Start)
	}
	if s.FeeScenario != "" {
		if _, ok := domain.FeeScenarioByID(s.FeeScenario); !ok {
			return invalid("unknown fee scenario %q", s.FeeScenario)
		}
	}
	if s.BuyFeeRate < 0 || s.SellFeeRate < 0 {
		return invalid("fee rates must be >= 0")
	}

	if c.Sweep.Workers < 0 {
		return invalid("sweep.workers must be >= 0")
	}

	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		return invalid("postgres_dsn and clickhouse_dsn are required unless use_memory is set")
	}

	st := c.Storage
	if st.MaxConns < 0 || st.MinConns < 0 {
		return invalid("storage pool sizes must be >= 0")
	}
	if st.MaxConns > 0 && st.MinConns > st.MaxConns {
		return invalid("storage.min_conns %d exceeds max_conns %d", st.MinConns, st.MaxConns)
	}
	if st.MaxConnLifetime < 0 || st.MaxConnIdleTime < 0 || st.ConnectTimeout < 0 {
		return invalid("storage durations must be >= 0")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return invalid("metrics.addr is required when metrics are enabled")
	}

	if c.Market.BatchSize < 1 {
		return invalid("market.batch_size must be >= 1")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// PlanConfig converts the plan section into the planner's input.
func (c *Config) PlanConfig() domain.PlanConfig {
	p := c.Plan
	return domain.PlanConfig{
		CurrentPrice:          p.CurrentPrice,
		Quantity:              p.Quantity,
		Levels:                p.Levels,
		Steepness:             p.Steepness,
		Risk:                  p.Risk,
		Direction:             domain.Direction(p.Direction),
		AvailableFunds:        p.AvailableFunds,
		RangeAbove:            p.RangeAbove,
		RangeBelow:            p.RangeBelow,
		FeeSpread:             p.FeeSpread,
		FeeHedgingCoefficient: p.FeeHedgingCoefficient,
		DeltaTime:             p.DeltaTime,
		SymbolCount:           p.SymbolCount,
		OffsetK:               p.OffsetK,
		SurplusRate:           p.SurplusRate,
		FutureTradeCount:      p.FutureTradeCount,
		MaxRisk:               p.MaxRisk,
		MinRisk:               p.MinRisk,
		GenerateStopLosses:    p.StopLosses,
		StopLossFraction:      p.StopLossFraction,
		StopLossHedgeCount:    p.StopLossHedgeCount,
		DowntrendHedgeCount:   p.DowntrendHedgeCount,
		SavingsRate:           p.SavingsRate,
		SkipStopLossClamp:     p.SkipStopLossClamp,
		SkipFutureTradeHedge:  p.SkipFutureTradeHedge,
	}
}

// SimConfig builds a simulator template from the plan and simulation
// sections. Prices are left empty for the runner to fill.
func (c *Config) SimConfig() domain.SimConfig {
	s := c.Simulation
	entry := c.PlanConfig()

	buy, sell := s.BuyFeeRate, s.SellFeeRate
	if sc, ok := domain.FeeScenarioByID(s.FeeScenario); ok {
		buy, sell = sc.BuyFeeRate, sc.SellFeeRate
		entry.FeeSpread = sc.FeeSpread
	}

	return domain.SimConfig{
		StartingCapital: s.StartingCapital,
		Symbol:          s.Symbol,
		Entry:           entry,
		ExitLevels:      s.ExitLevels,
		ExitRisk:        s.ExitRisk,
		ExitFraction:    s.ExitFraction,
		ExitSteepness:   s.ExitSteepness,
		BuyFeeRate:      buy,
		SellFeeRate:     sell,
		ChainCycles:     s.ChainCycles,
		SavingsRate:     s.SavingsRate,
		MinEntryRatio:   s.MinEntryRatio,
		StopLosses:      s.StopLosses,
	}
}
