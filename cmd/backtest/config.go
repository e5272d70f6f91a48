package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/dgquant/backtest"
	"github.com/vadiminshakov/dgquant/dgtime"
)

// RunConfig is the YAML-configurable shape of a backtest run: which
// symbols to trade, where their per-timeframe CSV data lives, and the
// PortfolioConfig (spec.md §4.7.1) tuning the engine.
type RunConfig struct {
	Symbols         []string `yaml:"symbols"`
	DataDir         string   `yaml:"data_dir"`
	HTFInterval     string   `yaml:"htf_interval"`
	TradingInterval string   `yaml:"trading_interval"`
	LTFInterval     string   `yaml:"ltf_interval,omitempty"`

	InitialCapital           string `yaml:"initial_capital"`
	CommissionRate           string `yaml:"commission_rate"`
	SlippageBps              int    `yaml:"slippage_bps"`
	RiskPerTrade             string `yaml:"risk_per_trade,omitempty"`
	MinSignalConfidence      string `yaml:"min_signal_confidence,omitempty"`
	ConfidenceScalingEnabled *bool  `yaml:"confidence_scaling_enabled,omitempty"`
	AllowShort               bool   `yaml:"allow_short,omitempty"`
	MaxConcurrentPositions   int    `yaml:"max_concurrent_positions,omitempty"`
	PriceRounding            int32  `yaml:"price_rounding,omitempty"`
}

var configPathFlag = flag.String("config", "", "path to yaml run config (required)")

// loadRunConfig parses the YAML file at -config into a backtest.Config
// plus loader parameters. A malformed file is fatal at startup (spec.md
// §7, exit code 2).
func loadRunConfig(path string) (RunConfig, backtest.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrapf(err, "read config %s", path)
	}
	var rc RunConfig
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrap(err, "parse config yaml")
	}

	if len(rc.Symbols) == 0 {
		return RunConfig{}, backtest.Config{}, errors.New("'symbols' must list at least one symbol")
	}
	if rc.DataDir == "" {
		return RunConfig{}, backtest.Config{}, errors.New("'data_dir' is required")
	}
	if _, err := dgtime.Interval(rc.HTFInterval).Duration(); err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrapf(err, "invalid 'htf_interval' %q", rc.HTFInterval)
	}
	if _, err := dgtime.Interval(rc.TradingInterval).Duration(); err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrapf(err, "invalid 'trading_interval' %q", rc.TradingInterval)
	}

	cfg := backtest.DefaultConfig()

	capital, err := decimal.NewFromString(rc.InitialCapital)
	if err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrap(err, "invalid 'initial_capital'")
	}
	cfg.InitialCapital = capital

	commission, err := decimal.NewFromString(rc.CommissionRate)
	if err != nil {
		return RunConfig{}, backtest.Config{}, errors.Wrap(err, "invalid 'commission_rate'")
	}
	cfg.CommissionRate = commission
	cfg.SlippageBps = rc.SlippageBps

	if rc.RiskPerTrade != "" {
		risk, err := decimal.NewFromString(rc.RiskPerTrade)
		if err != nil {
			return RunConfig{}, backtest.Config{}, errors.Wrap(err, "invalid 'risk_per_trade'")
		}
		cfg.RiskPerTrade = risk
	}
	if rc.MinSignalConfidence != "" {
		minConf, err := strconv.ParseFloat(rc.MinSignalConfidence, 64)
		if err != nil {
			return RunConfig{}, backtest.Config{}, errors.Wrap(err, "invalid 'min_signal_confidence'")
		}
		cfg.MinSignalConfidence = minConf
	}
	if rc.ConfidenceScalingEnabled != nil {
		cfg.ConfidenceScalingEnabled = *rc.ConfidenceScalingEnabled
	}
	cfg.AllowShort = rc.AllowShort
	if rc.MaxConcurrentPositions > 0 {
		cfg.MaxConcurrentPositions = rc.MaxConcurrentPositions
	}
	if rc.PriceRounding > 0 {
		cfg.PriceRounding = rc.PriceRounding
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, backtest.Config{}, err
	}

	return rc, cfg, nil
}
