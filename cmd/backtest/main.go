// Command backtest runs the Drummond Geometry multi-timeframe strategy
// through the deterministic portfolio backtester of spec.md §4.7 against
// CSV bar history.
//
// Usage:
//
//	backtest --config run.yaml
//
// Exit codes:
//
//	0  success
//	2  invalid configuration
//	3  missing mandatory symbol data
//	4  run aborted
//	1  any other failure
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/dgquant/backtest"
	"github.com/vadiminshakov/dgquant/backtest/metrics"
	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/coordinator"
	"github.com/vadiminshakov/dgquant/dgtime"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/internal/loader"
	"github.com/vadiminshakov/dgquant/internal/provider"
	"github.com/vadiminshakov/dgquant/marketstate"
	"github.com/vadiminshakov/dgquant/pattern"
	sig "github.com/vadiminshakov/dgquant/signal"
)

const (
	exitSuccess = 0
	exitOther   = 1
	exitConfig  = 2
	exitData    = 3
	exitAborted = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	if *configPathFlag == "" {
		logger.Error("missing required -config flag")
		return exitConfig
	}

	rc, portfolioCfg, err := loadRunConfig(*configPathFlag)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitConfig
	}

	series, err := loadSymbolSeries(rc)
	if err != nil {
		logger.Error("missing or invalid symbol data", zap.Error(err))
		return exitData
	}

	provCfg := provider.Config{
		Coordinator: coordinator.DefaultConfig(),
		Envelope:    indicator.DefaultConfig(),
		MarketState: marketstate.DefaultConfig(),
		Pattern:     pattern.DefaultConfig(),
	}

	analysisProvider, err := provider.New(series, provCfg)
	if err != nil {
		logger.Error("failed to build analysis provider", zap.Error(err))
		return exitOther
	}
	generator := provider.NewGenerator(series, provCfg, sig.DefaultConfig())

	engine, err := backtest.NewEngine(portfolioCfg, analysisProvider, generator, logger)
	if err != nil {
		logger.Error("failed to build engine", zap.Error(err))
		return exitConfig
	}

	steps := loader.BuildTimesteps(tradingBarsOnly(series))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal, aborting run")
			cancel()
		case <-ctx.Done():
		}
	}()

	stepChan := make(chan backtest.Timestep, len(steps))
	for _, s := range steps {
		stepChan <- s
	}
	close(stepChan)

	result, err := engine.Run(ctx, stepChan)
	if err != nil {
		logger.Error("backtest run failed", zap.Error(err))
		return exitOther
	}
	if result.Aborted {
		logger.Warn("backtest run aborted")
		return exitAborted
	}

	report(result)
	return exitSuccess
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return zap.Must(cfg.Build())
}

func loadSymbolSeries(rc RunConfig) (map[string]provider.SymbolSeries, error) {
	out := make(map[string]provider.SymbolSeries, len(rc.Symbols))
	for _, symbol := range rc.Symbols {
		htf, err := loader.LoadCSV(filepath.Join(rc.DataDir, rc.HTFInterval, symbol+".csv"))
		if err != nil {
			return nil, err
		}
		trading, err := loader.LoadCSV(filepath.Join(rc.DataDir, rc.TradingInterval, symbol+".csv"))
		if err != nil {
			return nil, err
		}
		s := provider.SymbolSeries{
			HTF:             htf,
			HTFInterval:     dgtime.Interval(rc.HTFInterval),
			Trading:         trading,
			TradingInterval: dgtime.Interval(rc.TradingInterval),
		}
		if rc.LTFInterval != "" {
			ltf, err := loader.LoadCSV(filepath.Join(rc.DataDir, rc.LTFInterval, symbol+".csv"))
			if err == nil {
				s.LTF = ltf
				s.LTFInterval = dgtime.Interval(rc.LTFInterval)
			}
		}
		out[symbol] = s
	}
	return out, nil
}

func tradingBarsOnly(series map[string]provider.SymbolSeries) map[string]bar.Series {
	out := make(map[string]bar.Series, len(series))
	for symbol, s := range series {
		out[symbol] = s.Trading
	}
	return out
}

func report(result *backtest.Result) {
	m := metrics.Compute(result)
	fmt.Printf("trades=%d win_rate=%.4f sharpe=%.4f sortino=%.4f max_drawdown=%.4f total_return=%s\n",
		m.TradeCount, m.WinRate, m.Sharpe, m.Sortino, m.MaxDrawdown, m.TotalReturn.String())
	for symbol, stats := range result.PerSymbolStats {
		fmt.Printf("  %s: trades=%d net_pnl=%s wins=%d losses=%d\n", symbol, stats.TradeCount, stats.NetPnL.String(), stats.WinCount, stats.LossCount)
	}
}
