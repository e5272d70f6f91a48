// Package provider implements the reference AnalysisProvider the backtest
// engine calls once per symbol per timestep (spec.md §6's "Multi-timeframe
// provider"). It slices each timeframe's full bar history down to the
// anchor timestamp before recomputing PLdot/Envelope/State/Pattern, so the
// analysis a given timestep sees never looks ahead of that timestep's bar
// (the no-look-ahead property tested directly on PLdot in
// indicator/pldot_test.go).
package provider

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/dgquant/bar"
	"github.com/vadiminshakov/dgquant/coordinator"
	"github.com/vadiminshakov/dgquant/dgtime"
	"github.com/vadiminshakov/dgquant/indicator"
	"github.com/vadiminshakov/dgquant/marketstate"
	"github.com/vadiminshakov/dgquant/pattern"
	"github.com/vadiminshakov/dgquant/signal"
)

// SymbolSeries bundles one symbol's full bar history per classified
// timeframe.
type SymbolSeries struct {
	HTF             bar.Series
	HTFInterval     dgtime.Interval
	Trading         bar.Series
	TradingInterval dgtime.Interval
	LTF             bar.Series
	LTFInterval     dgtime.Interval
}

// Config bundles the per-component configs recomputed on every slice.
type Config struct {
	Coordinator coordinator.Config
	Envelope    indicator.Config
	MarketState marketstate.Config
	Pattern     pattern.Config
}

// Provider is the reference, recompute-on-every-call AnalysisProvider. It
// holds one Coordinator per symbol so the Reduce extension point's
// cross-call memory (spec.md §4.5 step 9) is tracked correctly across
// timesteps.
type Provider struct {
	series       map[string]SymbolSeries
	cfg          Config
	coordinators map[string]*coordinator.Coordinator
}

// New constructs a Provider over series, keyed by symbol.
func New(series map[string]SymbolSeries, cfg Config) (*Provider, error) {
	coordinators := make(map[string]*coordinator.Coordinator, len(series))
	for symbol := range series {
		c, err := coordinator.New(cfg.Coordinator)
		if err != nil {
			return nil, errors.Wrapf(err, "symbol %s", symbol)
		}
		coordinators[symbol] = c
	}
	return &Provider{series: series, cfg: cfg, coordinators: coordinators}, nil
}

// ProvideAnalysis implements backtest.AnalysisProvider.
func (p *Provider) ProvideAnalysis(symbol string, anchor time.Time) (*coordinator.MultiTimeframeAnalysis, error) {
	s, ok := p.series[symbol]
	if !ok {
		return nil, errors.Errorf("no series configured for symbol %s", symbol)
	}
	c, ok := p.coordinators[symbol]
	if !ok {
		return nil, errors.Errorf("no coordinator for symbol %s", symbol)
	}

	htfData, err := buildTimeframeData(s.HTF, s.HTFInterval, coordinator.ClassificationHigher, anchor, p.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "htf")
	}
	tradingData, err := buildTimeframeData(s.Trading, s.TradingInterval, coordinator.ClassificationTrading, anchor, p.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "trading")
	}

	var ltfData *coordinator.TimeframeData
	if s.LTF != nil {
		d, err := buildTimeframeData(s.LTF, s.LTFInterval, coordinator.ClassificationLower, anchor, p.cfg)
		if err == nil {
			ltfData = &d
		}
	}

	return c.Analyze(symbol, htfData, tradingData, ltfData)
}

func buildTimeframeData(series bar.Series, interval dgtime.Interval, class coordinator.Classification, anchor time.Time, cfg Config) (coordinator.TimeframeData, error) {
	cut := sliceThrough(series, anchor)
	if len(cut) < 3 {
		return coordinator.TimeframeData{}, errors.Wrap(indicator.ErrInsufficientHistory, "not enough bars at or before anchor")
	}

	pldot, err := indicator.ComputePLdot(cut)
	if err != nil {
		return coordinator.TimeframeData{}, err
	}
	env, err := indicator.ComputeEnvelope(cut, pldot, cfg.Envelope)
	if err != nil {
		return coordinator.TimeframeData{}, err
	}
	states, err := marketstate.Compute(cut, pldot, cfg.MarketState)
	if err != nil {
		return coordinator.TimeframeData{}, err
	}
	patterns := pattern.DetectAll(cut, pldot, env, cfg.Pattern)

	return coordinator.TimeframeData{
		Timeframe:      interval,
		Classification: class,
		Bars:           cut,
		Pldot:          pldot,
		Envelopes:      env,
		States:         states,
		Patterns:       patterns,
	}, nil
}

// sliceThrough returns the prefix of series with Timestamp <= anchor.
func sliceThrough(series bar.Series, anchor time.Time) bar.Series {
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(anchor)
	})
	return series[:idx]
}

// Generator implements backtest.SignalGenerator on top of the same sliced,
// no-look-ahead trading series the Provider builds. It is kept separate
// from Provider because spec.md §4.6 treats alignment and signal
// generation as distinct, independently testable stages.
type Generator struct {
	series map[string]SymbolSeries
	cfg    Config
	signal signal.Config
}

// NewGenerator constructs a Generator over the same series a Provider was
// built from.
func NewGenerator(series map[string]SymbolSeries, cfg Config, signalCfg signal.Config) *Generator {
	return &Generator{series: series, cfg: cfg, signal: signalCfg}
}

// Generate implements backtest.SignalGenerator.
func (g *Generator) Generate(symbol string, analysis *coordinator.MultiTimeframeAnalysis, openSide signal.OpenSide) (*signal.Signal, error) {
	s, ok := g.series[symbol]
	if !ok {
		return nil, errors.Errorf("no series configured for symbol %s", symbol)
	}
	tradingData, err := buildTimeframeData(s.Trading, s.TradingInterval, coordinator.ClassificationTrading, analysis.Timestamp, g.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "trading")
	}
	return signal.Generate(symbol, analysis, tradingData, openSide, g.signal)
}
