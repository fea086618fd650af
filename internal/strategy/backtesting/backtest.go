// Package backtesting replays bar history through the shared decision
// core: ranking, gating, sizing, and the exit state machine. The run is
// single-threaded and strictly sequential; identical inputs produce
// identical trade lists and equity curves.
package backtesting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/ids"
	"fxHedgeBot/internal/instruments"
	"fxHedgeBot/internal/lifecycle"
	"fxHedgeBot/internal/ports"
	"fxHedgeBot/internal/risk"
	"fxHedgeBot/internal/strategy/gates"
	"fxHedgeBot/internal/strategy/indicators"
	"fxHedgeBot/internal/strategy/rank"
)

// Config holds configuration for a backtest run.
type Config struct {
	Legs             []domain.HedgeLeg
	Currencies       []domain.Currency  // Default domain.MajorCurrencies
	Lookback         int                // Default rank.DefaultLookback
	InitialEquity    float64            // Default 10000
	RiskVariants     map[string]float64 // Default conservative 1% / aggressive 5%
	MinPairsFraction float64            // Run fails below this loaded-pair fraction, default 0.8
	TrendPeriod      int                // EMA period of the dynamic-stop reference, default 20
	InSampleFraction float64            // Trade-index split point, default 0.70

	Gates     gates.Config
	Sizer     risk.Config
	Lifecycle lifecycle.Config
}

// EquityPoint is one sample of a variant's equity curve, taken after
// each closed trade.
type EquityPoint struct {
	Time     time.Time
	Index    int // Bar index of the close
	Equity   float64
	Drawdown float64 // Fraction below the running peak at this point
}

// VariantResult is the capital curve of one risk-fraction variant over
// the identical trade stream.
type VariantResult struct {
	Fraction      float64
	InitialEquity float64
	FinalEquity   float64
	PeakEquity    float64
	MaxDrawdown   float64
	EquityCurve   []EquityPoint
}

// SampleStats summarizes one side of the in/out-of-sample split.
type SampleStats struct {
	Trades          int
	Wins            int
	WinRate         float64
	TotalPips       float64
	GrossProfitPips float64
	GrossLossPips   float64
	ProfitFactor    float64
}

// Result holds the aggregates of a completed run.
type Result struct {
	RunID string

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPips       float64
	AveragePips     float64
	GrossProfitPips float64
	GrossLossPips   float64
	ProfitFactor    float64
	RewardRiskRatio float64 // Average win over average loss, in pips
	Expectancy      float64 // Expected result per trade, in risk units

	Variants    map[string]*VariantResult
	InSample    SampleStats
	OutOfSample SampleStats
	Trades      []*domain.ClosedTrade
}

// variantState accumulates one variant's equity during the run.
type variantState struct {
	fraction float64
	equity   float64
	peak     float64
	maxDD    float64
	curve    []EquityPoint
}

// openMeta carries the per-trade context the lifecycle manager does not
// own: the leg descriptor, instrument metadata, and per-variant units.
type openMeta struct {
	leg   domain.HedgeLeg
	inst  instruments.Instrument
	units map[string]int
}

// Engine runs backtests. One engine may run several histories; each Run
// call is independent.
type Engine struct {
	cfg       Config
	logger    ports.Logger
	evaluator *gates.Evaluator
	sizer     *risk.Sizer
	trendRef  *indicators.MovingAverage
	atr       *indicators.ATR
}

// New creates a backtest engine, applying defaults for unset fields.
func New(cfg Config, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for backtest engine")
	}
	if len(cfg.Legs) == 0 {
		return nil, fmt.Errorf("at least one hedge leg is required")
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = domain.MajorCurrencies
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = rank.DefaultLookback
	}
	if cfg.InitialEquity <= 0 {
		cfg.InitialEquity = 10000
	}
	if len(cfg.RiskVariants) == 0 {
		cfg.RiskVariants = map[string]float64{"conservative": 0.01, "aggressive": 0.05}
	}
	if cfg.MinPairsFraction <= 0 {
		cfg.MinPairsFraction = 0.8
	}
	if cfg.TrendPeriod <= 0 {
		cfg.TrendPeriod = 20
	}
	if cfg.InSampleFraction <= 0 || cfg.InSampleFraction >= 1 {
		cfg.InSampleFraction = 0.70
	}
	for _, leg := range cfg.Legs {
		maxSlot := len(cfg.Currencies)
		if leg.StrongSlot < 1 || leg.StrongSlot > maxSlot || leg.WeakSlot < 1 || leg.WeakSlot > maxSlot {
			return nil, fmt.Errorf("leg %d rank slots out of range 1..%d", leg.ID, maxSlot)
		}
	}
	if cfg.Gates.Lookback == 0 {
		cfg.Gates.Lookback = cfg.Lookback
	}

	evaluator, err := gates.New(cfg.Gates, logger)
	if err != nil {
		return nil, fmt.Errorf("gate evaluator: %w", err)
	}
	sizer, err := risk.New(cfg.Sizer, logger)
	if err != nil {
		return nil, fmt.Errorf("risk sizer: %w", err)
	}
	atrPeriod := cfg.Sizer.ATRPeriod
	if atrPeriod <= 0 {
		atrPeriod = 14
	}

	return &Engine{
		cfg:       cfg,
		logger:    logger,
		evaluator: evaluator,
		sizer:     sizer,
		trendRef: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.TrendPeriod},
			Type:            indicators.ExponentialMovingAverage,
		}),
		atr: indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: atrPeriod}}),
	}, nil
}

// Run replays the history through the decision core. history maps
// instrument names to bar series, oldest to newest. The run fails only
// when fewer than the minimum fraction of required pairs loaded; short
// or missing individual pairs degrade gracefully.
func (e *Engine) Run(ctx context.Context, history map[string][]domain.Bar) (*Result, error) {
	required := instruments.Pairs(e.cfg.Currencies)
	loaded := 0
	commonLen := math.MaxInt
	for _, name := range required {
		bars := history[name]
		if len(bars) == 0 {
			continue
		}
		loaded++
		if len(bars) < commonLen {
			commonLen = len(bars)
		}
	}
	if float64(loaded) < e.cfg.MinPairsFraction*float64(len(required)) {
		return nil, fmt.Errorf("only %d of %d required pairs loaded: %w", loaded, len(required), ports.ErrDataUnavailable)
	}
	if commonLen <= e.cfg.Lookback+1 {
		return nil, fmt.Errorf("common history %d too short for lookback %d: %w", commonLen, e.cfg.Lookback, ports.ErrDataUnavailable)
	}

	manager, err := lifecycle.New(e.cfg.Lifecycle, e.logger)
	if err != nil {
		return nil, err
	}

	variants := make(map[string]*variantState, len(e.cfg.RiskVariants))
	variantNames := sortedKeys(e.cfg.RiskVariants)
	for _, name := range variantNames {
		variants[name] = &variantState{
			fraction: e.cfg.RiskVariants[name],
			equity:   e.cfg.InitialEquity,
			peak:     e.cfg.InitialEquity,
		}
	}

	open := make(map[int]openMeta, len(e.cfg.Legs))
	var trades []*domain.ClosedTrade

	e.logger.Info(ctx, "Backtest started", map[string]interface{}{
		"pairs":    loaded,
		"bars":     commonLen,
		"lookback": e.cfg.Lookback,
		"legs":     len(e.cfg.Legs),
	})

	for i := e.cfg.Lookback; i < commonLen; i++ {
		// Settle open positions against this bar's intrabar range before
		// considering any new entry.
		for _, leg := range e.cfg.Legs {
			meta, isOpen := open[leg.ID]
			if !isOpen {
				continue
			}
			bars := history[meta.inst.Name]
			bar := bars[i]
			tick := lifecycle.Tick{
				High:       bar.High,
				Low:        bar.Low,
				Close:      bar.Close,
				Time:       bar.Time,
				Index:      i,
				Intrabar:   true,
				Indicators: e.snapshot(ctx, bars[:i+1]),
			}
			if trade := manager.Evaluate(ctx, meta.leg, meta.inst.PipSize(), tick); trade != nil {
				e.settle(trade, meta, variants, variantNames)
				trades = append(trades, trade)
				delete(open, leg.ID)
			}
		}

		// New entries only below the concurrent position cap.
		if manager.AtCapacity() {
			continue
		}
		ranks := rank.Rank(history, i, e.cfg.Lookback, e.cfg.Currencies)
		for _, leg := range e.cfg.Legs {
			if !manager.CanOpen(leg.ID, i) {
				continue
			}
			strong := ranks[leg.StrongSlot-1].Currency
			weak := ranks[leg.WeakSlot-1].Currency
			res, ok := instruments.Resolve(strong, weak)
			if !ok {
				continue
			}
			bars := history[res.Instrument.Name]
			if len(bars) <= i {
				continue
			}
			cand := domain.TradeCandidate{
				Leg:        leg,
				Instrument: res.Instrument.Name,
				Direction:  res.Direction(),
				Strong:     strong,
				Weak:       weak,
			}
			if !e.evaluator.Check(ctx, cand, ranks, bars[:i+1]).Passed {
				continue
			}
			plan, err := e.sizer.Plan(ctx, leg, res.Instrument, bars[:i+1])
			if err != nil {
				e.logger.Warn(ctx, "Risk plan failed, skipping leg", map[string]interface{}{
					"leg":   leg.ID,
					"error": err.Error(),
				})
				continue
			}
			entry := bars[i].Close
			stop, target := plan.Apply(entry, cand.Direction)

			units := make(map[string]int, len(variantNames))
			for _, name := range variantNames {
				units[name] = plan.Units(variants[name].equity, variants[name].fraction, leg.Weight)
			}

			pos := &domain.Position{
				LegID:       leg.ID,
				Instrument:  res.Instrument.Name,
				Direction:   cand.Direction,
				Units:       units[variantNames[0]],
				EntryPrice:  entry,
				StopPrice:   stop,
				TargetPrice: target,
				EntryTime:   bars[i].Time,
				EntryIndex:  i,
			}
			if err := manager.Open(ctx, pos); err != nil {
				e.logger.Warn(ctx, "Open refused", map[string]interface{}{"leg": leg.ID, "error": err.Error()})
				continue
			}
			open[leg.ID] = openMeta{leg: leg, inst: res.Instrument, units: units}
		}
	}

	// Force-close anything still open at the final bar's close.
	last := commonLen - 1
	for _, leg := range e.cfg.Legs {
		meta, isOpen := open[leg.ID]
		if !isOpen {
			continue
		}
		bar := history[meta.inst.Name][last]
		tick := lifecycle.Tick{High: bar.High, Low: bar.Low, Close: bar.Close, Time: bar.Time, Index: last, Intrabar: true}
		if trade := manager.ForceClose(ctx, meta.leg, meta.inst.PipSize(), bar.Close, tick); trade != nil {
			e.settle(trade, meta, variants, variantNames)
			trades = append(trades, trade)
			delete(open, leg.ID)
		}
	}

	result := e.aggregate(trades, variants, variantNames)
	e.logger.Info(ctx, "Backtest finished", map[string]interface{}{
		"runID":  result.RunID,
		"trades": result.TotalTrades,
	})
	return result, nil
}

// snapshot computes the indicator values the exit rules need at this
// bar. Returns nil when the history cannot support them yet; the
// lifecycle then keeps the stop where it is.
func (e *Engine) snapshot(ctx context.Context, bars []domain.Bar) *ports.IndicatorSnapshot {
	ref, err := e.trendRef.Calculate(ctx, bars)
	if err != nil {
		return nil
	}
	atr, err := e.atr.Calculate(ctx, bars)
	if err != nil {
		return nil
	}
	return &ports.IndicatorSnapshot{TrendStopReference: ref, ATR: atr}
}

// settle applies a closed trade to every variant's equity accumulator
// and stamps the per-variant profit onto the trade.
func (e *Engine) settle(trade *domain.ClosedTrade, meta openMeta, variants map[string]*variantState, names []string) {
	trade.Profit = make(map[string]float64, len(names))
	pipSize := meta.inst.PipSize()
	for _, name := range names {
		v := variants[name]
		profit := float64(meta.units[name]) * trade.Pips * pipSize
		trade.Profit[name] = profit

		v.equity += profit
		if v.equity > v.peak {
			v.peak = v.equity
		}
		dd := 0.0
		if v.peak > 0 {
			dd = (v.peak - v.equity) / v.peak
		}
		if dd > v.maxDD {
			v.maxDD = dd
		}
		v.curve = append(v.curve, EquityPoint{
			Time:     trade.ExitTime,
			Index:    trade.ExitIndex,
			Equity:   v.equity,
			Drawdown: dd,
		})
	}
}

func (e *Engine) aggregate(trades []*domain.ClosedTrade, variants map[string]*variantState, names []string) *Result {
	result := &Result{
		RunID:    ids.New(),
		Trades:   trades,
		Variants: make(map[string]*VariantResult, len(names)),
	}

	var sumWin, sumLoss float64
	for _, t := range trades {
		result.TotalTrades++
		result.TotalPips += t.Pips
		if t.Win {
			result.WinningTrades++
			sumWin += t.Pips
		} else {
			result.LosingTrades++
			sumLoss += -t.Pips
		}
	}
	result.GrossProfitPips = sumWin
	result.GrossLossPips = sumLoss
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
		result.AveragePips = result.TotalPips / float64(result.TotalTrades)
	}
	if sumLoss > 0 {
		result.ProfitFactor = sumWin / sumLoss
	}
	var avgWin, avgLoss float64
	if result.WinningTrades > 0 {
		avgWin = sumWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		avgLoss = sumLoss / float64(result.LosingTrades)
	}
	if avgLoss > 0 {
		result.RewardRiskRatio = avgWin / avgLoss
		// Expected pips per trade, expressed in multiples of the average
		// losing trade (risk units).
		result.Expectancy = (result.WinRate*avgWin - (1-result.WinRate)*avgLoss) / avgLoss
	}

	for _, name := range names {
		v := variants[name]
		result.Variants[name] = &VariantResult{
			Fraction:      v.fraction,
			InitialEquity: e.cfg.InitialEquity,
			FinalEquity:   v.equity,
			PeakEquity:    v.peak,
			MaxDrawdown:   v.maxDD,
			EquityCurve:   v.curve,
		}
	}

	// In/out-of-sample by trade index order, never by calendar date.
	split := int(float64(len(trades)) * e.cfg.InSampleFraction)
	result.InSample = sampleStats(trades[:split])
	result.OutOfSample = sampleStats(trades[split:])
	return result
}

func sampleStats(trades []*domain.ClosedTrade) SampleStats {
	var s SampleStats
	for _, t := range trades {
		s.Trades++
		s.TotalPips += t.Pips
		if t.Win {
			s.Wins++
			s.GrossProfitPips += t.Pips
		} else {
			s.GrossLossPips += -t.Pips
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.GrossLossPips > 0 {
		s.ProfitFactor = s.GrossProfitPips / s.GrossLossPips
	}
	return s
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
