package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/climate"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/imagery"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/narrative"
	"greenchain/credit-engine/internal/scoring"
	"greenchain/credit-engine/internal/vegetation"
	"greenchain/credit-engine/internal/weather"
)

// Config holds the engine-level pipeline settings. Component-level settings
// live with their components.
type Config struct {
	// ShortLookbackDays is the trend and consistency window.
	ShortLookbackDays int
	// LongLookbackDays is the deforestation detection window.
	LongLookbackDays int
}

// DefaultConfig returns the production lookback windows.
func DefaultConfig() Config {
	return Config{
		ShortLookbackDays: 180,
		LongLookbackDays:  365,
	}
}

// Deps are the engine's collaborators. Imagery and Weather are required;
// Narrative and Repository are optional.
type Deps struct {
	Imagery    imagery.Source
	Weather    weather.Source
	Narrative  narrative.Generator
	Repository certificate.Repository

	Builder    *vegetation.Builder
	Analyzer   *vegetation.TrendAnalyzer
	Detector   *vegetation.ChangeDetector
	Estimator  *climate.Estimator
	Aggregator *scoring.Aggregator
	Calculator *lending.Calculator
	Minter     *certificate.Minter

	Logger *zap.Logger
	// Now overrides the clock, for deterministic windows in tests.
	Now func() time.Time
}

// Request is one evaluation: a farm boundary plus a loan application.
type Request struct {
	Vertices []geometry.Vertex `json:"vertices"`
	Loan     lending.Request   `json:"loan"`
}

// Result is the completed evaluation. The certificate is the durable
// artifact; the narrative is advisory and response-only.
type Result struct {
	Certificate *certificate.Certificate `json:"certificate"`
	Narrative   narrative.Narrative      `json:"narrative"`
}

// Engine runs the scoring and decision pipeline. It is stateless across
// invocations and safe for concurrent use.
type Engine struct {
	cfg  Config
	deps Deps
}

// New assembles an engine. Missing optional collaborators get safe defaults;
// missing required ones are an error.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Imagery == nil {
		return nil, fmt.Errorf("engine: imagery source is required")
	}
	if deps.Weather == nil {
		return nil, fmt.Errorf("engine: weather source is required")
	}

	def := DefaultConfig()
	if cfg.ShortLookbackDays <= 0 {
		cfg.ShortLookbackDays = def.ShortLookbackDays
	}
	if cfg.LongLookbackDays <= 0 {
		cfg.LongLookbackDays = def.LongLookbackDays
	}
	if cfg.LongLookbackDays <= cfg.ShortLookbackDays {
		return nil, fmt.Errorf("engine: long lookback (%d d) must exceed short lookback (%d d)",
			cfg.LongLookbackDays, cfg.ShortLookbackDays)
	}

	if deps.Builder == nil {
		deps.Builder = vegetation.NewBuilder(vegetation.DefaultBuilderConfig())
	}
	if deps.Analyzer == nil {
		deps.Analyzer = vegetation.NewTrendAnalyzer(vegetation.DefaultTrendConfig())
	}
	if deps.Detector == nil {
		deps.Detector = vegetation.NewChangeDetector(vegetation.DefaultChangeConfig())
	}
	if deps.Estimator == nil {
		deps.Estimator = climate.NewEstimator()
	}
	if deps.Aggregator == nil {
		aggregator, err := scoring.NewAggregator(scoring.DefaultWeights())
		if err != nil {
			return nil, err
		}
		deps.Aggregator = aggregator
	}
	if deps.Calculator == nil {
		calculator, err := lending.NewCalculator(lending.DefaultPolicy())
		if err != nil {
			return nil, err
		}
		deps.Calculator = calculator
	}
	if deps.Minter == nil {
		deps.Minter = certificate.NewMinter()
	}
	if deps.Narrative == nil {
		deps.Narrative = narrative.NewStaticGenerator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{cfg: cfg, deps: deps}, nil
}

// Evaluate runs the full pipeline: validate, fetch, score, aggregate, decide,
// mint. Data fetches for the two windows and the weather anomaly run
// concurrently and fail fast.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	log := e.deps.Logger.With(zap.String("farmer_id", req.Loan.FarmerID))

	polygon, err := geometry.NewFarmPolygon(req.Vertices)
	if err != nil {
		return nil, err
	}
	if err := e.deps.Calculator.ValidateRequest(req.Loan); err != nil {
		return nil, err
	}

	now := e.deps.Now().UTC()
	shortWindow := vegetation.Window{Start: now.AddDate(0, 0, -e.cfg.ShortLookbackDays), End: now}
	longWindow := vegetation.Window{Start: now.AddDate(0, 0, -e.cfg.LongLookbackDays), End: now}

	var (
		shortRaw []vegetation.Observation
		longRaw  []vegetation.Observation
		anomaly  climate.Anomaly
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var fetchErr error
		shortRaw, fetchErr = e.deps.Imagery.FetchObservations(groupCtx, polygon, shortWindow)
		if fetchErr != nil {
			return &vegetation.InsufficientDataError{Required: 1, Window: shortWindow, Cause: fetchErr}
		}
		return nil
	})
	group.Go(func() error {
		var fetchErr error
		longRaw, fetchErr = e.deps.Imagery.FetchObservations(groupCtx, polygon, longWindow)
		if fetchErr != nil {
			return &vegetation.InsufficientDataError{Required: 1, Window: longWindow, Cause: fetchErr}
		}
		return nil
	})
	group.Go(func() error {
		var fetchErr error
		anomaly, fetchErr = e.deps.Weather.FetchAnomaly(groupCtx, polygon, longWindow)
		if fetchErr != nil {
			return fmt.Errorf("weather anomaly: %w", fetchErr)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	shortSeries, err := e.deps.Builder.Build(shortWindow, shortRaw)
	if err != nil {
		return nil, err
	}
	longSeries, err := e.deps.Builder.Build(longWindow, longRaw)
	if err != nil {
		return nil, err
	}

	var (
		trendResult       vegetation.TrendResult
		consistencyResult vegetation.ConsistencyResult
		changeResult      vegetation.ChangeResult
		climateResult     climate.Result
	)

	scoreGroup, _ := errgroup.WithContext(ctx)
	scoreGroup.Go(func() error {
		var scoreErr error
		if trendResult, scoreErr = e.deps.Analyzer.TrendScore(shortSeries); scoreErr != nil {
			return scoreErr
		}
		consistencyResult, scoreErr = e.deps.Analyzer.ConsistencyScore(shortSeries)
		return scoreErr
	})
	scoreGroup.Go(func() error {
		var scoreErr error
		changeResult, scoreErr = e.deps.Detector.Detect(longSeries)
		return scoreErr
	})
	scoreGroup.Go(func() error {
		var scoreErr error
		climateResult, scoreErr = e.deps.Estimator.Score(anomaly)
		return scoreErr
	})
	if err := scoreGroup.Wait(); err != nil {
		return nil, err
	}

	score, err := e.deps.Aggregator.Aggregate([]scoring.Component{
		{Name: scoring.ComponentVegetationTrend, Value: trendResult.Score, Rationale: trendResult.Rationale},
		{Name: scoring.ComponentFarmingConsistency, Value: consistencyResult.Score, Rationale: consistencyResult.Rationale},
		{Name: scoring.ComponentNoDeforestation, Value: changeResult.Score, Rationale: changeResult.Rationale},
		{Name: scoring.ComponentClimateResilience, Value: climateResult.Score, Rationale: climateResult.Rationale},
	})
	if err != nil {
		return nil, err
	}

	decision, err := e.deps.Calculator.Decide(score, changeResult.Flagged, req.Loan)
	if err != nil {
		return nil, err
	}

	cert, err := e.deps.Minter.Mint(req.Loan.FarmerID, polygon, score, decision, now)
	if err != nil {
		return nil, err
	}

	if e.deps.Repository != nil {
		if err := e.deps.Repository.Save(ctx, cert); err != nil {
			return nil, fmt.Errorf("persist certificate: %w", err)
		}
	}

	log.Info("evaluation complete",
		zap.Float64("overall", score.Overall),
		zap.String("tier", string(decision.Tier)),
		zap.Bool("approved", decision.Approved),
		zap.Bool("deforestation", changeResult.Flagged),
		zap.String("fingerprint", cert.Fingerprint),
	)

	return &Result{
		Certificate: cert,
		Narrative:   e.narrate(ctx, log, score, decision),
	}, nil
}

// narrate asks the configured generator for an explanation and downgrades to
// the static text on failure. Narrative problems never fail an evaluation.
func (e *Engine) narrate(ctx context.Context, log *zap.Logger, score *scoring.SustainabilityScore, decision *lending.Decision) narrative.Narrative {
	n, err := e.deps.Narrative.Generate(ctx, score, decision)
	if err == nil {
		return n
	}

	log.Warn("narrative generation failed, using fallback", zap.Error(err))
	fallback, _ := narrative.NewStaticGenerator().Generate(ctx, score, decision)
	return fallback
}
