package climate

import (
	"fmt"
	"math"
)

// Anomaly is a bounded climate stress metric for a plot over a window.
// 0 means no unusual stress, 1 means extreme stress. Sources may fill the
// component risks or just the composite value.
type Anomaly struct {
	Value           float64 `json:"value"`
	RainfallRisk    float64 `json:"rainfall_risk"`
	TemperatureRisk float64 `json:"temperature_risk"`
	FrostRisk       float64 `json:"frost_risk"`
	DroughtRisk     float64 `json:"drought_risk"`
}

// Result is the climate resilience score for one anomaly reading.
type Result struct {
	Score     float64
	Anomaly   float64
	Rationale string
}

// Estimator maps a climate anomaly metric onto a 0..100 resilience score.
// It does not fetch weather data; that belongs to the weather sources.
type Estimator struct{}

// NewEstimator returns a climate resilience estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Score converts the anomaly into a resilience score. Higher anomaly means
// lower resilience; the mapping is linear and bounded.
func (e *Estimator) Score(a Anomaly) (Result, error) {
	if math.IsNaN(a.Value) || a.Value < 0 || a.Value > 1 {
		return Result{}, fmt.Errorf("climate anomaly %.4f outside [0, 1]", a.Value)
	}

	score := math.Round(100 * (1 - a.Value))
	rationale := "low climate stress over the window"
	switch {
	case a.Value >= 0.7:
		rationale = "severe climate stress over the window"
	case a.Value >= 0.4:
		rationale = "moderate climate stress over the window"
	}
	return Result{Score: score, Anomaly: a.Value, Rationale: rationale}, nil
}

// RiskInputs are the daily aggregates a weather source feeds into the
// composite risk model.
type RiskInputs struct {
	TotalRainfallMM  float64
	MeanTemperatureC float64
	FrostDays        int
	TotalDays        int
	// WaterBalanceMM is precipitation minus reference evapotranspiration
	// over the window. Negative values indicate drought pressure.
	WaterBalanceMM float64
}

// CompositeRisk combines rainfall adequacy, temperature band, frost exposure
// and drought water balance into one anomaly. Component weights follow the
// agronomic model: drought dominates, rainfall next, temperature and frost
// share the rest.
func CompositeRisk(in RiskInputs) Anomaly {
	a := Anomaly{
		RainfallRisk:    rainfallRisk(in.TotalRainfallMM, in.TotalDays),
		TemperatureRisk: temperatureRisk(in.MeanTemperatureC),
		FrostRisk:       frostRisk(in.FrostDays, in.TotalDays),
		DroughtRisk:     droughtRisk(in.WaterBalanceMM, in.TotalDays),
	}
	a.Value = clamp01(0.25*a.RainfallRisk + 0.20*a.TemperatureRisk + 0.20*a.FrostRisk + 0.35*a.DroughtRisk)
	return a
}

// rainfallRisk scores rainfall adequacy against a nominal 2.5 mm/day crop
// requirement. Both scarcity and extreme excess raise risk.
func rainfallRisk(totalMM float64, days int) float64 {
	if days <= 0 {
		return 0.5
	}
	perDay := totalMM / float64(days)
	switch {
	case perDay < 0.5:
		return 1.0
	case perDay < 1.5:
		return 0.7
	case perDay < 2.5:
		return 0.3
	case perDay <= 8.0:
		return 0.1
	case perDay <= 15.0:
		return 0.5
	default:
		return 0.9
	}
}

// temperatureRisk scores distance from the 18..30 C growing band.
func temperatureRisk(meanC float64) float64 {
	switch {
	case meanC >= 18 && meanC <= 30:
		return 0.1
	case meanC >= 12 && meanC < 18, meanC > 30 && meanC <= 35:
		return 0.4
	case meanC >= 5 && meanC < 12, meanC > 35 && meanC <= 40:
		return 0.7
	default:
		return 1.0
	}
}

func frostRisk(frostDays, totalDays int) float64 {
	if totalDays <= 0 {
		return 0.5
	}
	ratio := float64(frostDays) / float64(totalDays)
	return clamp01(ratio * 5)
}

// droughtRisk maps the cumulative water balance to risk. A deficit of 2 mm
// per day over the window saturates the risk.
func droughtRisk(balanceMM float64, days int) float64 {
	if days <= 0 {
		return 0.5
	}
	if balanceMM >= 0 {
		return 0.1
	}
	deficitPerDay := -balanceMM / float64(days)
	return clamp01(0.1 + deficitPerDay/2*0.9)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
