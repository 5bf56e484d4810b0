package lending

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"greenchain/credit-engine/internal/scoring"
)

// Tier is the risk tier assigned from the sustainability score.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierMedium   Tier = "MEDIUM"
	TierHigh     Tier = "HIGH"
	TierRejected Tier = "REJECTED"
)

// InvalidLoanRequestError is returned when a loan request fails validation
// before any decision is made.
type InvalidLoanRequestError struct {
	Reason string
}

func (e *InvalidLoanRequestError) Error() string {
	return fmt.Sprintf("invalid loan request: %s", e.Reason)
}

// Request is a farmer's loan application.
type Request struct {
	FarmerID string  `json:"farmer_id"`
	Amount   float64 `json:"amount"`
	Purpose  string  `json:"purpose"`
}

// Decision is the immutable outcome of the loan risk calculation.
type Decision struct {
	Approved        bool     `json:"approved"`
	Tier            Tier     `json:"tier"`
	RequestedAmount float64  `json:"requested_amount"`
	ApprovedAmount  float64  `json:"approved_amount"`
	InterestRate    float64  `json:"interest_rate"` // annual fraction, e.g. 0.08
	DecisionFactors []string `json:"decision_factors"`
}

// Policy holds every number the decision depends on. The hard veto and the
// monotonic tier ordering are structural and not configurable.
type Policy struct {
	LowMin    float64 `json:"low_min"`
	MediumMin float64 `json:"medium_min"`
	HighMin   float64 `json:"high_min"`

	LowMultiplier    float64 `json:"low_multiplier"`
	MediumMultiplier float64 `json:"medium_multiplier"`
	HighMultiplier   float64 `json:"high_multiplier"`

	BaseRate      float64 `json:"base_rate"`
	LowPremium    float64 `json:"low_premium"`
	MediumPremium float64 `json:"medium_premium"`
	HighPremium   float64 `json:"high_premium"`

	AmountCeiling float64 `json:"amount_ceiling"`

	KnownPurposes []string `json:"known_purposes"`
}

// DefaultPolicy returns the production lending policy.
func DefaultPolicy() Policy {
	return Policy{
		LowMin:           80,
		MediumMin:        60,
		HighMin:          40,
		LowMultiplier:    1.0,
		MediumMultiplier: 0.75,
		HighMultiplier:   0.5,
		BaseRate:         0.06,
		LowPremium:       0.02,
		MediumPremium:    0.05,
		HighPremium:      0.09,
		AmountCeiling:    50000,
		KnownPurposes: []string{
			"seeds",
			"fertilizer",
			"equipment",
			"irrigation",
			"livestock",
			"working_capital",
		},
	}
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	if !(p.LowMin > p.MediumMin && p.MediumMin > p.HighMin && p.HighMin > 0) {
		return fmt.Errorf("tier breakpoints must be strictly decreasing and positive")
	}
	if !(p.LowMultiplier >= p.MediumMultiplier && p.MediumMultiplier >= p.HighMultiplier && p.HighMultiplier > 0) {
		return fmt.Errorf("tier multipliers must not increase with risk")
	}
	if p.BaseRate < 0 || p.LowPremium < 0 || p.MediumPremium < 0 || p.HighPremium < 0 {
		return fmt.Errorf("rates must be non-negative")
	}
	if !(p.LowPremium <= p.MediumPremium && p.MediumPremium <= p.HighPremium) {
		return fmt.Errorf("risk premiums must not decrease with risk")
	}
	if p.AmountCeiling <= 0 {
		return fmt.Errorf("amount ceiling must be positive")
	}
	if len(p.KnownPurposes) == 0 {
		return fmt.Errorf("at least one known purpose required")
	}
	return nil
}

// Calculator turns a sustainability score and a loan request into a decision.
// It is deterministic: identical inputs always yield an identical decision.
type Calculator struct {
	policy Policy
	// purposes is the known purpose set, sorted once for binary search.
	purposes []string
}

// NewCalculator creates a calculator with a validated policy.
func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("lending policy: %w", err)
	}
	purposes := make([]string, len(policy.KnownPurposes))
	copy(purposes, policy.KnownPurposes)
	sort.Strings(purposes)
	return &Calculator{policy: policy, purposes: purposes}, nil
}

// ValidateRequest checks the request before any data is fetched.
func (c *Calculator) ValidateRequest(req Request) error {
	if strings.TrimSpace(req.FarmerID) == "" {
		return &InvalidLoanRequestError{Reason: "farmer id is required"}
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) {
		return &InvalidLoanRequestError{Reason: fmt.Sprintf("amount must be positive, got %.2f", req.Amount)}
	}
	purpose := strings.ToLower(strings.TrimSpace(req.Purpose))
	i := sort.SearchStrings(c.purposes, purpose)
	if i >= len(c.purposes) || c.purposes[i] != purpose {
		return &InvalidLoanRequestError{Reason: fmt.Sprintf("unknown purpose %q", req.Purpose)}
	}
	return nil
}

// Decide computes the loan decision. A deforestation flag vetoes approval
// regardless of the overall score.
func (c *Calculator) Decide(score *scoring.SustainabilityScore, deforestation bool, req Request) (*Decision, error) {
	if err := c.ValidateRequest(req); err != nil {
		return nil, err
	}
	if score == nil {
		return nil, fmt.Errorf("decide: nil sustainability score")
	}

	if deforestation {
		return &Decision{
			Approved:        false,
			Tier:            TierRejected,
			RequestedAmount: req.Amount,
			DecisionFactors: []string{
				"deforestation detected on the plot, loan automatically rejected",
				fmt.Sprintf("sustainability score %.2f", score.Overall),
			},
		}, nil
	}

	tier := c.tierFor(score.Overall)
	factors := []string{
		fmt.Sprintf("sustainability score %.2f, risk tier %s", score.Overall, tier),
	}
	factors = append(factors, score.RiskFactors...)

	if tier == TierRejected {
		factors = append(factors, fmt.Sprintf("score below approval threshold %.0f", c.policy.HighMin))
		return &Decision{
			Approved:        false,
			Tier:            TierRejected,
			RequestedAmount: req.Amount,
			DecisionFactors: factors,
		}, nil
	}

	multiplier, premium := c.termsFor(tier)
	approved := math.Min(req.Amount*multiplier, c.policy.AmountCeiling)
	if approved < req.Amount {
		factors = append(factors, fmt.Sprintf("amount reduced from %.2f to %.2f", req.Amount, approved))
	}

	return &Decision{
		Approved:        true,
		Tier:            tier,
		RequestedAmount: req.Amount,
		ApprovedAmount:  round2(approved),
		InterestRate:    c.policy.BaseRate + premium,
		DecisionFactors: factors,
	}, nil
}

func (c *Calculator) tierFor(overall float64) Tier {
	switch {
	case overall >= c.policy.LowMin:
		return TierLow
	case overall >= c.policy.MediumMin:
		return TierMedium
	case overall >= c.policy.HighMin:
		return TierHigh
	default:
		return TierRejected
	}
}

func (c *Calculator) termsFor(tier Tier) (multiplier, premium float64) {
	switch tier {
	case TierLow:
		return c.policy.LowMultiplier, c.policy.LowPremium
	case TierMedium:
		return c.policy.MediumMultiplier, c.policy.MediumPremium
	default:
		return c.policy.HighMultiplier, c.policy.HighPremium
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
