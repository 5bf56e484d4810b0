package narrative

import (
	"context"
	"fmt"
	"strings"

	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/scoring"
)

// Narrative is an advisory plain-language explanation of a completed
// evaluation. It never feeds back into the decision.
type Narrative struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
	Model    string `json:"model,omitempty"`
}

// Generator produces the narrative for a score and decision.
type Generator interface {
	Generate(ctx context.Context, score *scoring.SustainabilityScore, decision *lending.Decision) (Narrative, error)
}

// StaticGenerator renders a deterministic template narrative. It backs the
// LLM generator as a fallback and serves deployments without an API key.
type StaticGenerator struct{}

// NewStaticGenerator returns the template-based generator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// Generate renders the template. It never fails.
func (g *StaticGenerator) Generate(_ context.Context, score *scoring.SustainabilityScore, decision *lending.Decision) (Narrative, error) {
	return Narrative{Text: staticText(score, decision), Fallback: true}, nil
}

func staticText(score *scoring.SustainabilityScore, decision *lending.Decision) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The plot scored %.1f out of 100 (grade %s) on sustainability. ", score.Overall, score.Grade)

	if len(score.PositiveFactors) > 0 {
		fmt.Fprintf(&b, "Strengths: %s. ", strings.Join(score.PositiveFactors, "; "))
	}
	if len(score.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Concerns: %s. ", strings.Join(score.RiskFactors, "; "))
	}

	if decision.Approved {
		fmt.Fprintf(&b, "The loan was approved at risk tier %s for %.2f at an annual rate of %.1f%%.",
			decision.Tier, decision.ApprovedAmount, decision.InterestRate*100)
	} else {
		b.WriteString("The loan was not approved")
		if len(decision.DecisionFactors) > 0 {
			fmt.Fprintf(&b, ": %s", decision.DecisionFactors[0])
		}
		b.WriteString(".")
	}

	return b.String()
}
