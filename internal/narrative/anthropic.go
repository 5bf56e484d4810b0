package narrative

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/scoring"
)

const systemPrompt = `You explain agricultural sustainability assessments to loan officers and farmers.
Write 3-4 plain sentences: what the score means, what drove it, and what the loan decision is.
Do not invent numbers beyond those provided. Do not give financial advice beyond the stated decision.`

// AnthropicConfig configures the LLM narrative generator.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// AnthropicGenerator produces narratives through the Anthropic Messages API.
// Failures surface as errors so the caller can downgrade to the static
// fallback; the generator never blocks an evaluation on its own.
type AnthropicGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator creates the generator. The API key is required.
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic generator: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &AnthropicGenerator{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Generate asks the model for a narrative built from the score breakdown and
// the decision.
func (g *AnthropicGenerator) Generate(ctx context.Context, score *scoring.SustainabilityScore, decision *lending.Decision) (Narrative, error) {
	message, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(score, decision))),
		},
	})
	if err != nil {
		return Narrative{}, fmt.Errorf("generate narrative: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Narrative{}, fmt.Errorf("generate narrative: empty model response")
	}

	return Narrative{Text: strings.TrimSpace(text.String()), Model: g.model}, nil
}

func buildPrompt(score *scoring.SustainabilityScore, decision *lending.Decision) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall sustainability score: %.1f/100 (grade %s)\n\nComponents:\n", score.Overall, score.Grade)
	for _, c := range score.Components {
		fmt.Fprintf(&b, "- %s: %.1f (weight %.0f%%)", strings.ReplaceAll(c.Name, "_", " "), c.Value, c.Weight*100)
		if c.Rationale != "" {
			fmt.Fprintf(&b, " -- %s", c.Rationale)
		}
		b.WriteString("\n")
	}

	if len(score.RiskFactors) > 0 {
		fmt.Fprintf(&b, "\nRisk factors: %s\n", strings.Join(score.RiskFactors, "; "))
	}
	if len(score.PositiveFactors) > 0 {
		fmt.Fprintf(&b, "Positive factors: %s\n", strings.Join(score.PositiveFactors, "; "))
	}

	if decision.Approved {
		fmt.Fprintf(&b, "\nLoan decision: approved, tier %s, amount %.2f, annual rate %.1f%%\n",
			decision.Tier, decision.ApprovedAmount, decision.InterestRate*100)
	} else {
		fmt.Fprintf(&b, "\nLoan decision: rejected (tier %s)\n", decision.Tier)
	}
	for _, factor := range decision.DecisionFactors {
		fmt.Fprintf(&b, "- %s\n", factor)
	}

	return b.String()
}
