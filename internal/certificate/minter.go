package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/scoring"
)

// serializationVersion is the canonical format header. Bump it whenever the
// serialized field set changes, or old fingerprints would verify against new
// payloads.
const serializationVersion = "greenchain-certificate/v2"

// Certificate is the tamper-evident record of one completed evaluation. It
// snapshots the polygon, score and decision so later verification does not
// depend on any other store.
type Certificate struct {
	ID          uuid.UUID                   `json:"id"`
	FarmerID    string                      `json:"farmer_id"`
	Polygon     geometry.FarmPolygon        `json:"polygon"`
	Score       scoring.SustainabilityScore `json:"score"`
	Decision    lending.Decision            `json:"decision"`
	IssuedAt    time.Time                   `json:"issued_at"`
	Fingerprint string                      `json:"fingerprint"`
}

// Minter issues certificates. Minting is local computation only, no network.
type Minter struct{}

// NewMinter returns a certificate minter.
func NewMinter() *Minter {
	return &Minter{}
}

// Mint issues a certificate for a completed evaluation. The fingerprint is
// deterministic for fixed inputs and issuance time; the random ID is not part
// of the fingerprinted payload.
func (m *Minter) Mint(farmerID string, polygon *geometry.FarmPolygon, score *scoring.SustainabilityScore, decision *lending.Decision, issuedAt time.Time) (*Certificate, error) {
	if polygon == nil || score == nil || decision == nil {
		return nil, fmt.Errorf("mint: polygon, score and decision are required")
	}

	cert := &Certificate{
		ID:       uuid.New(),
		FarmerID: farmerID,
		Polygon:  *polygon,
		Score:    *score,
		Decision: *decision,
		IssuedAt: issuedAt.UTC(),
	}
	cert.Fingerprint = Fingerprint(cert)
	return cert, nil
}

// Verify recomputes the fingerprint from the certificate contents and checks
// it against the stored one.
func (c *Certificate) Verify() bool {
	return Fingerprint(c) == c.Fingerprint
}

// Fingerprint hashes the canonical serialization with SHA-256 and returns the
// 0x-prefixed hex digest.
func Fingerprint(c *Certificate) string {
	sum := sha256.Sum256(CanonicalSerialization(c))
	return "0x" + hex.EncodeToString(sum[:])
}

// CanonicalSerialization renders the certificate as explicit ordered
// key=value lines with fixed numeric formatting. The encoding is intentionally
// hand-rolled: generic JSON marshaling does not guarantee the stable field
// order and float formatting a reproducible hash needs.
func CanonicalSerialization(c *Certificate) []byte {
	var b strings.Builder
	b.WriteString(serializationVersion)
	b.WriteByte('\n')

	writeLine := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}

	writeLine("farmer_id", c.FarmerID)
	writeLine("issued_at", c.IssuedAt.UTC().Format(time.RFC3339))

	vertices := make([]string, len(c.Polygon.Vertices))
	for i, v := range c.Polygon.Vertices {
		vertices[i] = fmt.Sprintf("%.6f,%.6f", v.Lat, v.Lon)
	}
	writeLine("polygon", strings.Join(vertices, ";"))

	writeLine("score.overall", fmt.Sprintf("%.2f", c.Score.Overall))
	writeLine("score.grade", c.Score.Grade)
	for _, comp := range c.Score.Components {
		writeLine("component."+comp.Name, fmt.Sprintf("%.2f*%.4f", comp.Value, comp.Weight))
		writeLine("component."+comp.Name+".rationale", comp.Rationale)
	}
	for i, factor := range c.Score.RiskFactors {
		writeLine(fmt.Sprintf("score.risk_factor.%d", i), factor)
	}
	for i, factor := range c.Score.PositiveFactors {
		writeLine(fmt.Sprintf("score.positive_factor.%d", i), factor)
	}

	writeLine("decision.approved", fmt.Sprintf("%t", c.Decision.Approved))
	writeLine("decision.tier", string(c.Decision.Tier))
	writeLine("decision.requested_amount", fmt.Sprintf("%.2f", c.Decision.RequestedAmount))
	writeLine("decision.approved_amount", fmt.Sprintf("%.2f", c.Decision.ApprovedAmount))
	writeLine("decision.interest_rate", fmt.Sprintf("%.4f", c.Decision.InterestRate))
	for i, factor := range c.Decision.DecisionFactors {
		writeLine(fmt.Sprintf("decision.factor.%d", i), factor)
	}

	return []byte(b.String())
}
