package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions control the rendered certificate document.
type PDFOptions struct {
	Title        string
	Organization string
}

// DefaultPDFOptions returns the standard certificate document settings.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Title:        "Sustainability Credit Certificate",
		Organization: "GreenChain Credit Engine",
	}
}

// PDFRenderer renders a certificate into a printable document with the
// verification fingerprint at the bottom.
type PDFRenderer struct {
	opts PDFOptions
}

// NewPDFRenderer creates a renderer with the given options.
func NewPDFRenderer(opts PDFOptions) *PDFRenderer {
	def := DefaultPDFOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.Organization == "" {
		opts.Organization = def.Organization
	}
	return &PDFRenderer{opts: opts}
}

// Render produces the PDF bytes for one certificate. The narrative is
// optional and printed verbatim when present.
func (r *PDFRenderer) Render(cert *Certificate, narrative string) ([]byte, error) {
	if cert == nil {
		return nil, fmt.Errorf("render: nil certificate")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Border frame.
	w, h := pdf.GetPageSize()
	pdf.SetLineWidth(0.8)
	pdf.Rect(10, 10, w-20, h-20, "D")
	pdf.SetLineWidth(0.2)
	pdf.Rect(12, 12, w-24, h-24, "D")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 14, r.opts.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, r.opts.Organization, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	centroid := cert.Polygon.Centroid()
	r.row(pdf, "Certificate ID", cert.ID.String())
	r.row(pdf, "Farmer", cert.FarmerID)
	r.row(pdf, "Issued", cert.IssuedAt.UTC().Format("02 Jan 2006 15:04 MST"))
	r.row(pdf, "Location", fmt.Sprintf("%.4f N, %.4f E", centroid.Lat, centroid.Lon))
	r.row(pdf, "Plot area", fmt.Sprintf("%.1f ha", cert.Polygon.AreaHectares()))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Sustainability Score: %.1f / 100 (Grade %s)", cert.Score.Overall, cert.Score.Grade), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, comp := range cert.Score.Components {
		label := strings.ReplaceAll(comp.Name, "_", " ")
		pdf.CellFormat(0, 6, fmt.Sprintf("  %s: %.1f (weight %.0f%%)", label, comp.Value, comp.Weight*100), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	status := "REJECTED"
	if cert.Decision.Approved {
		status = "APPROVED"
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Loan Decision: %s (tier %s)", status, cert.Decision.Tier), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if cert.Decision.Approved {
		r.row(pdf, "Approved amount", fmt.Sprintf("%.2f", cert.Decision.ApprovedAmount))
		r.row(pdf, "Interest rate", fmt.Sprintf("%.2f%% p.a.", cert.Decision.InterestRate*100))
	}
	for _, factor := range cert.Decision.DecisionFactors {
		pdf.MultiCell(0, 5, "  - "+factor, "", "L", false)
	}

	if narrative != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 5, narrative, "", "L", false)
	}

	pdf.SetY(-40)
	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 4, "Verification fingerprint:\n"+cert.Fingerprint, "", "C", false)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Verify at any time by recomputing the SHA-256 digest. Generated %s.", time.Now().UTC().Format("2006-01-02")), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
