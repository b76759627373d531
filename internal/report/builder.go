package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"idvet/internal/job"
)

// Artifacts holds both renderings of one report.
type Artifacts struct {
	JSON []byte
	PDF  []byte
}

// Build renders the job into its JSON and PDF artifacts. Pure with respect to
// storage; the caller persists the result.
func Build(j job.Job) (Artifacts, error) {
	doc := NewDocument(j)

	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode report json: %w", err)
	}

	pdfBytes, err := renderPDF(doc)
	if err != nil {
		return Artifacts{}, fmt.Errorf("render report pdf: %w", err)
	}

	return Artifacts{JSON: jsonBytes, PDF: pdfBytes}, nil
}

func renderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "KYC Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(50, 10, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(130, 10, value, "1", 1, "L", false, 0, "")
	}
	heading := func(title string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	}
	paragraph := func(text string) {
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 10, text, "1", "L", false)
	}

	row("Report ID", doc.ReportID)
	row("Created At", doc.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	row("Full Name", doc.Identity.FullName)
	row("Date of Birth", doc.Identity.DateOfBirth)
	row("Nationality", doc.Identity.Nationality)
	row("Document Type", doc.Identity.DocumentType)
	row("Document Number", doc.Identity.DocumentNumber)
	row("Risk Level", strings.ToUpper(string(doc.RiskLevel)))
	pdf.Ln(5)

	heading("Compliance Matches")
	if len(doc.Compliance) == 0 {
		paragraph("No watchlist matches found.")
	}
	for _, m := range doc.Compliance {
		row("Source", m.Source)
		row("Score", fmt.Sprintf("%.2f", m.Score))
		row("Matched Name", m.MatchedName)
		if len(m.MatchedDatesOfBirth) > 0 {
			row("Dates of Birth", strings.Join(m.MatchedDatesOfBirth, ", "))
		}
		if len(m.MatchedNationalities) > 0 {
			row("Nationalities", strings.Join(m.MatchedNationalities, ", "))
		}
		if len(m.Lists) > 0 {
			row("Lists", strings.Join(m.Lists, ", "))
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)

	heading("Adverse Media")
	if len(doc.AdverseMedia) == 0 {
		paragraph("No adverse media findings.")
	}
	for _, m := range doc.AdverseMedia {
		if headline, ok := m.Details["headline"].(string); ok {
			row("Headline", headline)
		}
		row("Category", m.RiskCategory)
		if level, ok := m.Details["risk_level"].(string); ok {
			row("Risk Level", level)
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)

	heading("Risk Assessment")
	paragraph(doc.RiskSummary)
	pdf.Ln(5)

	heading("Recommendations")
	paragraph(doc.Recommendations)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
