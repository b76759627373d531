package reasoning

import (
	"encoding/json"
	"strings"

	"idvet/internal/job"
)

// BuildSystemPrompt composes the analysis instructions. The model must answer
// in labeled sections so the response can be parsed deterministically.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a KYC/AML compliance analyst. Analyze the provided screening findings and determine:",
		"1. Quality of identity verification.",
		"2. Quality of the screening matches, judging each as confirmed, probable, possible, a false positive, or needing further investigation.",
		"3. Overall risk level (LOW/MEDIUM/HIGH/CRITICAL).",
		"4. Detailed risk justification.",
		"5. Specific recommendations.",
		"Treat screening sources that errored as missing evidence and weigh the assessment accordingly.",
		"Format the response as:",
		"RISK_LEVEL: [level]",
		"SUMMARY: [Detailed analysis of key findings]",
		"RECOMMENDATIONS: [Specific action items]",
	}
	return strings.Join(parts, "\n")
}

// BuildUserPrompt packages the extracted identity and every provider outcome,
// including failures, so the model knows which evidence is absent rather than
// clean.
func BuildUserPrompt(identity job.Identity, outcomes map[string]job.Outcome) string {
	var b strings.Builder
	b.WriteString("Please analyze the following KYC findings:\n\n")
	b.WriteString("Subject Information:\n")
	b.WriteString("- Name: " + identity.FullName + "\n")
	b.WriteString("- Date of Birth: " + identity.DateOfBirth + "\n")
	if identity.Nationality != "" {
		b.WriteString("- Nationality: " + identity.Nationality + "\n")
	}
	if identity.DocumentType != "" {
		b.WriteString("- Document Type: " + identity.DocumentType + "\n")
	}

	b.WriteString("\nScreening Results:\n")
	b.WriteString(mustJSON(outcomes))

	b.WriteString("\n\nProvide the overall risk level, a detailed analysis of key findings, and specific recommendations for further action.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
