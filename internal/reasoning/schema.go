package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// VerdictSchema is the JSON-Schema (draft 2020-12 subset) every parsed
// verdict must satisfy before it is persisted on a job.
func VerdictSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"risk_tier": map[string]any{
				"type": "string",
				"enum": []string{"low", "medium", "high", "critical"},
			},
			"summary":         map[string]any{"type": "string", "minLength": 1},
			"recommendations": map[string]any{"type": "string", "minLength": 1},
			"cited_matches": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"risk_tier", "summary", "recommendations"},
	}
}

// ValidateVerdict marshals the verdict and checks it against VerdictSchema.
func ValidateVerdict(v any) error {
	schemaBytes, err := json.Marshal(VerdictSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("verdict.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal verdict: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return newInvalidResponse(fmt.Sprintf("verdict does not match schema: %v", err))
	}
	return nil
}
