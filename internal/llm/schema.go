package llm

// BuildFieldJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass it to the model as a structured output hint and also use it locally to validate.
func BuildFieldJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"value": map[string]any{"type": "string", "maxLength": 300},
			"found": map[string]any{"type": "boolean"},
		},
		"required": []string{"value", "found"},
	}
}
