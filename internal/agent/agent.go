// Package agent implements the three prompt-template calls made against the
// inference service: profile extraction, scoring, and question generation.
// Every agent follows the same shape: build a prompt from an embedded
// template, make exactly one Generate call, then strictly parse and validate
// the response. Responses that do not conform to the expected schema are
// reported as invalid_response failures; nothing here guesses a shape.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chaditya95/agentic-resume-picker/internal/inference"

	"github.com/mitchellh/mapstructure"
)

// fill substitutes named placeholders of the form {{NAME}} in a template.
func fill(template string, replacements map[string]string) string {
	prompt := template
	for key, value := range replacements {
		prompt = strings.ReplaceAll(prompt, "{{"+key+"}}", value)
	}
	return prompt
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON object or array found in the raw model output.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	startObj := strings.Index(raw, "{")
	endObj := strings.LastIndex(raw, "}")
	startArr := strings.Index(raw, "[")
	endArr := strings.LastIndex(raw, "]")

	switch {
	case startArr != -1 && endArr > startArr && (startObj == -1 || startArr < startObj):
		return raw[startArr : endArr+1]
	case startObj != -1 && endObj > startObj:
		return raw[startObj : endObj+1]
	default:
		return raw
	}
}

// decodeObject parses raw model output as a JSON object and decodes it into
// target using json tag names. Model output is loosely typed, so the decode
// runs weakly: numeric strings fill float fields, scalars fill slices of one.
func decodeObject(raw string, target any) error {
	var loose map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &loose); err != nil {
		return inference.NewError(inference.KindInvalidResponse, "response is not a JSON object", err)
	}

	if err := decodeLoose(loose, target); err != nil {
		return inference.NewError(inference.KindInvalidResponse, "response does not match expected schema", err)
	}

	return nil
}

// decodeArray parses raw model output as a JSON array and decodes it into
// target (a pointer to a slice).
func decodeArray(raw string, target any) error {
	var loose []any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &loose); err != nil {
		return inference.NewError(inference.KindInvalidResponse, "response is not a JSON array", err)
	}

	if err := decodeLoose(loose, target); err != nil {
		return inference.NewError(inference.KindInvalidResponse, "response does not match expected schema", err)
	}

	return nil
}

func decodeLoose(input, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// invalid builds a schema-violation failure with a formatted detail message.
func invalid(format string, args ...any) error {
	return inference.NewError(inference.KindInvalidResponse, fmt.Sprintf(format, args...), nil)
}
