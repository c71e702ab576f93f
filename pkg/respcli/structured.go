package respcli

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const FormatJSONSchema = "json_schema"

// Step is a single step in a mathematical reasoning process.
type Step struct {
	Explanation string `json:"explanation"`
	Output      string `json:"output"`
}

// MathReasoning is a complete worked solution.
type MathReasoning struct {
	Steps       []Step `json:"steps"`
	FinalAnswer string `json:"final_answer"`
}

// JSONSchemaFormat builds a strict structured output format whose schema is
// derived from v's type.
func JSONSchemaFormat(name string, v any) (*TextFormat, error) {
	schema, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return nil, errors.Wrap(err, "generating schema")
	}
	return &TextFormat{
		Type:   FormatJSONSchema,
		Name:   name,
		Schema: schema,
		Strict: true,
	}, nil
}

// ParseOutput decodes the response's text into v. If format carries a
// generated schema the text is checked against it first.
func ParseOutput(resp *Response, format *TextFormat, v any) error {
	text := resp.OutputText()
	if text == "" {
		return errors.New("response has no output text")
	}
	if format != nil {
		if def, ok := format.Schema.(*jsonschema.Definition); ok {
			return errors.Wrap(def.Unmarshal(text, v), "parsing structured output")
		}
	}
	return errors.Wrap(json.Unmarshal([]byte(text), v), "parsing output")
}
