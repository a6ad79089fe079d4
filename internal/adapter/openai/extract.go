package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/goldwatch/internal/entity"
)

const extractionSystemPrompt = "You extract financial values with absolute precision."

// ExtractFields asks the extraction model for a JSON object shaped like schema.
// The raw content is returned; decoding and shape checks belong to the caller.
func (c *Client) ExtractFields(ctx context.Context, corpus string, schema *entity.Schema) ([]byte, error) {
	temperature := 0.0
	content, err := c.complete(ctx, chatRequest{
		Model: c.extractionModel,
		Messages: []chatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: BuildExtractionPrompt(schema) + "\n\nOCR TEXT:\n\n" + corpus},
		},
		Temperature:    &temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	return []byte(content), nil
}

// BuildExtractionPrompt renders the instruction with an empty JSON template
// listing the schema fields in declared order.
func BuildExtractionPrompt(schema *entity.Schema) string {
	var b strings.Builder
	b.WriteString("Extract all numeric gold price values from this OCR dump.\n\n")
	b.WriteString("Return ONLY valid JSON:\n\n{\n")
	for i, name := range schema.Names() {
		key, _ := json.Marshal(name)
		b.WriteString("  ")
		b.Write(key)
		b.WriteString(`: ""`)
		if i < schema.Len()-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	b.WriteString("If a value is missing, put an empty string.")
	return b.String()
}
