package repository

import (
	"context"

	"github.com/user/goldwatch/internal/entity"
)

// TextRecognizer recovers visible text from an image.
type TextRecognizer interface {
	// RecognizeText sends image bytes, their MIME type and an instruction
	// to a vision-capable model and returns the raw text reply.
	RecognizeText(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

// FieldExtractor asks a language model for one JSON object covering the schema.
type FieldExtractor interface {
	// ExtractFields returns the raw JSON object produced for corpus.
	ExtractFields(ctx context.Context, corpus string, schema *entity.Schema) ([]byte, error)
}
