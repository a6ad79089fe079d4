package openai

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RecognizeText sends the image as a base64 data URL next to the instruction.
func (c *Client) RecognizeText(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	text, err := c.complete(ctx, chatRequest{
		Model: c.visionModel,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: instruction},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens: c.visionMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	return text, nil
}
