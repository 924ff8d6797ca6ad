package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
)

const defaultModel = "gemini-2.0-flash"

const reviewPrompt = `You are a helpful AI code reviewer.

Your job is to analyze the given source code and return specific suggestions for improvement, bugs, or syntax errors. Respond strictly in this JSON format:

[
  {
    "line": <line_number_starting_from_0>,
    "text": "<suggestion_text>",
    "type": "<one_of: 'error' | 'warning' | 'info'>"
  },
  ...
]

Be concise and relevant. Only include suggestions that are helpful to the programmer. Do not include explanations or any other text outside the JSON array.

Here is the code to analyze:

`

// Client asks Gemini for line-level review suggestions on session code.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: defaultModel}, nil
}

func (c *Client) Review(ctx context.Context, code string) ([]models.Suggestion, error) {
	prompt := reviewPrompt + "```\n" + code + "\n```"
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("gemini returned no response")
	}
	text, err := result.Text()
	if err != nil {
		return nil, fmt.Errorf("gemini response text: %w", err)
	}
	return parseSuggestions(text)
}

// parseSuggestions decodes the model output, tolerating markdown code
// fences around the JSON array.
func parseSuggestions(text string) ([]models.Suggestion, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var suggestions []models.Suggestion
	if err := json.Unmarshal([]byte(trimmed), &suggestions); err != nil {
		return nil, fmt.Errorf("decode gemini suggestions: %w", err)
	}
	return suggestions, nil
}
