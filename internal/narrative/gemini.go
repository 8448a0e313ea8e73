package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const analystPrompt = "You are a financial analyst.\n\n" +
	"Summarize the following bank statement page for a business owner:\n" +
	"- overall inflows and outflows you can see,\n" +
	"- notable or unusual transactions,\n" +
	"- recurring charges.\n\n" +
	"Answer in plain prose, a short paragraph. Do not return JSON or Markdown."

// GeminiAnalyzer calls the Gemini API to generate page narratives.
// Credentials come from the environment (GEMINI_API_KEY / GOOGLE_API_KEY),
// the same convention the genai client documents.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer for the given model.
func NewGeminiAnalyzer(ctx context.Context, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		// API version v1 is what docs use for current Gemini models.
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: create genai client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Analyze sends one page of statement text and returns the narrative body.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: analystPrompt},
				{Text: text},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("narrative: generate content: %w", err)
	}

	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return "", fmt.Errorf("narrative: empty response from model")
	}
	return body, nil
}
