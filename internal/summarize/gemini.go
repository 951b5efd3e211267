package summarize

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSummarizer implements Summarizer via Gemini's GenerativeModel,
// extracting the first candidate's text and parsing it as a
// <DESC>/<TAGS> tagged span.
type GeminiSummarizer struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

// NewGeminiSummarizer creates a Gemini-backed summarizer using a fixed
// system prompt (summarization_api.system_prompt).
func NewGeminiSummarizer(ctx context.Context, apiKey, model, systemPrompt string) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: model, systemPrompt: systemPrompt}, nil
}

// Close releases the underlying Gemini client.
func (s *GeminiSummarizer) Close() error {
	return s.client.Close()
}

// Summarize calls the chat-completion model with the fixed system prompt
// and extracts the <DESC>/<TAGS> spans. Any failure is returned as an
// error; callers should treat that as "no summary available" rather than
// a hard failure.
func (s *GeminiSummarizer) Summarize(ctx context.Context, text string) (*Summary, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(0.3)
	if s.systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(s.systemPrompt))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}

	return parseTaggedSpans(out), nil
}

var _ Summarizer = (*GeminiSummarizer)(nil)
