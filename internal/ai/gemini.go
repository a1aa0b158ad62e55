package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini completes conversations with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Gemini completer. An empty baseURL uses the public API.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, messages []Message, maxOutputTokens int) (string, error) {
	system, contents := toGeminiContents(messages)

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if maxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(maxOutputTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", classifyGemini(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

// toGeminiContents splits system messages into the system instruction and
// maps the remaining turns onto Gemini's user/model roles.
func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func classifyGemini(err error) *UpstreamError {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return classify("gemini", apiErr.Code, err)
	case errors.As(err, &apiErrPtr):
		return classify("gemini", apiErrPtr.Code, err)
	}
	return classify("gemini", 0, err)
}
