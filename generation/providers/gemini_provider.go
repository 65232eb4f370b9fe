package providers

import (
	"context"
	"fmt"

	domain "github.com/postpilot/postpilot/generation/domain"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiProvider is the adapter for the Google Gemini API.
type GeminiProvider struct {
	apiKey       string
	defaultModel string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey, defaultModel string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, defaultModel: defaultModel}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Generate implements the ContentProvider interface against the Gemini API.
func (p *GeminiProvider) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GeneratedContent, error) {
	if p.apiKey == "" {
		return domain.GeneratedContent{}, fmt.Errorf("gemini provider has no API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return domain.GeneratedContent{}, err
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPromptFor(req.PostType), genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: userPromptFor(req)}},
		},
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("gemini request failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return domain.GeneratedContent{}, fmt.Errorf("gemini returned an empty response")
	}

	payload, err := parsePayload(text)
	if err != nil {
		return domain.GeneratedContent{}, err
	}

	logrus.WithFields(logrus.Fields{
		"platform": req.Platform,
		"topic":    req.Topic,
		"model":    model,
	}).Debug("[GEMINI] Content generated")

	return payload, nil
}
