package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	domain "github.com/postpilot/postpilot/generation/domain"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider is the adapter for the OpenAI API.
type OpenAIProvider struct {
	apiKey       string
	defaultModel string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, defaultModel string) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, defaultModel: defaultModel}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Generate implements the ContentProvider interface against the OpenAI API.
func (p *OpenAIProvider) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GeneratedContent, error) {
	if p.apiKey == "" {
		return domain.GeneratedContent{}, fmt.Errorf("openai provider has no API key")
	}

	client := openai.NewClient(
		option.WithAPIKey(p.apiKey),
	)

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptFor(req.PostType)),
			openai.UserMessage(userPromptFor(req)),
		},
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.GeneratedContent{}, fmt.Errorf("openai returned no choices")
	}

	payload, err := parsePayload(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.GeneratedContent{}, err
	}

	logrus.WithFields(logrus.Fields{
		"platform": req.Platform,
		"topic":    req.Topic,
		"model":    model,
	}).Debug("[OPENAI] Content generated")

	return payload, nil
}
