package platforms

import (
	"context"
	"strconv"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

const devtoArticlesURL = "https://dev.to/api/articles"

// DevtoPublisher posts markdown articles through the dev.to Forem API.
type DevtoPublisher struct {
	creds domain.CredentialSource
}

func NewDevtoPublisher(creds domain.CredentialSource) *DevtoPublisher {
	return &DevtoPublisher{creds: creds}
}

func (p *DevtoPublisher) Platform() string { return "devto" }

func (p *DevtoPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"article": map[string]any{
			"title":         content.Title,
			"body_markdown": content.Body,
			"published":     true,
			"tags":          content.Tags,
		},
	}
	if content.MediaURL != "" {
		body["article"].(map[string]any)["main_image"] = content.MediaURL
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	headers := map[string]string{"api-key": cred.Token}
	if err := postJSON(ctx, devtoArticlesURL, headers, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "article rejected", err)
	}
	if resp.ID == 0 {
		return "", publishErr(p.Platform(), "response missing article id", nil)
	}
	return strconv.FormatInt(resp.ID, 10), nil
}
