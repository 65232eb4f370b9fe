package platforms

import (
	"context"
	"fmt"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

// InstagramPublisher posts media through the Graph API's two-step container
// flow. Instagram requires an image, so posts without a media reference fail
// before any network call. The credential's Extra blob must carry the
// ig_user_id.
type InstagramPublisher struct {
	creds domain.CredentialSource
}

func NewInstagramPublisher(creds domain.CredentialSource) *InstagramPublisher {
	return &InstagramPublisher{creds: creds}
}

func (p *InstagramPublisher) Platform() string { return "instagram" }

func (p *InstagramPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	if content.MediaURL == "" {
		return "", publishErr(p.Platform(), "instagram posts require a media url", nil)
	}

	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	igUserID := extraField(cred, "ig_user_id")
	if igUserID == "" {
		return "", publishErr(p.Platform(), "credential missing ig_user_id", nil)
	}

	// Step 1: create the media container.
	createURL := fmt.Sprintf("%s/%s/media", graphAPIBase, igUserID)
	var container struct {
		ID string `json:"id"`
	}
	createBody := map[string]any{
		"image_url":    content.MediaURL,
		"caption":      content.Title + "\n\n" + content.Body,
		"access_token": cred.Token,
	}
	if err := postJSON(ctx, createURL, nil, createBody, &container); err != nil {
		return "", publishErr(p.Platform(), "media container rejected", err)
	}
	if container.ID == "" {
		return "", publishErr(p.Platform(), "response missing container id", nil)
	}

	// Step 2: publish the container.
	publishURL := fmt.Sprintf("%s/%s/media_publish", graphAPIBase, igUserID)
	var resp struct {
		ID string `json:"id"`
	}
	publishBody := map[string]any{
		"creation_id":  container.ID,
		"access_token": cred.Token,
	}
	if err := postJSON(ctx, publishURL, nil, publishBody, &resp); err != nil {
		return "", publishErr(p.Platform(), "media publish rejected", err)
	}
	if resp.ID == "" {
		return "", publishErr(p.Platform(), "response missing media id", nil)
	}
	return resp.ID, nil
}
