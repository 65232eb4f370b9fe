package platforms

import (
	"context"
	"fmt"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

// MediumPublisher posts markdown stories through the Medium v1 API. The
// credential's Extra blob must carry the author_id.
type MediumPublisher struct {
	creds domain.CredentialSource
}

func NewMediumPublisher(creds domain.CredentialSource) *MediumPublisher {
	return &MediumPublisher{creds: creds}
}

func (p *MediumPublisher) Platform() string { return "medium" }

func (p *MediumPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	authorID := extraField(cred, "author_id")
	if authorID == "" {
		return "", publishErr(p.Platform(), "credential missing author_id", nil)
	}

	url := fmt.Sprintf("https://api.medium.com/v1/users/%s/posts", authorID)
	body := map[string]any{
		"title":         content.Title,
		"contentFormat": "markdown",
		"content":       content.Body,
		"tags":          content.Tags,
		"publishStatus": "public",
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + cred.Token}
	if err := postJSON(ctx, url, headers, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "story rejected", err)
	}
	if resp.Data.ID == "" {
		return "", publishErr(p.Platform(), "response missing story id", nil)
	}
	return resp.Data.ID, nil
}
