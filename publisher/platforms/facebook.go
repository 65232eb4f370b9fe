package platforms

import (
	"context"
	"fmt"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

const graphAPIBase = "https://graph.facebook.com/v19.0"

// FacebookPublisher posts to a page feed through the Graph API. The
// credential's Extra blob must carry the page_id; Token is a page token.
type FacebookPublisher struct {
	creds domain.CredentialSource
}

func NewFacebookPublisher(creds domain.CredentialSource) *FacebookPublisher {
	return &FacebookPublisher{creds: creds}
}

func (p *FacebookPublisher) Platform() string { return "facebook" }

func (p *FacebookPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	pageID := extraField(cred, "page_id")
	if pageID == "" {
		return "", publishErr(p.Platform(), "credential missing page_id", nil)
	}

	url := fmt.Sprintf("%s/%s/feed", graphAPIBase, pageID)
	body := map[string]any{
		"message":      content.Title + "\n\n" + content.Body,
		"access_token": cred.Token,
	}
	if content.MediaURL != "" {
		body["link"] = content.MediaURL
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, url, nil, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "feed post rejected", err)
	}
	if resp.ID == "" {
		return "", publishErr(p.Platform(), "response missing post id", nil)
	}
	return resp.ID, nil
}
