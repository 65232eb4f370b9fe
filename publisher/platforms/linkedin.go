package platforms

import (
	"context"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

const linkedinPostsURL = "https://api.linkedin.com/v2/ugcPosts"

// LinkedinPublisher posts member shares through the LinkedIn UGC API. The
// credential's Extra blob must carry the author_urn.
type LinkedinPublisher struct {
	creds domain.CredentialSource
}

func NewLinkedinPublisher(creds domain.CredentialSource) *LinkedinPublisher {
	return &LinkedinPublisher{creds: creds}
}

func (p *LinkedinPublisher) Platform() string { return "linkedin" }

func (p *LinkedinPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	authorURN := extraField(cred, "author_urn")
	if authorURN == "" {
		return "", publishErr(p.Platform(), "credential missing author_urn", nil)
	}

	body := map[string]any{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary": map[string]any{
					"text": content.Title + "\n\n" + content.Body,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	headers := map[string]string{
		"Authorization":             "Bearer " + cred.Token,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	if err := postJSON(ctx, linkedinPostsURL, headers, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "share rejected", err)
	}
	if resp.ID == "" {
		return "", publishErr(p.Platform(), "response missing share id", nil)
	}
	return resp.ID, nil
}
