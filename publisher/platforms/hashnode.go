package platforms

import (
	"context"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

const hashnodeGraphqlURL = "https://gql.hashnode.com"

const hashnodePublishMutation = `
mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) {
    post { id }
  }
}`

// HashnodePublisher posts articles through the Hashnode GraphQL API. The
// credential's Extra blob must carry the target publication_id.
type HashnodePublisher struct {
	creds domain.CredentialSource
}

func NewHashnodePublisher(creds domain.CredentialSource) *HashnodePublisher {
	return &HashnodePublisher{creds: creds}
}

func (p *HashnodePublisher) Platform() string { return "hashnode" }

func (p *HashnodePublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	publicationID := extraField(cred, "publication_id")
	if publicationID == "" {
		return "", publishErr(p.Platform(), "credential missing publication_id", nil)
	}

	tags := make([]map[string]string, 0, len(content.Tags))
	for _, t := range content.Tags {
		tags = append(tags, map[string]string{"slug": t, "name": t})
	}

	body := map[string]any{
		"query": hashnodePublishMutation,
		"variables": map[string]any{
			"input": map[string]any{
				"title":           content.Title,
				"contentMarkdown": content.Body,
				"publicationId":   publicationID,
				"tags":            tags,
			},
		},
	}

	var resp struct {
		Data struct {
			PublishPost struct {
				Post struct {
					ID string `json:"id"`
				} `json:"post"`
			} `json:"publishPost"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	headers := map[string]string{"Authorization": cred.Token}
	if err := postJSON(ctx, hashnodeGraphqlURL, headers, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "mutation rejected", err)
	}
	if len(resp.Errors) > 0 {
		return "", publishErr(p.Platform(), resp.Errors[0].Message, nil)
	}
	if resp.Data.PublishPost.Post.ID == "" {
		return "", publishErr(p.Platform(), "response missing post id", nil)
	}
	return resp.Data.PublishPost.Post.ID, nil
}
