package platforms

import (
	"context"
	"strings"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

const twitterTweetsURL = "https://api.twitter.com/2/tweets"

// TwitterPublisher posts tweets through the X v2 API.
type TwitterPublisher struct {
	creds domain.CredentialSource
}

func NewTwitterPublisher(creds domain.CredentialSource) *TwitterPublisher {
	return &TwitterPublisher{creds: creds}
}

func (p *TwitterPublisher) Platform() string { return "twitter" }

func (p *TwitterPublisher) Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error) {
	cred, err := resolveCredential(ctx, p.creds, p.Platform())
	if err != nil {
		return "", err
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + cred.Token}
	body := map[string]any{"text": composeTweet(content)}
	if err := postJSON(ctx, twitterTweetsURL, headers, body, &resp); err != nil {
		return "", publishErr(p.Platform(), "tweet rejected", err)
	}
	if resp.Data.ID == "" {
		return "", publishErr(p.Platform(), "response missing tweet id", nil)
	}
	return resp.Data.ID, nil
}

// composeTweet appends hashtags and keeps the result inside the 280 rune cap.
func composeTweet(content generationDomain.GeneratedContent) string {
	text := content.Body
	if text == "" {
		text = content.Title
	}

	var hashtags []string
	for _, t := range content.Tags {
		hashtags = append(hashtags, "#"+t)
	}
	suffix := ""
	if len(hashtags) > 0 {
		suffix = "\n\n" + strings.Join(hashtags, " ")
	}

	const maxRunes = 280
	runes := []rune(text)
	budget := maxRunes - len([]rune(suffix))
	if budget < 0 {
		return string(runes[:maxRunes])
	}
	if len(runes) > budget {
		runes = runes[:budget]
	}
	return string(runes) + suffix
}
