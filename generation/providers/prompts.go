package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/postpilot/postpilot/generation/domain"
)

const articleSystemPrompt = `You are a technical content writer for a developer audience.
Write an original article about the requested topic.
Return ONLY a JSON object with these fields:
- title: a concise, compelling headline (max 90 characters)
- body: the article in markdown, 400-800 words, with headings and a short conclusion
- tags: 3-5 lowercase single-word tags`

const socialSystemPrompt = `You are a social media copywriter.
Write an engaging post about the requested topic.
Return ONLY a JSON object with these fields:
- title: a one-line hook (max 80 characters)
- body: the post text, max 260 characters, no hashtags inside the text
- tags: 2-4 lowercase hashtag words without the # symbol`

func systemPromptFor(postType string) string {
	if postType == "article" {
		return articleSystemPrompt
	}
	return socialSystemPrompt
}

func userPromptFor(req domain.GenerateRequest) string {
	return fmt.Sprintf("Platform: %s\nTopic: %s", req.Platform, req.Topic)
}

// parsePayload decodes the model output into a content payload, tolerating
// markdown code fences around the JSON.
func parsePayload(raw string) (domain.GeneratedContent, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var payload domain.GeneratedContent
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("model returned malformed payload: %w", err)
	}
	if payload.Title == "" || payload.Body == "" {
		return domain.GeneratedContent{}, fmt.Errorf("model payload missing title or body")
	}
	return payload, nil
}
