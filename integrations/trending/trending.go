package trending

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const defaultSourceURL = "https://dev.to/top/week"

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Client scrapes trending developer topics to seed content generation when
// the user has not configured any topics of their own.
type Client struct {
	sourceURL string
}

func NewClient(sourceURL string) *Client {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Client{sourceURL: sourceURL}
}

// FetchTopics returns up to limit trending topic phrases. Failures return
// an error; callers fall back to their own defaults.
func (c *Client) FetchTopics(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build trending request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; postpilot/1.0)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending source returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trending page: %w", err)
	}

	topics := ExtractTopics(doc, limit)
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics found at %s", c.sourceURL)
	}

	logrus.Debugf("[TRENDING] Fetched %d topics from %s", len(topics), c.sourceURL)
	return topics, nil
}

// TopicSource adapts FetchTopics to the scheduler's fallback-supplier
// shape. Errors are logged and swallowed; an empty slice tells the caller
// to use its defaults.
func (c *Client) TopicSource(ctx context.Context) []string {
	topics, err := c.FetchTopics(ctx, 10)
	if err != nil {
		logrus.WithError(err).Warn("[TRENDING] Topic fetch failed")
		return nil
	}
	return topics
}

// ExtractTopics pulls story titles out of a parsed listing page,
// de-duplicated and trimmed. Split out so parsing can be tested without
// the network.
func ExtractTopics(doc *goquery.Document, limit int) []string {
	seen := make(map[string]struct{})
	var topics []string

	doc.Find(".crayons-story__title a").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Text())
		if title == "" {
			return true
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		topics = append(topics, title)
		return len(topics) < limit
	})

	return topics
}
