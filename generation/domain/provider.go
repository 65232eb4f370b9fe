package domain

import (
	"context"
	"fmt"
)

// GenerateRequest is a provider-agnostic content generation request.
type GenerateRequest struct {
	Platform string
	PostType string // article, social, media
	Topic    string
	Model    string // optional provider-specific override
}

// GeneratedContent is the transient payload produced by a provider. It has
// no identity; the scheduler consumes it immediately into a Post.
type GeneratedContent struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags,omitempty"`
	MediaURL string   `json:"media_url,omitempty"`
}

// ContentProvider is the thin interface every AI backend implements.
type ContentProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (GeneratedContent, error)
}

// GenerationError is returned when every configured backend failed. It keeps
// the last failure and the list of backends tried.
type GenerationError struct {
	Platform string
	Topic    string
	Tried    []string
	LastErr  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed for %s (topic %q), tried %v: %v",
		e.Platform, e.Topic, e.Tried, e.LastErr)
}

func (e *GenerationError) Unwrap() error { return e.LastErr }
