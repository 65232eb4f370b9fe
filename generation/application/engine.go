package application

import (
	"context"

	domain "github.com/postpilot/postpilot/generation/domain"
	"github.com/sirupsen/logrus"
)

// Engine tries the configured AI backends in priority order and returns the
// first successful payload. It fails with a GenerationError only when every
// backend failed.
type Engine struct {
	providers []domain.ContentProvider
}

// NewEngine creates an engine over the given providers. Order is priority.
func NewEngine(providers ...domain.ContentProvider) *Engine {
	return &Engine{providers: providers}
}

// Generate implements the content generation contract.
func (e *Engine) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GeneratedContent, error) {
	genErr := &domain.GenerationError{Platform: req.Platform, Topic: req.Topic}

	if len(e.providers) == 0 {
		genErr.LastErr = errNoProviders
		return domain.GeneratedContent{}, genErr
	}

	for _, p := range e.providers {
		payload, err := p.Generate(ctx, req)
		if err == nil {
			return payload, nil
		}
		genErr.Tried = append(genErr.Tried, p.Name())
		genErr.LastErr = err
		logrus.WithError(err).Warnf("[GENERATION] Provider %s failed, trying next", p.Name())

		if ctx.Err() != nil {
			break
		}
	}

	return domain.GeneratedContent{}, genErr
}
