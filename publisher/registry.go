package publisher

import (
	"context"
	"fmt"
	"sync"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/publisher/domain"
)

// Registry selects publishers by platform identifier. Adding a platform is a
// matter of registering one more Publisher implementation.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]domain.Publisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[string]domain.Publisher)}
}

func (r *Registry) Register(p domain.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[p.Platform()] = p
}

func (r *Registry) Get(platform string) (domain.Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.publishers[platform]
	return p, ok
}

func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.publishers))
	for k := range r.publishers {
		out = append(out, k)
	}
	return out
}

// Publish dispatches to the publisher registered for the platform. Unknown
// platforms surface as a PublishError so the caller's retry policy applies
// uniformly.
func (r *Registry) Publish(ctx context.Context, platform string, content generationDomain.GeneratedContent) (string, error) {
	p, ok := r.Get(platform)
	if !ok {
		return "", &domain.PublishError{
			Platform: platform,
			Message:  "unsupported platform",
			Err:      fmt.Errorf("no publisher registered for %q", platform),
		}
	}
	return p.Publish(ctx, content)
}
