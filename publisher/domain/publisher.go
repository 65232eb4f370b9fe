package domain

import (
	"context"
	"fmt"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
)

// Publisher is the single capability every platform destination implements.
// Publish returns the platform-assigned post identifier on success.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, content generationDomain.GeneratedContent) (string, error)
}

// Credential is the minimal credential view a publisher needs.
type Credential struct {
	Token  string
	Secret string
	Extra  string // platform-specific JSON (author id, page id, publication id, ...)
}

// CredentialSource resolves stored credentials at publish time, so edits in
// the configuration UI take effect without a restart.
type CredentialSource interface {
	Credential(ctx context.Context, platform string) (Credential, error)
}

// PublishError collapses platform-specific failures into one shape. The
// dispatch loop treats it as an ordinary retriable failure.
type PublishError struct {
	Platform string
	Message  string
	Err      error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish to %s failed: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("publish to %s failed: %s", e.Platform, e.Message)
}

func (e *PublishError) Unwrap() error { return e.Err }
