package application

import (
	"context"
	"errors"
	"testing"

	domain "github.com/postpilot/postpilot/generation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name    string
	payload domain.GeneratedContent
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GeneratedContent, error) {
	s.calls++
	return s.payload, s.err
}

func TestEngineFirstProviderWins(t *testing.T) {
	first := &stubProvider{name: "gemini", payload: domain.GeneratedContent{Title: "T", Body: "B"}}
	second := &stubProvider{name: "openai"}
	engine := NewEngine(first, second)

	payload, err := engine.Generate(context.Background(), domain.GenerateRequest{Platform: "devto", Topic: "go"})

	require.NoError(t, err)
	assert.Equal(t, "T", payload.Title)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "fallback must not run when the first provider succeeds")
}

func TestEngineFallsBackInOrder(t *testing.T) {
	first := &stubProvider{name: "gemini", err: errors.New("quota exceeded")}
	second := &stubProvider{name: "openai", payload: domain.GeneratedContent{Title: "T", Body: "B"}}
	engine := NewEngine(first, second)

	payload, err := engine.Generate(context.Background(), domain.GenerateRequest{Platform: "devto", Topic: "go"})

	require.NoError(t, err)
	assert.Equal(t, "T", payload.Title)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestEngineCompositeError(t *testing.T) {
	lastErr := errors.New("model offline")
	first := &stubProvider{name: "gemini", err: errors.New("quota exceeded")}
	second := &stubProvider{name: "openai", err: lastErr}
	engine := NewEngine(first, second)

	_, err := engine.Generate(context.Background(), domain.GenerateRequest{Platform: "twitter", Topic: "go"})

	require.Error(t, err)
	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, []string{"gemini", "openai"}, genErr.Tried)
	assert.ErrorIs(t, err, lastErr, "composite error must carry the last failure")
}

func TestEngineNoProviders(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Generate(context.Background(), domain.GenerateRequest{Platform: "devto", Topic: "go"})
	require.Error(t, err)
}
