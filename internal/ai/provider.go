package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single completion call. Zero values mean provider
// defaults.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int64
}

// Provider produces one assistant reply for an ordered transcript.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// ImageProvider is optional; providers that can render illustrations
// implement it. GenerateImage returns a URL for the rendered image.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
