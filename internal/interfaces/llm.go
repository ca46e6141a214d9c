package interfaces

import "context"

// Message is a provider-agnostic chat message.
type Message struct {
	Role string // "user" | "assistant"
	Text string
}

// ContentRequest is a provider-agnostic content-generation request
// (spec.md §6 "LLM contract").
type ContentRequest struct {
	Messages          []Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ContentResponse is a provider-agnostic content-generation response.
type ContentResponse struct {
	Text       string
	Model      string
	Provider   string
	TokenUsage int
}

// LLMProvider is the pluggable chat-completion endpoint the Module
// Dispatcher calls (spec.md §6). The core treats the specific provider
// as an implementation detail behind this interface.
type LLMProvider interface {
	GenerateContent(ctx context.Context, req *ContentRequest) (*ContentResponse, error)
	Close() error
}
