// Package llm wires the provider-agnostic interfaces.LLMProvider to
// concrete Claude and Gemini clients, grounded on the ProviderFactory
// in the teacher's internal/services/llm/provider.go.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/a11yscan/auditor/internal/common"
	"github.com/a11yscan/auditor/internal/interfaces"
)

// ProviderKind names a concrete backend.
type ProviderKind string

const (
	ProviderClaude ProviderKind = "claude"
	ProviderGemini ProviderKind = "gemini"
)

// Factory is the concurrency-safe LLMProvider backed by lazily
// created Claude/Gemini clients. One Factory is shared by every axis
// dispatch goroutine.
type Factory struct {
	claudeCfg common.ClaudeConfig
	geminiCfg common.GeminiConfig
	llmCfg    common.LLMConfig
	logger    arbor.ILogger

	mu           sync.Mutex
	claudeClient *anthropic.Client
	claudeKey    string
	geminiClient *genai.Client
	geminiKey    string
}

// NewFactory builds a Factory. Clients are created on first use so a
// process that only exercises one provider never resolves the other's
// API key.
func NewFactory(claudeCfg common.ClaudeConfig, geminiCfg common.GeminiConfig, llmCfg common.LLMConfig, logger arbor.ILogger) *Factory {
	return &Factory{claudeCfg: claudeCfg, geminiCfg: geminiCfg, llmCfg: llmCfg, logger: logger}
}

// DetectProvider maps a model string (optionally "provider/model") to
// the backend that should serve it, defaulting to the configured
// provider when model is empty.
func (f *Factory) DetectProvider(model string) ProviderKind {
	if model == "" {
		return ProviderKind(f.llmCfg.DefaultProvider)
	}
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude/"), strings.HasPrefix(m, "anthropic/"), strings.HasPrefix(m, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(m, "gemini/"), strings.HasPrefix(m, "google/"), strings.HasPrefix(m, "gemini-"):
		return ProviderGemini
	default:
		return ProviderKind(f.llmCfg.DefaultProvider)
	}
}

// NormalizeModel strips any provider prefix from a model string.
func (f *Factory) NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

func (f *Factory) claude() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claudeClient != nil {
		return f.claudeClient, nil
	}
	key, err := common.ResolveAPIKey("claude", f.claudeCfg.APIKey)
	if err != nil {
		return nil, err
	}
	client := anthropic.NewClient(option.WithAPIKey(key))
	f.claudeClient = &client
	f.claudeKey = key
	return f.claudeClient, nil
}

func (f *Factory) gemini(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}
	key, err := common.ResolveAPIKey("gemini", f.geminiCfg.APIKey)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	f.geminiClient = client
	f.geminiKey = key
	return client, nil
}

// GenerateContent dispatches req to the provider selected by req.Model,
// retrying transient failures (SPEC_FULL.md §2, teacher's gemini_retry.go).
func (f *Factory) GenerateContent(ctx context.Context, req *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	provider := f.DetectProvider(req.Model)
	model := f.NormalizeModel(req.Model)

	retry := NewRetryPolicy(f.llmCfg.MaxRetries)
	var lastErr error

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		var resp *interfaces.ContentResponse
		var err error

		switch provider {
		case ProviderClaude:
			resp, err = f.generateClaude(ctx, req, model)
		case ProviderGemini:
			resp, err = f.generateGemini(ctx, req, model)
		default:
			resp, err = f.generateClaude(ctx, req, model)
		}

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == retry.MaxRetries || !IsTransient(err) {
			break
		}

		backoff := retry.Backoff(attempt, ExtractRetryDelay(err))
		f.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(err).Msg("retrying LLM call")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if IsTransient(lastErr) {
		return nil, common.WrapError(common.CodeLLMTransient, "llm call failed after retries", lastErr)
	}
	return nil, common.WrapError(common.CodeLLMPermanent, "llm call failed", lastErr)
}

func (f *Factory) generateClaude(ctx context.Context, req *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.claude()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = f.claudeCfg.Model
	}

	messages, systemText, err := convertMessagesToClaude(req.Messages)
	if err != nil {
		return nil, err
	}
	if req.SystemInstruction != "" {
		systemText = req.SystemInstruction
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeCfg.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = f.claudeCfg.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from claude")
	}

	return &interfaces.ContentResponse{
		Text:       text.String(),
		Model:      model,
		Provider:   string(ProviderClaude),
		TokenUsage: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

func (f *Factory) generateGemini(ctx context.Context, req *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.gemini(ctx)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = f.geminiCfg.Model
	}

	contents, systemText, err := convertMessagesToGemini(req.Messages)
	if err != nil {
		return nil, err
	}
	if req.SystemInstruction != "" {
		systemText = req.SystemInstruction
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = f.geminiCfg.Temperature
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(temp)}
	if systemText != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty text in gemini response")
	}

	usage := 0
	if resp.UsageMetadata != nil {
		usage = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &interfaces.ContentResponse{
		Text:       text,
		Model:      model,
		Provider:   string(ProviderGemini),
		TokenUsage: usage,
	}, nil
}

// Close releases both provider clients.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	f.claudeKey = ""
	f.geminiKey = ""
	return nil
}

func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}
	var out []anthropic.MessageParam
	var systemText string
	for _, m := range messages {
		switch m.Role {
		case "system":
			if systemText == "" {
				systemText = m.Text
			}
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return out, systemText, nil
}

func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}
	var out []*genai.Content
	var systemText string
	for _, m := range messages {
		if m.Role == "system" {
			if systemText == "" {
				systemText = m.Text
			}
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Text, role))
	}
	return out, systemText, nil
}
