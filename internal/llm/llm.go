// Package llm provides a single Gemini-backed client used by both the
// light-analysis fan-out and the deep-analysis agent graph. Every call goes
// through Chat or ChatStructured so error classification (internal/errs)
// and retry policy live in one place instead of being duplicated per
// caller.
package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"resintel/internal/errs"
)

// DefaultModel matches the reference pipeline's default analysis model.
const DefaultModel = "gemini-2.0-flash"

// Role is a chat message role, mirroring the system/user/assistant turns
// the reference implementation builds via its create_messages helper.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat-style prompt.
type Message struct {
	Role    Role
	Content string
}

// Messages builds a system -> user turn sequence, the common case for both
// light analysis and agent tool prompts.
func Messages(system, user string) []Message {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	if user != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: user})
	}
	return msgs
}

// Client is the provider-agnostic interface the analysis and deep-analysis
// packages depend on, so tests can substitute a fake without touching
// genai.
type Client interface {
	// Chat returns the model's free-form text reply.
	Chat(ctx context.Context, messages []Message) (string, error)
	// ChatStructured returns the model's reply constrained to schema,
	// as a JSON-encoded string the caller unmarshals into its own type.
	ChatStructured(ctx context.Context, messages []Message, schema *genai.Schema) (string, error)
}

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	modelName  string
	maxRetries int
	timeout    time.Duration
	g          *genai.Client
}

// Config configures a GeminiClient.
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewGeminiClient builds a GeminiClient. APIKey is required; Model defaults
// to DefaultModel.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	g, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{modelName: model, maxRetries: maxRetries, timeout: timeout, g: g}, nil
}

// Chat implements Client.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.generate(ctx, messages, nil)
}

// ChatStructured implements Client.
func (c *GeminiClient) ChatStructured(ctx context.Context, messages []Message, schema *genai.Schema) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("llm: ChatStructured requires a non-nil schema")
	}
	return c.generate(ctx, messages, schema)
}

func (c *GeminiClient) generate(ctx context.Context, messages []Message, schema *genai.Schema) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("llm: messages cannot be empty")
	}

	var system *genai.Content
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	config := &genai.GenerateContentConfig{}
	if system != nil {
		config.SystemInstruction = system
	}
	if schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.g.Models.GenerateContent(ctx, c.modelName, contents, config)
		if err == nil {
			text := resp.Text()
			if text == "" {
				lastErr = errs.New(errs.KindParse, fmt.Errorf("empty response from model"))
			} else {
				return text, nil
			}
		} else {
			lastErr = err
		}

		kind := errs.Classify(lastErr)
		if kind != errs.KindRateLimit && kind != errs.KindTimeout {
			break
		}

		wait := time.Duration(1<<uint(attempt)) * time.Second
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("llm: generation failed after retries: %w", lastErr)
}

// ModelName returns the model this client was configured with.
func (c *GeminiClient) ModelName() string { return c.modelName }
