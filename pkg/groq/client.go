package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"therapypunch/pkg/logging"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("groq: empty response")

// thinkRegex matches <think>...</think> content, including newlines.
var thinkRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Prompt is a single-shot request: an optional system message and a user message.
type Prompt struct {
	System string
	User   string
}

// KeyState tracks the health of an API key
type KeyState struct {
	Key          string
	FailureCount int
	LastUsed     time.Time
	LastSuccess  time.Time
}

type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// Client talks to an OpenAI-compatible chat completions endpoint. Each call is
// a single attempt; callers decide what a failure means.
type Client struct {
	keys      []*KeyState
	keyMu     sync.RWMutex
	clients   map[string]openai.Client
	clientsMu sync.RWMutex
	opts      Options
	logger    logging.Logger
}

// NewClient accepts one key or several comma-separated ones. Keys are picked
// by fewest recent failures.
func NewClient(apiKeys string, opts Options, logger logging.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	keyStrings := strings.Split(apiKeys, ",")
	keys := make([]*KeyState, 0, len(keyStrings))
	for _, k := range keyStrings {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, &KeyState{Key: k})
		}
	}

	if len(keys) == 0 {
		logger.Warn("No Groq API keys provided")
	} else {
		logger.WithField("keys", len(keys)).Info("Loaded Groq API key(s)")
	}

	return &Client{
		keys:    keys,
		clients: make(map[string]openai.Client),
		opts:    opts,
		logger:  logger,
	}
}

func (c *Client) getClient(key string) openai.Client {
	c.clientsMu.RLock()
	if client, ok := c.clients[key]; ok {
		c.clientsMu.RUnlock()
		return client
	}
	c.clientsMu.RUnlock()

	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	client := openai.NewClient(
		option.WithBaseURL(c.opts.BaseURL),
		option.WithAPIKey(key),
		option.WithHTTPClient(c.opts.HTTPClient),
		option.WithMaxRetries(0),
	)
	c.clients[key] = client
	return client
}

// getBestKey returns the API key with the least failures
func (c *Client) getBestKey() *KeyState {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()

	if len(c.keys) == 0 {
		return nil
	}

	best := c.keys[0]
	for _, k := range c.keys[1:] {
		if k.FailureCount < best.FailureCount {
			best = k
		}
	}
	return best
}

// recordSuccess lets a key recover one failure at a time.
func (c *Client) recordSuccess(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.LastSuccess = time.Now()
	key.LastUsed = time.Now()
	if key.FailureCount > 0 {
		key.FailureCount--
	}
}

func (c *Client) recordFailure(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.FailureCount++
	key.LastUsed = time.Now()
}

// Generate sends one chat completion and returns the cleaned reply text.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	keyState := c.getBestKey()
	if keyState == nil {
		return "", fmt.Errorf("no API keys configured")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.opts.Model),
		Messages:    messages,
		Temperature: openai.Float(c.opts.Temperature),
		TopP:        openai.Float(c.opts.TopP),
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
	}

	start := time.Now()
	client := c.getClient(keyState.Key)
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isKeyError(err) {
			c.recordFailure(keyState)
		}
		return "", fmt.Errorf("model %s: %w", c.opts.Model, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := clean(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}

	c.recordSuccess(keyState)
	c.logger.WithFields(logging.Fields{
		"model":         c.opts.Model,
		"took":          time.Since(start).String(),
		"input_tokens":  resp.Usage.PromptTokens,
		"output_tokens": resp.Usage.CompletionTokens,
	}).Debug("Model success")

	return content, nil
}

// Describe produces context for an image from its alt text. The model never
// sees the image itself.
func (c *Client) Describe(ctx context.Context, altText string) (string, error) {
	return c.Generate(ctx, Prompt{User: describePrompt(altText)})
}

func describePrompt(altText string) string {
	return fmt.Sprintf(`Analyze this image description and provide relevant context:
Image Alt Text: %s

Describe:
1. What is shown in the image
2. Any text visible in the image
3. Key elements or focus points
4. Relevant context for understanding the image

Keep the analysis concise but informative.`, altText)
}

// clean strips <think> blocks, whitespace and wrapping quotes.
func clean(content string) string {
	content = thinkRegex.ReplaceAllString(content, "")
	content = strings.TrimSpace(content)

	if len(content) >= 2 && strings.HasPrefix(content, "\"") && strings.HasSuffix(content, "\"") {
		content = strings.TrimSpace(content[1 : len(content)-1])
	}
	return content
}

// isKeyError reports rate-limit and auth failures, the ones that count against a key.
func isKeyError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	return false
}
