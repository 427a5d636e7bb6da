// Package content generates newsletter draft content through the
// Anthropic messages API. Generation is an editor convenience: nothing
// in the delivery path depends on it, and a missing API key degrades to
// ErrUnavailable instead of failing startup.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ironlady/newsletter-platform/internal/pkg/httpretry"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// ErrUnavailable is returned when no API key is configured or the
// upstream API cannot produce content.
var ErrUnavailable = errors.New("content generation unavailable")

// Generator produces newsletter HTML drafts.
type Generator struct {
	apiKey    string
	model     string
	maxTokens int
	client    httpretry.HTTPDoer
}

// NewGenerator creates a Generator. An empty apiKey yields a generator
// whose Generate always returns ErrUnavailable.
func NewGenerator(apiKey, model string, maxTokens int, client httpretry.HTTPDoer) *Generator {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 2)
	}
	return &Generator{apiKey: apiKey, model: model, maxTokens: maxTokens, client: client}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the model for a newsletter body on the given topic.
// programFocus is optional and steers the content toward one program.
// The returned string is an HTML fragment suitable as template content,
// with the {{name}} greeting placeholder already in place.
func (g *Generator) Generate(ctx context.Context, topic, programFocus string) (string, error) {
	if g.apiKey == "" {
		return "", ErrUnavailable
	}
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}

	prompt := buildPrompt(topic, programFocus)
	body, err := json.Marshal(messageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic status %d", ErrUnavailable, resp.StatusCode)
	}

	var mr messageResponse
	if err := json.Unmarshal(data, &mr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if mr.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, mr.Error.Message)
	}

	var sb strings.Builder
	for _, c := range mr.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return out, nil
}

func buildPrompt(topic, programFocus string) string {
	var sb strings.Builder
	sb.WriteString("Write the HTML body of a monthly newsletter about: ")
	sb.WriteString(topic)
	sb.WriteString(".\n")
	if programFocus != "" {
		sb.WriteString("Highlight the ")
		sb.WriteString(programFocus)
		sb.WriteString(" program in particular.\n")
	}
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Start the greeting with the literal placeholder {{name}} so it can be personalized per recipient.\n")
	sb.WriteString("- Use simple semantic HTML (h2, p, ul) without inline styles, scripts, or external images.\n")
	sb.WriteString("- Keep it under 500 words with a warm, professional tone.\n")
	sb.WriteString("- Return only the HTML fragment, no markdown fences or commentary.")
	return sb.String()
}
