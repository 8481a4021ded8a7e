// Package ollama implements narration generation against a local Ollama
// server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hearthside/hearthside/internal/game/domain"
	"github.com/hearthside/hearthside/internal/narrator"
	apperrors "github.com/hearthside/hearthside/internal/platform/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "llama3.2"

const systemPrompt = "You are the narrator of a tabletop fantasy adventure. " +
	"Describe the outcome of the player's action in second person, in two or " +
	"three vivid sentences. Never speak for the players and never break " +
	"character. End on something the party can react to."

// Client talks to one Ollama server.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithModel selects the model to chat with.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient swaps the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New creates a client for the Ollama server at baseURL, such as
// http://localhost:11434.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultModel,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Available probes the server's tag listing to check reachability.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate implements narrator.Generator.
func (c *Client) Generate(ctx context.Context, req narrator.Request) (string, error) {
	ctx, span := otel.Tracer("narrator/ollama").Start(ctx, "ollama.generate",
		trace.WithAttributes(attribute.String("ollama.model", c.model)))
	defer span.End()

	payload := chatRequest{
		Model:    c.model,
		Messages: c.buildMessages(req),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Wrap(apperrors.CodeGeneratorFailure, "ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.New(apperrors.CodeGeneratorFailure, fmt.Sprintf("ollama returned status %d", resp.StatusCode))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", apperrors.Wrap(apperrors.CodeGeneratorFailure, "decode chat response", err)
	}
	text := strings.TrimSpace(decoded.Message.Content)
	if text == "" {
		return "", apperrors.New(apperrors.CodeGeneratorFailure, "ollama returned empty narration")
	}
	return text, nil
}

// buildMessages frames the system prompt, the recent transcript and the
// acting player's line as a chat history.
func (c *Client) buildMessages(req narrator.Request) []chatMessage {
	messages := []chatMessage{{Role: "system", Content: c.buildSystemPrompt(req)}}
	for _, m := range req.Transcript {
		switch m.Kind {
		case domain.MessageKindNarrator:
			messages = append(messages, chatMessage{Role: "assistant", Content: m.Text})
		case domain.MessageKindPlayer:
			messages = append(messages, chatMessage{Role: "user", Content: fmt.Sprintf("%s: %s", m.SenderName, m.Text)})
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: fmt.Sprintf("%s: %s", req.ActorName, req.Action)})
	return messages
}

func (c *Client) buildSystemPrompt(req narrator.Request) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if req.CampaignName != "" {
		fmt.Fprintf(&b, " The campaign is called %q.", req.CampaignName)
	}
	if req.Combat.Phase == domain.CombatPhaseActive {
		fmt.Fprintf(&b, " Combat is underway, round %d.", req.Combat.Round)
		if current, ok := req.Combat.Current(); ok {
			fmt.Fprintf(&b, " It is %s's turn.", current.Name)
		}
	}
	return b.String()
}
