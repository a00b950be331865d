package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	// Groq exposes an OpenAI-compatible completions API.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	summaryBodyLimit = 1000
	replyBodyLimit   = 1500
	digestBodyLimit  = 200
	digestEmailLimit = 20
)

var _ Generator = (*Client)(nil)

// Client implements Generator against any OpenAI-compatible API.
type Client struct {
	client openai.Client
	model  string
}

// NewClient builds a client. Empty baseURL and model fall back to the
// Groq defaults.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

func (c *Client) Summarize(ctx context.Context, email EmailContext) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following email in 2-3 sentences. Be concise and highlight the key points.

From: %s
Subject: %s
Body: %s

Summary:`, email.Sender, email.Subject, truncate(email.Body, summaryBodyLimit))

	return c.complete(ctx, completionRequest{
		system:      "You are a helpful assistant that summarizes emails concisely.",
		user:        prompt,
		maxTokens:   150,
		temperature: 0.7,
	})
}

func (c *Client) DraftReply(ctx context.Context, email EmailContext) (string, error) {
	prompt := fmt.Sprintf(`Generate a professional and contextually appropriate email reply. The reply should be:
- Professional and courteous
- Contextually aware of the original email
- Ready to send (complete and well-formatted)
- Appropriate in tone

Original Email:
From: %s
Subject: %s
Body: %s

Generate a professional reply:`, email.Sender, email.Subject, truncate(email.Body, replyBodyLimit))

	return c.complete(ctx, completionRequest{
		system:      "You are a professional email assistant that writes clear, contextually appropriate email replies.",
		user:        prompt,
		maxTokens:   500,
		temperature: 0.7,
	})
}

func (c *Client) ParseCommand(ctx context.Context, command string) (*ParsedCommand, error) {
	prompt := fmt.Sprintf(`Analyze the following user command and determine the intent. Return JSON with:
- action: "read", "reply", "delete", or "unknown"
- parameters: relevant parameters like sender, subject_keyword, email_number, max_results, email_ids, etc.

Command: %q

Return only valid JSON:`, command)

	raw, err := c.complete(ctx, completionRequest{
		system:      "You are a command parser. Return only valid JSON.",
		user:        prompt,
		maxTokens:   200,
		temperature: 0.3,
		jsonObject:  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed ParsedCommand
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parsing command response: %w", err)
	}
	return &parsed, nil
}

func (c *Client) DailyDigest(ctx context.Context, emails []EmailContext) (string, error) {
	if len(emails) > digestEmailLimit {
		emails = emails[:digestEmailLimit]
	}

	var listing strings.Builder
	for i, email := range emails {
		if i > 0 {
			listing.WriteString("\n\n")
		}
		fmt.Fprintf(&listing, "From: %s\nSubject: %s\n%s",
			email.Sender, email.Subject, truncate(email.Body, digestBodyLimit))
	}

	prompt := fmt.Sprintf(`Create a daily email digest summarizing the key emails and suggesting actions or follow-ups.

Emails:
%s

Generate a concise daily digest with:
1. Key emails summary
2. Suggested actions or follow-ups

Digest:`, listing.String())

	return c.complete(ctx, completionRequest{
		system:      "You are a helpful assistant that creates email digests.",
		user:        prompt,
		maxTokens:   800,
		temperature: 0.7,
	})
}

func (c *Client) Categorize(ctx context.Context, emails []EmailContext) (map[string][]int, error) {
	var listing strings.Builder
	for i, email := range emails {
		if i > 0 {
			listing.WriteString("\n\n")
		}
		fmt.Fprintf(&listing, "%d. From: %s\n   Subject: %s\n   Summary: %s",
			i+1, email.Sender, email.Subject, truncate(email.Body, digestBodyLimit))
	}

	prompt := fmt.Sprintf(`Categorize the following emails into groups: Work, Promotions, Personal, Urgent, or Other.
Return JSON with categories as keys and arrays of email numbers (1-indexed) as values.

Emails:
%s

Return only valid JSON:`, listing.String())

	raw, err := c.complete(ctx, completionRequest{
		system:      "You are a helpful assistant that categorizes emails. Return only valid JSON.",
		user:        prompt,
		maxTokens:   500,
		temperature: 0.5,
		jsonObject:  true,
	})
	if err != nil {
		return nil, err
	}

	var categories map[string][]int
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &categories); err != nil {
		return nil, fmt.Errorf("parsing categorize response: %w", err)
	}

	result := make(map[string][]int, len(categories))
	for category, indexes := range categories {
		kept := make([]int, 0, len(indexes))
		for _, idx := range indexes {
			if idx >= 1 && idx <= len(emails) {
				kept = append(kept, idx)
			}
		}
		result[category] = kept
	}
	return result, nil
}

type completionRequest struct {
	system      string
	user        string
	maxTokens   int64
	temperature float64
	jsonObject  bool
}

func (c *Client) complete(ctx context.Context, req completionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.system),
			openai.UserMessage(req.user),
		},
		MaxTokens:   openai.Int(req.maxTokens),
		Temperature: openai.Float(req.temperature),
	}
	if req.jsonObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8.
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
