// Package llm wraps the hosted text-generation backend used for email
// summaries, drafted replies and natural-language command parsing.
package llm

import "context"

// EmailContext is the slice of a message handed to the model.
type EmailContext struct {
	Sender  string
	Subject string
	Body    string
}

// ParsedCommand is the model's structured reading of a free-text user
// command. It is untrusted output; callers validate the action and
// parameter shapes before acting on it.
type ParsedCommand struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// Generator is the text-generation contract. Implementations return an
// error on any upstream failure; callers decide whether that is fatal
// (single operations) or skippable (batch entries, intent parsing).
type Generator interface {
	// Summarize produces a 2-3 sentence summary of one email.
	Summarize(ctx context.Context, email EmailContext) (string, error)

	// DraftReply produces a complete, professional reply to one email.
	DraftReply(ctx context.Context, email EmailContext) (string, error)

	// ParseCommand classifies a free-text command into an action plus
	// parameters. Malformed model output is returned as an error.
	ParseCommand(ctx context.Context, command string) (*ParsedCommand, error)

	// DailyDigest summarises a set of emails into a single digest with
	// suggested follow-ups.
	DailyDigest(ctx context.Context, emails []EmailContext) (string, error)

	// Categorize groups emails by label, returning 1-based indexes into
	// the input slice per category. Out-of-range indexes from the model
	// are dropped.
	Categorize(ctx context.Context, emails []EmailContext) (map[string][]int, error)
}
