package chatbot

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/inboxpilot/inboxpilot/llm"
)

// Keyword rules for the fallback tier. Matching is on word boundaries
// over the lowercased message, so "reading" does not trigger "read".
var (
	readVerbPattern   = regexp.MustCompile(`\b(read|show|list|get|fetch|display|see)\b`)
	mailNounPattern   = regexp.MustCompile(`\b(email|emails|mail|mails|message|messages|inbox)\b`)
	replyVerbPattern  = regexp.MustCompile(`\b(reply|respond|answer|generate)\b`)
	deleteVerbPattern = regexp.MustCompile(`\b(delete|remove|trash)\b`)
	greetingPattern   = regexp.MustCompile(`\b(hello|hi|greetings?)\b`)
	helpPattern       = regexp.MustCompile(`\b(help|capabilities)\b`)
	numberPattern     = regexp.MustCompile(`\d+`)
)

// Resolver turns a free-text message into an Intent. It asks the
// language model first and falls back to keyword rules when the model
// is unavailable, returns malformed output, or cannot classify the
// message.
type Resolver struct {
	gen llm.Generator
}

func NewResolver(gen llm.Generator) *Resolver {
	return &Resolver{gen: gen}
}

// Resolve never fails: every message maps to some intent, with
// ActionUnknown as the floor.
func (r *Resolver) Resolve(ctx context.Context, message string) Intent {
	if intent, ok := r.resolveWithModel(ctx, message); ok {
		return intent
	}
	return resolveWithKeywords(message)
}

func (r *Resolver) resolveWithModel(ctx context.Context, message string) (Intent, bool) {
	if r.gen == nil {
		return Intent{}, false
	}
	parsed, err := r.gen.ParseCommand(ctx, message)
	if err != nil {
		log.Debug().Err(err).Msg("command parse failed, using keyword fallback")
		return Intent{}, false
	}
	action := Action(parsed.Action)
	if !modelActions[action] || action == ActionUnknown {
		return Intent{}, false
	}
	params := Params(parsed.Parameters)
	if params == nil {
		params = Params{}
	}
	return Intent{Action: action, Params: params}, true
}

func resolveWithKeywords(message string) Intent {
	text := strings.ToLower(message)

	switch {
	case readVerbPattern.MatchString(text) && mailNounPattern.MatchString(text):
		params := Params{}
		if n, ok := firstNumber(text); ok {
			params["max_results"] = n
		}
		return Intent{Action: ActionRead, Params: params}
	case replyVerbPattern.MatchString(text) && mailNounPattern.MatchString(text):
		// No number extraction here: without a model the reply rule
		// always targets the most recent batch.
		return Intent{Action: ActionReply, Params: Params{}}
	case deleteVerbPattern.MatchString(text) && mailNounPattern.MatchString(text):
		params := Params{}
		if n, ok := firstNumber(text); ok {
			params["email_number"] = n
		}
		return Intent{Action: ActionDelete, Params: params}
	case greetingPattern.MatchString(text):
		return Intent{Action: ActionGreeting, Params: Params{}}
	case helpPattern.MatchString(text):
		return Intent{Action: ActionHelp, Params: Params{}}
	default:
		return Intent{Action: ActionUnknown, Params: Params{}}
	}
}

// firstNumber returns the leftmost run of digits in the message.
func firstNumber(text string) (int, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
