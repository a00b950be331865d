// Package chatbot resolves free-text user commands into intents and
// dispatches them against the user's mailbox.
package chatbot

import (
	"strconv"

	"github.com/inboxpilot/inboxpilot/internal/utils"
)

// Action is the closed set of things the assistant can do.
type Action string

const (
	ActionRead     Action = "read"
	ActionReply    Action = "reply"
	ActionDelete   Action = "delete"
	ActionGreeting Action = "greeting"
	ActionHelp     Action = "help"
	ActionUnknown  Action = "unknown"
)

// modelActions is what the model tier is allowed to return. Anything
// else is treated as a schema violation and falls through to the
// keyword tier.
var modelActions = map[Action]bool{
	ActionRead:    true,
	ActionReply:   true,
	ActionDelete:  true,
	ActionUnknown: true,
}

// Params is the parameter bag attached to an intent. Values come from
// untrusted model output, so access goes through typed accessors.
type Params map[string]any

// Int reads an integer parameter, tolerating the numeric and string
// forms JSON decoding produces.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// String reads a non-empty string parameter.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringSlice reads a list-of-strings parameter, tolerating the []any
// form JSON decoding produces. Non-string elements are dropped.
func (p Params) StringSlice(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		return utils.ToStringSlice(v)
	default:
		return nil
	}
}

// Intent is the resolved (action, parameters) pair for one chat message.
// It is constructed per message and discarded after dispatch.
type Intent struct {
	Action Action
	Params Params
}
