package gmailfakes

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/gmail"
)

var _ gmail.Mailbox = (*FakeMailbox)(nil)

// FakeMailbox is an in-memory gmail.Mailbox for tests. Messages are
// listed in the order they were added (treat index 0 as most recent).
// Individual fetches can be made to fail via FailGet.
type FakeMailbox struct {
	lock     sync.Mutex
	messages []*gmail.Message
	FailGet  map[string]error // message ID -> error returned by GetMessage/GetMetadata
	ListErr  error

	Deleted   []string
	SentIDs   []string
	SentTexts []string
	Calls     []string
}

func NewFakeMailbox(messages ...*gmail.Message) *FakeMailbox {
	return &FakeMailbox{
		messages: messages,
		FailGet:  make(map[string]error),
	}
}

func (m *FakeMailbox) record(call string) {
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many gateway operations were performed.
func (m *FakeMailbox) CallCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.Calls)
}

func (m *FakeMailbox) ListMessages(_ context.Context, query string, maxResults int) ([]gmail.MessageRef, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.record("list")

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	refs := make([]gmail.MessageRef, 0, maxResults)
	for _, msg := range m.messages {
		if query != "" && !matchesQuery(msg, query) {
			continue
		}
		refs = append(refs, gmail.MessageRef{ID: msg.ID, ThreadID: msg.ThreadID})
		if len(refs) == maxResults {
			break
		}
	}
	return refs, nil
}

func (m *FakeMailbox) GetMessage(_ context.Context, id string) (*gmail.Message, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.record("get")

	return m.find(id)
}

func (m *FakeMailbox) GetMetadata(_ context.Context, id string, _ ...string) (*gmail.Message, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.record("metadata")

	msg, err := m.find(id)
	if err != nil {
		return nil, err
	}
	meta := *msg
	meta.Body = ""
	return &meta, nil
}

func (m *FakeMailbox) SendReply(_ context.Context, originalID, replyText string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.record("send")

	if _, err := m.find(originalID); err != nil {
		return "", err
	}
	m.SentIDs = append(m.SentIDs, originalID)
	m.SentTexts = append(m.SentTexts, replyText)
	return "sent-" + originalID, nil
}

func (m *FakeMailbox) DeleteMessage(_ context.Context, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.record("delete")

	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			m.Deleted = append(m.Deleted, id)
			return nil
		}
	}
	return errors.New("message not found")
}

func (m *FakeMailbox) find(id string) (*gmail.Message, error) {
	if err, ok := m.FailGet[id]; ok {
		return nil, err
	}
	for _, msg := range m.messages {
		if msg.ID == id {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, errors.New("message not found")
}

// matchesQuery supports the two search forms the dispatcher issues:
// from:<sender> and subject:"<keyword>".
func matchesQuery(msg *gmail.Message, query string) bool {
	switch {
	case strings.HasPrefix(query, "from:"):
		needle := strings.TrimPrefix(query, "from:")
		return contains(msg.SenderEmail, needle) || contains(msg.Sender, needle)
	case strings.HasPrefix(query, "subject:"):
		needle := trimQuotes(strings.TrimPrefix(query, "subject:"))
		return contains(msg.Subject, needle)
	default:
		return contains(msg.Subject, query) || contains(msg.Body, query) ||
			contains(msg.Sender, query) || contains(msg.SenderEmail, query)
	}
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FakeOpener hands out a fixed mailbox regardless of credential.
type FakeOpener struct {
	Mailbox *FakeMailbox
}

func (o FakeOpener) Open(_ context.Context, _ *auth.Credential) gmail.Mailbox {
	return o.Mailbox
}
