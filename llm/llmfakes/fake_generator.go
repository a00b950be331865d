package llmfakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/inboxpilot/inboxpilot/llm"
)

var _ llm.Generator = (*FakeGenerator)(nil)

// FakeGenerator is a canned llm.Generator for tests.
type FakeGenerator struct {
	lock sync.Mutex

	ParsedCommand *llm.ParsedCommand
	ParseErr      error
	SummarizeErr  error
	DraftErr      error
	DigestErr     error

	ParseCalls     int
	SummarizeCalls int
	DraftCalls     int
	DigestCalls    int
}

func (g *FakeGenerator) Summarize(_ context.Context, email llm.EmailContext) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.SummarizeCalls++
	if g.SummarizeErr != nil {
		return "", g.SummarizeErr
	}
	return fmt.Sprintf("summary of %q", email.Subject), nil
}

func (g *FakeGenerator) DraftReply(_ context.Context, email llm.EmailContext) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.DraftCalls++
	if g.DraftErr != nil {
		return "", g.DraftErr
	}
	return fmt.Sprintf("drafted reply to %q", email.Subject), nil
}

func (g *FakeGenerator) ParseCommand(_ context.Context, _ string) (*llm.ParsedCommand, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.ParseCalls++
	if g.ParseErr != nil {
		return nil, g.ParseErr
	}
	if g.ParsedCommand == nil {
		return &llm.ParsedCommand{Action: "unknown", Parameters: map[string]any{}}, nil
	}
	return g.ParsedCommand, nil
}

func (g *FakeGenerator) DailyDigest(_ context.Context, emails []llm.EmailContext) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.DigestCalls++
	if g.DigestErr != nil {
		return "", g.DigestErr
	}
	return fmt.Sprintf("digest of %d emails", len(emails)), nil
}

func (g *FakeGenerator) Categorize(_ context.Context, emails []llm.EmailContext) (map[string][]int, error) {
	indexes := make([]int, len(emails))
	for i := range emails {
		indexes[i] = i + 1
	}
	return map[string][]int{"Other": indexes}, nil
}
