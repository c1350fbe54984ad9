// Package aitest provides an in-memory chat model for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RespondFunc produces the reply for one Generate call.
type RespondFunc func(ctx context.Context, call int, input []*schema.Message) (string, error)

// ChatModel implements model.ChatModel with a scripted RespondFunc.
type ChatModel struct {
	respond RespondFunc

	mu      sync.Mutex
	calls   int
	prompts []string
}

var _ model.ChatModel = (*ChatModel)(nil)

// New returns a ChatModel driven by fn.
func New(fn RespondFunc) *ChatModel {
	return &ChatModel{respond: fn}
}

// Replies answers with the given texts in order, repeating the last one.
func Replies(texts ...string) *ChatModel {
	return New(func(_ context.Context, call int, _ []*schema.Message) (string, error) {
		if len(texts) == 0 {
			return "", nil
		}
		if call >= len(texts) {
			return texts[len(texts)-1], nil
		}
		return texts[call], nil
	})
}

// Failing returns err on every call.
func Failing(err error) *ChatModel {
	return New(func(context.Context, int, []*schema.Message) (string, error) {
		return "", err
	})
}

// Hanging blocks until the call context is done.
func Hanging() *ChatModel {
	return New(func(ctx context.Context, _ int, _ []*schema.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	var b strings.Builder
	for _, msg := range input {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	m.mu.Lock()
	call := m.calls
	m.calls++
	m.prompts = append(m.prompts, b.String())
	m.mu.Unlock()

	text, err := m.respond(ctx, call, input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *ChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

// Calls returns the number of Generate calls so far.
func (m *ChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the concatenated messages of the latest call.
func (m *ChatModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
