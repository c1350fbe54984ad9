package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

var (
	ErrDisabled        = errors.New("chat model not configured")
	ErrEmptyCompletion = errors.New("empty completion")
)

// Completer runs a system+user prompt through the chat model with a bounded
// per-call timeout. A Completer built without a model is disabled and every
// call fails with ErrDisabled, which callers resolve through their fallbacks.
type Completer struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewCompleter compiles the prompt chain. chatModel may be nil.
func NewCompleter(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*Completer, error) {
	c := &Completer{timeout: timeout}
	if chatModel == nil {
		return c, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	c.chain = runnable
	return c, nil
}

// Enabled reports whether a chat model backs the completer.
func (c *Completer) Enabled() bool {
	return c != nil && c.chain != nil
}

// Complete returns the trimmed model reply. The call returns once the timeout
// elapses even if the underlying client ignores cancellation.
func (c *Completer) Complete(ctx context.Context, system, query string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type result struct {
		msg *schema.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := c.chain.Invoke(ctx, map[string]any{
			"system": system,
			"query":  query,
		})
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("failed to run completion chain: %w", res.err)
		}
		if res.msg == nil || strings.TrimSpace(res.msg.Content) == "" {
			return "", ErrEmptyCompletion
		}
		return strings.TrimSpace(res.msg.Content), nil
	}
}
