package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/iter"

	"github.com/pario-ai/typedchat/pkg/models"
	"github.com/pario-ai/typedchat/pkg/schema"
)

// Chat sends prompt as a user message and decodes the answer into T.
func Chat[T any](ctx context.Context, c *Client, prompt string) (T, error) {
	return ChatWithMessages[T](ctx, c, []models.ChatMessage{models.UserMessage(prompt)})
}

// ChatWithSystemPrompt is Chat with a leading system message.
func ChatWithSystemPrompt[T any](ctx context.Context, c *Client, system, prompt string) (T, error) {
	return ChatWithMessages[T](ctx, c, []models.ChatMessage{
		models.SystemMessage(system),
		models.UserMessage(prompt),
	})
}

// ChatWithMessages requests a strict json_schema answer derived from T and
// decodes it.
func ChatWithMessages[T any](ctx context.Context, c *Client, messages []models.ChatMessage) (T, error) {
	var zero T
	format, err := schema.For[T]()
	if err != nil {
		return zero, err
	}

	answer, err := c.ChatRaw(ctx, messages, &format)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal([]byte(trimCodeFence(answer)), &out); err != nil {
		return zero, &SchemaMismatchError{Type: schema.NameOf[T](), Answer: answer, Err: err}
	}
	return out, nil
}

// ChatAll runs ChatWithSystemPrompt for every prompt with at most
// Options.Concurrency requests in flight. Results keep the order of prompts.
// The first error cancels the remaining requests and is returned alone.
func ChatAll[T any](ctx context.Context, c *Client, system string, prompts []string) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	mapper := iter.Mapper[string, T]{MaxGoroutines: c.concurrency}
	out, err := mapper.MapErr(prompts, func(prompt *string) (T, error) {
		v, err := ChatWithSystemPrompt[T](ctx, c, system, *prompt)
		if err != nil {
			once.Do(func() {
				firstErr = err
				cancel()
			})
		}
		return v, err
	})
	if err != nil {
		return nil, firstErr
	}
	return out, nil
}

// trimCodeFence strips a Markdown code fence wrapped around a JSON answer.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the info string, e.g. "json".
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
