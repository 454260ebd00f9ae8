// Package mock provides a test double for the llm.Client interface.
//
// Use Client in unit tests to verify that the agent core sends correct
// GenerateRequests and to feed controlled replies without a live LLM backend.
//
// Example:
//
//	c := &mock.Client{Replies: []string{"Hello!"}}
//	text, err := c.Generate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/loquax-ai/loquax/pkg/llm"
)

// Call records a single invocation of Generate.
type Call struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the GenerateRequest passed to Generate.
	Req llm.GenerateRequest
}

// Client is a mock implementation of llm.Client.
//
// Replies are consumed in order, one per Generate call; when they run out the
// last reply is repeated. Set Err to make every call fail instead. For full
// control, set GenerateFunc, which overrides everything else.
type Client struct {
	mu sync.Mutex

	// Replies is the scripted sequence of generated texts.
	Replies []string

	// Err, if non-nil, is returned by every Generate call.
	Err error

	// GenerateFunc, if non-nil, handles calls entirely. Calls are still
	// recorded.
	GenerateFunc func(ctx context.Context, req llm.GenerateRequest) (string, error)

	// Calls records every Generate invocation in order.
	Calls []Call

	next int
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, Call{Ctx: ctx, Req: req})

	if c.GenerateFunc != nil {
		return c.GenerateFunc(ctx, req)
	}
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Replies) == 0 {
		return "", nil
	}

	reply := c.Replies[min(c.next, len(c.Replies)-1)]
	c.next++
	return reply, nil
}

// CallCount returns the number of Generate invocations so far.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// LastCall returns the most recent recorded call, or a zero Call if none.
func (c *Client) LastCall() Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Calls) == 0 {
		return Call{}
	}
	return c.Calls[len(c.Calls)-1]
}
