// Package agentstest provides an in-memory LLM for agent and orchestrator tests.
package agentstest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"query-orchestrator/internal/llm"
)

// Reply is one scripted LLM answer.
type Reply struct {
	Text string
	Err  error
}

// LLM answers requests from a script. A request is matched against Rules by
// substring of its system prompt first; unmatched requests consume Default in
// order.
type LLM struct {
	mu       sync.Mutex
	Rules    map[string]Reply
	Default  []Reply
	requests []llm.Request
}

var ErrScriptExhausted = errors.New("agentstest: no scripted reply")

func (f *LLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply, ok := f.match(req)
	if !ok {
		if len(f.Default) == 0 {
			return nil, ErrScriptExhausted
		}
		reply = f.Default[0]
		f.Default = f.Default[1:]
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.Response{Text: reply.Text, Attempts: 1}, nil
}

func (f *LLM) match(req llm.Request) (Reply, bool) {
	for key, reply := range f.Rules {
		if strings.Contains(req.SystemPrompt, key) {
			return reply, true
		}
	}
	return Reply{}, false
}

// Requests returns the requests seen so far.
func (f *LLM) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Failing returns an LLM whose every call fails with err.
func Failing(err error) *LLM {
	return &LLM{Rules: map[string]Reply{"": {Err: err}}}
}
