package service

import (
	"context"
	"errors"
	"sync"

	"tripplanner/internal/ai"
	"tripplanner/internal/maps"
	"tripplanner/internal/tools"
)

// step produces the next model turn.
type step func(ctx context.Context) (*ai.Turn, error)

func reply(text string) step {
	return func(context.Context) (*ai.Turn, error) { return &ai.Turn{Text: text}, nil }
}

func callTools(calls ...ai.ToolCall) step {
	return func(context.Context) (*ai.Turn, error) { return &ai.Turn{ToolCalls: calls}, nil }
}

func findPlaces(location, category, query string) ai.ToolCall {
	args := map[string]any{"location": location, "category": category}
	if query != "" {
		args["query"] = query
	}
	return ai.ToolCall{Name: tools.FindPlacesName, Args: args}
}

type scriptedConversation struct {
	mu      sync.Mutex
	steps   []step
	repeat  step
	prompts []string
	results [][]ai.ToolResult
}

func (c *scriptedConversation) next(ctx context.Context) (*ai.Turn, error) {
	c.mu.Lock()
	if len(c.steps) == 0 {
		c.mu.Unlock()
		if c.repeat != nil {
			return c.repeat(ctx)
		}
		return nil, errors.New("script exhausted")
	}
	s := c.steps[0]
	c.steps = c.steps[1:]
	c.mu.Unlock()
	return s(ctx)
}

func (c *scriptedConversation) Send(ctx context.Context, prompt string) (*ai.Turn, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	return c.next(ctx)
}

func (c *scriptedConversation) SendToolResults(ctx context.Context, results []ai.ToolResult) (*ai.Turn, error) {
	c.mu.Lock()
	c.results = append(c.results, results)
	c.mu.Unlock()
	return c.next(ctx)
}

type fakeProvider struct {
	conv       *scriptedConversation
	specs      []ai.ToolSpec
	started    int
	json       string
	jsonErr    error
	jsonPrompt string
}

func (f *fakeProvider) StartConversation(specs []ai.ToolSpec) ai.Conversation {
	f.started++
	f.specs = specs
	return f.conv
}

func (f *fakeProvider) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.jsonPrompt = prompt
	return f.json, f.jsonErr
}

// catalogResolver answers lookups from a fixed per-category catalog.
type catalogResolver struct {
	mu      sync.Mutex
	catalog map[maps.Category][]maps.PlaceCandidate
	calls   int
	hook    func()
}

func (r *catalogResolver) Resolve(_ context.Context, _ string, category maps.Category, _ string) []maps.PlaceCandidate {
	r.mu.Lock()
	r.calls++
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.catalog[category]
}

func ptr(f float64) *float64 { return &f }
