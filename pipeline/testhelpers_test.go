package pipeline

import (
	"context"
	"sync"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/provider"
	"github.com/casualjim/tickertape/search"
)

// Fake Completer

type completion struct {
	text string
	err  error
}

type fakeCompleter struct {
	mu        sync.Mutex
	responses []completion
	calls     []provider.CompletionParams
	block     bool // wait for ctx to finish instead of answering
}

func (f *fakeCompleter) Complete(ctx context.Context, params provider.CompletionParams) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	block := f.block
	var next completion
	if len(f.responses) > 0 {
		next = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return next.text, next.err
}

func (f *fakeCompleter) Calls() []provider.CompletionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.CompletionParams(nil), f.calls...)
}

// Fake Searcher

type fakeSearcher struct {
	mu      sync.Mutex
	body    string
	err     error
	queries []string
	opts    []search.Options
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts search.Options) (search.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if f.err != nil {
		return search.Result{}, f.err
	}
	return search.Decode([]byte(f.body))
}

// Recording Publisher

type recorder struct {
	mu     sync.Mutex
	events []events.LogEvent
}

func (r *recorder) Publish(_ context.Context, e events.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []events.LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.LogEvent(nil), r.events...)
}

func (r *recorder) Messages() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Message)
	}
	return out
}

func (r *recorder) Kinds() []events.Kind {
	var out []events.Kind
	for _, e := range r.Events() {
		out = append(out, e.Kind)
	}
	return out
}

const (
	appleInfoJSON = `{"company":"Apple Inc.","ticker":"AAPL","searchQuery":"Apple Inc. AAPL recent financial performance risks"}`
	twoResults    = `{"query":"Apple","results":[{"title":"Q4","url":"https://example.com/q4","content":"Revenue up","score":0.9},{"title":"Risks","url":"https://example.com/risks","content":"China","score":0.7}]}`
)
