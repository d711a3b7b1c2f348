package executor

import (
	"context"
	"testing"

	"github.com/casualjim/tickertape/internal/hub"
	"github.com/casualjim/tickertape/pipeline"
	"github.com/casualjim/tickertape/provider"
	"github.com/casualjim/tickertape/search"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock Completer

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, params provider.CompletionParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

// Mock Searcher

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, opts search.Options) (search.Result, error) {
	args := m.Called(ctx, query, opts)
	res, _ := args.Get(0).(search.Result)
	return res, args.Error(1)
}

const (
	appleInfoJSON = `{"company":"Apple Inc.","ticker":"AAPL","searchQuery":"Apple Inc. AAPL financials"}`
	resultsJSON   = `{"results":[{"title":"Q4","url":"https://example.com/q4","content":"Revenue","score":0.9}]}`
)

func decoded(t *testing.T, body string) search.Result {
	t.Helper()
	res, err := search.Decode([]byte(body))
	require.NoError(t, err)
	return res
}

func messages(h *hub.Hub) []string {
	var out []string
	for _, e := range h.Recent() {
		out = append(out, e.Message)
	}
	return out
}

type fixture struct {
	llm      *mockCompleter
	searcher *mockSearcher
	hub      *hub.Hub
	pipeline *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		llm:      &mockCompleter{},
		searcher: &mockSearcher{},
		hub:      hub.New(),
	}
	p, err := pipeline.New(f.llm, f.searcher, f.hub)
	require.NoError(t, err)
	f.pipeline = p
	t.Cleanup(func() {
		f.llm.AssertExpectations(t)
		f.searcher.AssertExpectations(t)
	})
	return f
}

func (f *fixture) expectSuccess(t *testing.T) {
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(p provider.CompletionParams) bool {
		return p.ResponseSchema != nil
	})).Return(appleInfoJSON, nil).Once()
	f.searcher.On("Search", mock.Anything, "Apple Inc. AAPL financials", mock.Anything).
		Return(decoded(t, resultsJSON), nil).Once()
	f.llm.On("Complete", mock.Anything, mock.MatchedBy(func(p provider.CompletionParams) bool {
		return p.ResponseSchema == nil
	})).Return("Solid quarter.", nil).Once()
}
