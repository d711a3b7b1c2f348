package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/provider"
	"github.com/casualjim/tickertape/search"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, llm *fakeCompleter, searcher *fakeSearcher) (*Pipeline, *recorder) {
	t.Helper()
	rec := &recorder{}
	p, err := New(llm, searcher, rec)
	require.NoError(t, err)
	return p, rec
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "a completer is required")
	assert.ErrorContains(t, err, "a searcher is required")
	assert.ErrorContains(t, err, "a publisher is required")
}

func TestNew_Options(t *testing.T) {
	p, err := New(&fakeCompleter{}, &fakeSearcher{}, &recorder{},
		StageTimeout(time.Second),
		SearchDepth(search.DepthBasic),
		MaxResults(3),
	)
	require.NoError(t, err)
	assert.Equal(t, time.Second, p.stageTimeout)
	assert.Equal(t, search.DepthBasic, p.searchDepth)
	assert.Equal(t, 3, p.maxResults)
}

func TestRun_Success(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{
		{text: appleInfoJSON},
		{text: "Apple is doing well, with risks."},
	}}
	searcher := &fakeSearcher{body: twoResults}
	p, rec := newTestPipeline(t, llm, searcher)

	out, err := p.Run(context.Background(), "How is Apple doing?")
	require.NoError(t, err)
	assert.Equal(t, "# Apple Inc. (AAPL)\n\nApple is doing well, with risks.", out)

	assert.Equal(t, []string{
		"Identifying company and structuring query...",
		"Analyzing Apple Inc. (AAPL)",
		"Gathering financial data from web sources...",
		"Searching for: Apple Inc. AAPL recent financial performance risks",
		"Searching the following sources:\n- https://example.com/q4\n- https://example.com/risks",
		"Found 2 relevant sources",
		"Generating comprehensive financial analysis...",
		"Analysis complete",
	}, rec.Messages())
	assert.Equal(t, []events.Kind{
		events.KindStep, events.KindInfo,
		events.KindStep, events.KindInfo, events.KindInfo, events.KindInfo,
		events.KindStep, events.KindResult,
	}, rec.Kinds())

	assert.Equal(t, []string{"Apple Inc. AAPL recent financial performance risks"}, searcher.queries)
	assert.Equal(t, search.Options{Depth: search.DepthAdvanced, MaxResults: 5}, searcher.opts[0])

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.NotNil(t, calls[0].ResponseSchema)
	assert.Equal(t, "company_info", calls[0].ResponseSchema.Name)
	assert.Contains(t, calls[0].Messages[1].Content, "Question: How is Apple doing?")
	assert.Nil(t, calls[1].ResponseSchema)
	assert.Equal(t, provider.RoleSystem, calls[1].Messages[0].Role)
	analysis := calls[1].Messages[1].Content
	assert.Contains(t, analysis, "Company: Apple Inc.")
	assert.Contains(t, analysis, "Ticker: AAPL")
	assert.Contains(t, analysis, "Search Results: "+twoResults)

	assert.NotEqual(t, uuid.Nil, calls[0].RunID)
	assert.Equal(t, calls[0].RunID, calls[1].RunID)
}

func TestRun_KeepsRunID(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{{text: appleInfoJSON}, {text: "ok"}}}
	p, _ := newTestPipeline(t, llm, &fakeSearcher{body: twoResults})

	id := uuid.New()
	_, err := p.Run(WithRunID(context.Background(), id), "How is Apple doing?")
	require.NoError(t, err)
	for _, c := range llm.Calls() {
		assert.Equal(t, id, c.RunID)
	}
}

func TestRun_ExtractionFailure(t *testing.T) {
	tests := []struct {
		name string
		resp completion
		want string
	}{
		{"llm error", completion{err: errors.New("rate limited")}, "rate limited"},
		{"not json", completion{text: "Apple is a company"}, "response is not valid json"},
		{"wrong shape", completion{text: `{"company":"Apple Inc.","ticker":"AAPL"}`}, "does not match the company info schema"},
		{"empty fields", completion{text: `{"company":"","ticker":"AAPL","searchQuery":"x"}`}, "empty fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{responses: []completion{tt.resp}}
			searcher := &fakeSearcher{body: twoResults}
			p, rec := newTestPipeline(t, llm, searcher)

			out, err := p.Run(context.Background(), "How is Apple doing?")
			assert.Empty(t, out)
			require.ErrorIs(t, err, ErrExtraction)
			assert.NotErrorIs(t, err, ErrSearch)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageExtract, stageErr.Stage)
			assert.Contains(t, err.Error(), "failed to parse company info: ")
			assert.Contains(t, err.Error(), tt.want)

			msgs := rec.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, "Identifying company and structuring query...", msgs[0])
			assert.True(t, strings.HasPrefix(msgs[1], "Error parsing company info: "), msgs[1])
			assert.Contains(t, msgs[1], tt.want)

			assert.Empty(t, searcher.queries)
			assert.Len(t, llm.Calls(), 1)
		})
	}
}

func TestRun_SearchFailure_MalformedResults(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{{text: appleInfoJSON}}}
	p, rec := newTestPipeline(t, llm, &fakeSearcher{body: `{"results":"not-a-list"}`})

	out, err := p.Run(context.Background(), "How is Apple doing?")
	assert.Empty(t, out)
	require.ErrorIs(t, err, ErrSearch)

	var shapeErr *search.ShapeError
	assert.ErrorAs(t, err, &shapeErr)

	msgs := rec.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "Gathering financial data from web sources...", msgs[2])
	assert.Equal(t, "Searching for: Apple Inc. AAPL recent financial performance risks", msgs[3])
	assert.True(t, strings.HasPrefix(msgs[4], "Error fetching financial data: "), msgs[4])
	assert.NotContains(t, rec.Kinds(), events.KindResult)
	assert.Len(t, llm.Calls(), 1)
}

func TestRun_SearchFailure_CollaboratorError(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{{text: appleInfoJSON}}}
	boom := errors.New("connection refused")
	p, rec := newTestPipeline(t, llm, &fakeSearcher{err: boom})

	_, err := p.Run(context.Background(), "How is Apple doing?")
	require.ErrorIs(t, err, ErrSearch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "failed to fetch financial data: connection refused", err.Error())
	assert.Equal(t, "Error fetching financial data: connection refused", rec.Messages()[len(rec.Messages())-1])
}

func TestRun_GenerationFailure(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{
		{text: appleInfoJSON},
		{err: errors.New("context length exceeded")},
	}}
	p, rec := newTestPipeline(t, llm, &fakeSearcher{body: twoResults})

	out, err := p.Run(context.Background(), "How is Apple doing?")
	assert.Empty(t, out)
	require.ErrorIs(t, err, ErrGeneration)

	msgs := rec.Messages()
	assert.Equal(t, "Generating comprehensive financial analysis...", msgs[len(msgs)-2])
	assert.Equal(t, "Error generating analysis: context length exceeded", msgs[len(msgs)-1])
	assert.NotContains(t, rec.Kinds(), events.KindResult)
}

func TestRun_NonFinancialQuestionFlowsThrough(t *testing.T) {
	llm := &fakeCompleter{responses: []completion{
		{text: "```json\n" + `{"company":"Apple Inc.","ticker":"AAPL","searchQuery":"Apple MacBook laptop sales"}` + "\n```"},
		{text: "Consider the MacBook Air."},
	}}
	p, rec := newTestPipeline(t, llm, &fakeSearcher{body: `{"results":[]}`})

	out, err := p.Run(context.Background(), "recommend a laptop")
	require.NoError(t, err)
	assert.Equal(t, "# Apple Inc. (AAPL)\n\nConsider the MacBook Air.", out)
	assert.Contains(t, rec.Messages(), "Found 0 relevant sources")
	assert.Equal(t, events.KindResult, rec.Kinds()[len(rec.Kinds())-1])
}

func TestRun_StageTimeout(t *testing.T) {
	llm := &fakeCompleter{block: true}
	rec := &recorder{}
	p, err := New(llm, &fakeSearcher{body: twoResults}, rec, StageTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Run(context.Background(), "How is Apple doing?")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_GenerationTimeout(t *testing.T) {
	rec := &recorder{}
	slow := &slowSecondCall{first: appleInfoJSON}
	p, err := New(slow, &fakeSearcher{body: twoResults}, rec, StageTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "How is Apple doing?")
	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, rec.Kinds(), events.KindResult)
}

type slowSecondCall struct {
	first string
	calls int
}

func (s *slowSecondCall) Complete(ctx context.Context, _ provider.CompletionParams) (string, error) {
	s.calls++
	if s.calls == 1 {
		return s.first, nil
	}
	<-ctx.Done()
	// some clients report their own error rather than the context's
	return "", errors.New("request aborted")
}
