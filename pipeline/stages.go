package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/provider"
	"github.com/casualjim/tickertape/search"
	"github.com/google/uuid"
)

// Extract identifies the company and search query for question.
func (p *Pipeline) Extract(ctx context.Context, question string) (CompanyInfo, error) {
	p.pub.Publish(ctx, events.Step("Identifying company and structuring query..."))

	res := p.extract(ctx, question)
	if !res.OK() {
		p.pub.Publish(ctx, events.Step("Error parsing company info: "+res.Err.Error()))
		return CompanyInfo{}, p.fail(ctx, StageExtract, res.Err)
	}

	p.pub.Publish(ctx, events.Infof("Analyzing %s (%s)", res.Info.Company, res.Info.Ticker))
	return res.Info, nil
}

func (p *Pipeline) extract(ctx context.Context, question string) CompanyInfoResult {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	msgs, err := extractionMessages(question)
	if err != nil {
		return CompanyInfoResult{Err: err}
	}

	raw, err := p.llm.Complete(ctx, provider.CompletionParams{
		RunID:          runID(ctx),
		Messages:       msgs,
		ResponseSchema: companyInfoOutput,
	})
	if err != nil {
		return CompanyInfoResult{Err: p.timeoutErr(ctx, err)}
	}
	return ParseCompanyInfo(raw)
}

// Search gathers web evidence for the company described by info.
func (p *Pipeline) Search(ctx context.Context, info CompanyInfo) (Evidence, error) {
	p.pub.Publish(ctx, events.Step("Gathering financial data from web sources..."))
	p.pub.Publish(ctx, events.Info("Searching for: "+info.SearchQuery))

	res, err := p.search(ctx, info.SearchQuery)
	if err != nil {
		p.pub.Publish(ctx, events.Step("Error fetching financial data: "+err.Error()))
		return Evidence{}, p.fail(ctx, StageSearch, err)
	}

	urls := res.URLs()
	var b strings.Builder
	b.WriteString("Searching the following sources:")
	for _, u := range urls {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	p.pub.Publish(ctx, events.Info(b.String()))
	p.pub.Publish(ctx, events.Infof("Found %d relevant sources", len(urls)))

	return Evidence{Sources: urls, Raw: string(res.Raw)}, nil
}

func (p *Pipeline) search(ctx context.Context, query string) (search.Result, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	res, err := p.searcher.Search(ctx, query, search.Options{
		Depth:      p.searchDepth,
		MaxResults: p.maxResults,
	})
	if err != nil {
		return search.Result{}, p.timeoutErr(ctx, err)
	}
	return res, nil
}

// Generate writes the analysis answering question from the gathered evidence.
func (p *Pipeline) Generate(ctx context.Context, question string, info CompanyInfo, evidence Evidence) (string, error) {
	p.pub.Publish(ctx, events.Step("Generating comprehensive financial analysis..."))

	text, err := p.generate(ctx, question, info, evidence)
	if err != nil {
		p.pub.Publish(ctx, events.Step("Error generating analysis: "+err.Error()))
		return "", p.fail(ctx, StageGenerate, err)
	}

	p.pub.Publish(ctx, events.Result("Analysis complete"))
	return fmt.Sprintf("# %s (%s)\n\n%s", info.Company, info.Ticker, text), nil
}

func (p *Pipeline) generate(ctx context.Context, question string, info CompanyInfo, evidence Evidence) (string, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	msgs, err := analysisMessages(question, info, evidence)
	if err != nil {
		return "", err
	}

	text, err := p.llm.Complete(ctx, provider.CompletionParams{
		RunID:    runID(ctx),
		Messages: msgs,
	})
	if err != nil {
		return "", p.timeoutErr(ctx, err)
	}
	return text, nil
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.stageTimeout)
}

// timeoutErr makes sure a stage that ran out of time reports
// context.DeadlineExceeded, whatever the collaborator returned.
func (p *Pipeline) timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", p.stageTimeout, errors.Join(context.DeadlineExceeded, err))
	}
	return err
}

func (p *Pipeline) fail(ctx context.Context, stage Stage, err error) error {
	p.logger.WarnContext(ctx, "stage failed", slogx.Stage(string(stage)), slogx.Error(err))
	return NewStageError(stage, err)
}

func runID(ctx context.Context) uuid.UUID {
	id, _ := RunIDFrom(ctx)
	return id
}
