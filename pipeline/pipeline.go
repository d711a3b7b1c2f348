package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/uuidx"
	"github.com/casualjim/tickertape/provider"
	"github.com/casualjim/tickertape/search"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// DefaultStageTimeout bounds each stage unless StageTimeout says otherwise.
const DefaultStageTimeout = 60 * time.Second

// Publisher receives the progress events of a run.
type Publisher interface {
	Publish(context.Context, events.LogEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(context.Context, events.LogEvent)

func (f PublisherFunc) Publish(ctx context.Context, e events.LogEvent) {
	f(ctx, e)
}

var (
	// StageTimeout bounds every stage. Zero or negative disables the bound.
	StageTimeout = opts.ForName[Pipeline, time.Duration]("stageTimeout")
	// SearchDepth sets the depth of the evidence search.
	SearchDepth = opts.ForName[Pipeline, search.Depth]("searchDepth")
	// MaxResults caps the number of sources requested from the search.
	MaxResults = opts.ForName[Pipeline, int]("maxResults")
)

// Evidence is the search outcome carried into generation.
type Evidence struct {
	Sources []string `json:"sources"`
	Raw     string   `json:"raw"`
}

type Pipeline struct {
	llm      provider.Completer
	searcher search.Searcher
	pub      Publisher

	stageTimeout time.Duration
	searchDepth  search.Depth
	maxResults   int

	logger *slog.Logger
}

// New creates a Pipeline. All three collaborators are required.
func New(llm provider.Completer, searcher search.Searcher, pub Publisher, options ...opts.Option[Pipeline]) (*Pipeline, error) {
	p := &Pipeline{
		llm:          llm,
		searcher:     searcher,
		pub:          pub,
		stageTimeout: DefaultStageTimeout,
		searchDepth:  search.DepthAdvanced,
		maxResults:   search.DefaultMaxResults,
	}

	var errs []error
	if llm == nil {
		errs = append(errs, errors.New("pipeline: a completer is required"))
	}
	if searcher == nil {
		errs = append(errs, errors.New("pipeline: a searcher is required"))
	}
	if pub == nil {
		errs = append(errs, errors.New("pipeline: a publisher is required"))
	}
	if err := opts.Apply(p, options); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	p.logger = slog.Default().With(slogx.LoggerName("tickertape.pipeline"))
	return p, nil
}

// Run executes all three stages for question and returns the analysis text.
// Any failure is a *StageError.
func (p *Pipeline) Run(ctx context.Context, question string) (string, error) {
	if _, ok := RunIDFrom(ctx); !ok {
		ctx = WithRunID(ctx, uuidx.New())
	}

	info, err := p.Extract(ctx, question)
	if err != nil {
		return "", err
	}

	evidence, err := p.Search(ctx, info)
	if err != nil {
		return "", err
	}

	return p.Generate(ctx, question, info, evidence)
}

type runIDKey struct{}

// WithRunID attaches the run identifier passed to the model with every request.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run identifier attached to ctx.
func RunIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey{}).(uuid.UUID)
	return id, ok
}
