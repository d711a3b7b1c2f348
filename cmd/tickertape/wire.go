package main

import (
	"fmt"

	"github.com/casualjim/tickertape/internal/config"
	"github.com/casualjim/tickertape/internal/hub"
	"github.com/casualjim/tickertape/pipeline"
	"github.com/casualjim/tickertape/provider/openai"
	"github.com/casualjim/tickertape/search"
	"github.com/casualjim/tickertape/search/tavily"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go/option"
)

func newHub(cfg config.Config) *hub.Hub {
	return hub.New(
		hub.Capacity(cfg.Hub.Capacity),
		hub.ObserverBuffer(cfg.Hub.ObserverBuffer),
	)
}

// newCompleter returns the registered provider for the configured model, so
// every pipeline in the process shares one API client.
func newCompleter(cfg config.Config) *openai.Provider {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
	if cfg.OpenAI.BaseURL != "" {
		reqOpts = append(reqOpts, openai.BaseURL(cfg.OpenAI.BaseURL))
	}
	return openai.Model(cfg.OpenAI.Model, reqOpts...).WithTemperature(cfg.OpenAI.Temperature)
}

func newPipeline(cfg config.Config, pub pipeline.Publisher) (*pipeline.Pipeline, error) {
	llm := newCompleter(cfg)

	var tavilyOpts []opts.Option[tavily.Client]
	if cfg.Tavily.BaseURL != "" {
		tavilyOpts = append(tavilyOpts, tavily.BaseURL(cfg.Tavily.BaseURL))
	}
	searcher, err := tavily.New(cfg.Tavily.APIKey, tavilyOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	return pipeline.New(llm, searcher, pub,
		pipeline.StageTimeout(cfg.Pipeline.StageTimeout),
		pipeline.SearchDepth(search.Depth(cfg.Pipeline.SearchDepth)),
		pipeline.MaxResults(cfg.Pipeline.MaxResults),
	)
}
