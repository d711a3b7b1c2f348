// Package search defines the web search contract used to gather evidence for
// an analysis, and the decoding of raw search responses into tagged results.
package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
)

// Depth controls how thorough a search is.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// DefaultMaxResults is the number of sources requested when Options leaves it unset.
const DefaultMaxResults = 5

// Options tune a single search.
type Options struct {
	Depth      Depth
	MaxResults int
}

// WithDefaults fills unset fields with advanced depth and DefaultMaxResults.
func (o Options) WithDefaults() Options {
	if o.Depth == "" {
		o.Depth = DepthAdvanced
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (Result, error)
}

// Hit is one source returned by a search.
type Hit struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// Result is a decoded search response. Raw holds the response body exactly as
// received and is what gets handed to the model as evidence.
type Result struct {
	Query string
	Hits  []Hit
	Raw   []byte
}

// URLs lists the source URLs in response order.
func (r Result) URLs() []string {
	urls := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		urls = append(urls, h.URL)
	}
	return urls
}

// ShapeError reports a response that doesn't have the expected structure.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid response format from search API: %s", e.Reason)
}

// Decode parses a search response body. The body must be a JSON object whose
// results field is an array; anything else yields a *ShapeError.
func Decode(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, &ShapeError{Reason: "body is not valid json"}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return Result{}, &ShapeError{Reason: "body is not a json object"}
	}

	results := doc.Get("results")
	if !results.Exists() {
		return Result{}, &ShapeError{Reason: "missing results"}
	}
	if !results.IsArray() {
		return Result{}, &ShapeError{Reason: fmt.Sprintf("results is %s, not an array", describe(results))}
	}

	entries := results.Array()
	hits := make([]Hit, 0, len(entries))
	for _, r := range entries {
		hits = append(hits, Hit{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Content: r.Get("content").String(),
			Score:   r.Get("score").Float(),
		})
	}

	return Result{
		Query: doc.Get("query").String(),
		Hits:  hits,
		Raw:   slices.Clone(body),
	}, nil
}

func describe(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "an object"
	case r.Type == gjson.String:
		return "a string"
	case r.Type == gjson.Number:
		return "a number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "a boolean"
	case r.Type == gjson.Null:
		return "null"
	default:
		return "unknown"
	}
}
