/*
Package openai implements provider.Completer on top of the OpenAI chat
completions API.

A Provider is bound to one model. Model keeps a process wide registry so that
every caller asking for the same model shares one client:

	llm := openai.Model("gpt-4o", option.WithAPIKey(key))
	text, err := llm.Complete(ctx, provider.CompletionParams{
		Messages: []provider.Message{
			provider.System("You are a financial analyst."),
			provider.User("How is Apple doing?"),
		},
	})

When CompletionParams.ResponseSchema is set the request uses a strict
json_schema response format. The returned string is the raw message content,
so callers decode and validate it themselves.

Refusals are reported as errors. A response without choices yields
ErrEmptyCompletion.
*/
package openai
