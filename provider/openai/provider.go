package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/provider"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTemperature is the sampling temperature used unless overridden.
const DefaultTemperature = 0.7

// ErrEmptyCompletion is returned when the API answers without any choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

var _ provider.Completer = (*Provider)(nil)

// BaseURL points the client at an OpenAI compatible API root such as
// https://host/v1. The client resolves paths against the URL, so a missing
// trailing slash would drop the last segment; BaseURL adds it.
func BaseURL(u string) option.RequestOption {
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return option.WithBaseURL(u)
}

type Provider struct {
	client      *openai.Client
	model       string
	temperature float64
}

// New creates a Provider for the named chat model.
func New(model string, options ...option.RequestOption) *Provider {
	return &Provider{
		client:      openai.NewClient(options...),
		model:       model,
		temperature: DefaultTemperature,
	}
}

// WithTemperature returns a copy of the provider that samples at temperature t.
func (p *Provider) WithTemperature(t float64) *Provider {
	cp := *p
	cp.temperature = t
	return &cp
}

func (p *Provider) Name() string {
	return p.model
}

func (p *Provider) buildRequest(params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	if len(params.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, errors.New("no messages to complete")
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(params.Messages))
	for _, m := range params.Messages {
		switch m.Role {
		case provider.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case provider.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case provider.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	req := openai.ChatCompletionNewParams{
		Messages:    openai.F(msgs),
		Model:       openai.F(p.model),
		N:           openai.Int(1),
		Temperature: openai.Float(p.temperature),
	}
	if params.RunID != uuid.Nil {
		req.User = openai.String(params.RunID.String())
	}

	if out := params.ResponseSchema; out != nil {
		schema, err := out.SchemaMap()
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert response schema: %w", err)
		}
		def := openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   openai.F(out.Name),
			Schema: openai.F[any](schema),
			Strict: openai.Bool(true),
		}
		if strings.TrimSpace(out.Description) != "" {
			def.Description = openai.F(out.Description)
		}
		req.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](openai.ResponseFormatJSONSchemaParam{
			Type:       openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
			JSONSchema: openai.F(def),
		})
	}

	return req, nil
}

// Complete sends the conversation and returns the content of the first choice.
func (p *Provider) Complete(ctx context.Context, params provider.CompletionParams) (string, error) {
	req, err := p.buildRequest(&params)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	chat, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}

	slog.DebugContext(ctx, "chat completion",
		slogx.LoggerName("tickertape.openai"),
		slog.String("model", chat.Model),
		slog.Int64("total_tokens", chat.Usage.TotalTokens),
	)

	if len(chat.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	msg := chat.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused the request: %s", msg.Refusal)
	}
	return msg.Content, nil
}
