package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casualjim/tickertape/provider"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1730541600,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": %q}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

type companyShape struct {
	Company string `json:"company"`
	Ticker  string `json:"ticker"`
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Provider {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New("gpt-4o",
		BaseURL(server.URL+"/v1"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
}

func TestProvider_buildRequest(t *testing.T) {
	p := New("gpt-4o")
	runID := uuid.New()

	req, err := p.buildRequest(&provider.CompletionParams{
		RunID: runID,
		Messages: []provider.Message{
			provider.System("You are an analyst"),
			provider.User("How is Apple doing?"),
			provider.Assistant("Fine"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", string(req.Model.Value))
	assert.Equal(t, int64(1), req.N.Value)
	assert.Equal(t, DefaultTemperature, req.Temperature.Value)
	assert.Equal(t, runID.String(), req.User.Value)
	assert.False(t, req.ResponseFormat.Present)

	msgs := req.Messages.Value
	require.Len(t, msgs, 3)
	system, ok := msgs[0].(openai.ChatCompletionSystemMessageParam)
	require.True(t, ok)
	assert.Equal(t, "You are an analyst", system.Content.Value[0].Text.Value)

	user, ok := msgs[1].(openai.ChatCompletionUserMessageParam)
	require.True(t, ok)
	assert.Equal(t, "How is Apple doing?", user.Content.Value[0].(openai.ChatCompletionContentPartTextParam).Text.Value)

	_, ok = msgs[2].(openai.ChatCompletionAssistantMessageParam)
	assert.True(t, ok)
}

func TestProvider_buildRequest_Errors(t *testing.T) {
	p := New("gpt-4o")

	_, err := p.buildRequest(&provider.CompletionParams{})
	assert.ErrorContains(t, err, "no messages to complete")

	_, err = p.buildRequest(&provider.CompletionParams{
		Messages: []provider.Message{{Role: "tool", Content: "x"}},
	})
	assert.ErrorContains(t, err, `unsupported message role "tool"`)
}

func TestProvider_buildRequest_ResponseSchema(t *testing.T) {
	p := New("gpt-4o").WithTemperature(0.2)

	req, err := p.buildRequest(&provider.CompletionParams{
		Messages:       []provider.Message{provider.User("Apple")},
		ResponseSchema: provider.NewStructuredOutput[companyShape]("company_info", "The company in question"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.2, req.Temperature.Value)

	format, ok := req.ResponseFormat.Value.(openai.ResponseFormatJSONSchemaParam)
	require.True(t, ok)
	assert.Equal(t, openai.ResponseFormatJSONSchemaTypeJSONSchema, format.Type.Value)

	def := format.JSONSchema.Value
	assert.Equal(t, "company_info", def.Name.Value)
	assert.Equal(t, "The company in question", def.Description.Value)
	assert.True(t, def.Strict.Value)

	schema, ok := def.Schema.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
}

func TestProvider_Complete(t *testing.T) {
	var body []byte
	p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var err error
		body, err = io.ReadAll(r.Body)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fmt.Sprintf(completionJSON, `{"company":"Apple Inc.","ticker":"AAPL"}`))
	})

	got, err := p.Complete(context.Background(), provider.CompletionParams{
		Messages:       []provider.Message{provider.System("extract"), provider.User("How is Apple doing?")},
		ResponseSchema: provider.NewStructuredOutput[companyShape]("company_info", ""),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"company":"Apple Inc.","ticker":"AAPL"}`, got)

	assert.Equal(t, "gpt-4o", gjson.GetBytes(body, "model").String())
	assert.Equal(t, "json_schema", gjson.GetBytes(body, "response_format.type").String())
	assert.Equal(t, "company_info", gjson.GetBytes(body, "response_format.json_schema.name").String())
	assert.True(t, gjson.GetBytes(body, "response_format.json_schema.strict").Bool())
	assert.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
	assert.Equal(t, "user", gjson.GetBytes(body, "messages.1.role").String())
}

func TestProvider_Complete_Failures(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
		})

		_, err := p.Complete(context.Background(), provider.CompletionParams{
			Messages: []provider.Message{provider.User("hi")},
		})
		var apiErr *openai.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("no choices", func(t *testing.T) {
		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)
		})

		_, err := p.Complete(context.Background(), provider.CompletionParams{
			Messages: []provider.Message{provider.User("hi")},
		})
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("refusal", func(t *testing.T) {
		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"","refusal":"cannot help"}}]}`)
		})

		_, err := p.Complete(context.Background(), provider.CompletionParams{
			Messages: []provider.Message{provider.User("hi")},
		})
		assert.ErrorContains(t, err, "cannot help")
	})

	t.Run("invalid params never reach the api", func(t *testing.T) {
		p := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})

		_, err := p.Complete(context.Background(), provider.CompletionParams{})
		assert.ErrorContains(t, err, "failed to build request")
	})
}

func TestBaseURL_KeepsPathPrefix(t *testing.T) {
	for _, suffix := range []string{"/v1", "/v1/"} {
		t.Run(suffix, func(t *testing.T) {
			var path string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, fmt.Sprintf(completionJSON, "ok"))
			}))
			t.Cleanup(server.Close)

			p := New("gpt-4o", BaseURL(server.URL+suffix), option.WithAPIKey("test"), option.WithMaxRetries(0))
			got, err := p.Complete(context.Background(), provider.CompletionParams{
				Messages: []provider.Message{provider.User("hi")},
			})
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, "/v1/chat/completions", path)
		})
	}
}

func TestModel_Registry(t *testing.T) {
	a := Model("test-registry-model")
	b := Model("test-registry-model", option.WithAPIKey("ignored"))
	assert.Same(t, a, b)
	assert.Equal(t, "test-registry-model", a.Name())

	assert.Equal(t, openai.ChatModelGPT4oMini, GPT4oMini().Name())
	assert.NotSame(t, GPT4o(), GPT4oMini())
}
