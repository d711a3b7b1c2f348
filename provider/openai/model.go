package openai

import (
	"github.com/alphadose/haxmap"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var modelRegistry = haxmap.New[string, *Provider]()

func GPT4o(opts ...option.RequestOption) *Provider {
	return Model(openai.ChatModelGPT4o, opts...)
}

func GPT4oMini(opts ...option.RequestOption) *Provider {
	return Model(openai.ChatModelGPT4oMini, opts...)
}

// Model returns the shared provider for name, creating it with opts on first use.
// Later calls for the same name ignore opts.
func Model(name string, opts ...option.RequestOption) *Provider {
	p, _ := modelRegistry.GetOrCompute(name, func() *Provider {
		return New(name, opts...)
	})
	return p
}
