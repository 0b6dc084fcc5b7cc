package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// openAIProvider talks to the OpenAI API or any endpoint compatible with it.
// The SDK's own retries are disabled; a failed call surfaces immediately.
type openAIProvider struct {
	name   string
	apiKey string
	client openai.Client
}

func newOpenAIProvider(name string, cfg *openAIConfig, defaultBaseURL string, extra ...option.RequestOption) *openAIProvider {
	apiKey := strings.TrimSpace(cfg.APIKey)
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &openAIProvider{
		name:   name,
		apiKey: apiKey,
		client: openai.NewClient(opts...),
	}
}

func (p *openAIProvider) Name() string {
	return p.name
}

func (p *openAIProvider) Chat(ctx context.Context, model string, messages []Message, temperature float64) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Temperature: openai.Float(temperature),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, texts []string, dimension int) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(model),
	}
	if dimension > 0 && supportsDimensions(model) {
		params.Dimensions = openai.Int(int64(dimension))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})
	out := make([][]float32, 0, len(data))
	for _, item := range data {
		out = append(out, toFloat32(item.Embedding))
	}
	return out, nil
}

// supportsDimensions reports whether model accepts the dimensions parameter.
// Only the text-embedding-3 family does; ada-002 rejects it.
func supportsDimensions(model string) bool {
	return strings.Contains(model, "text-embedding-3")
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

func createOpenAIFactory(args interface{}) (IChatProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return newOpenAIProvider("openai", cfg, ""), nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return newOpenAIProvider("openai", cfg, ""), nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
