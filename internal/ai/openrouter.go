package ai

import (
	"strings"

	"github.com/openai/openai-go/option"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

func newOpenRouterProvider(args interface{}) (*openAIProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	var headers []option.RequestOption
	if v := strings.TrimSpace(cfg.HTTPReferer); v != "" {
		headers = append(headers, option.WithHeader("HTTP-Referer", v))
	}
	if v := strings.TrimSpace(cfg.XTitle); v != "" {
		headers = append(headers, option.WithHeader("X-Title", v))
	}
	base := &openAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}
	return newOpenAIProvider("openrouter", base, defaultOpenRouterBaseURL, headers...), nil
}

func createOpenRouterFactory(args interface{}) (IChatProvider, error) {
	return newOpenRouterProvider(args)
}

func createOpenRouterEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOpenRouterProvider(args)
}

func init() {
	Register("openrouter", createOpenRouterFactory)
	RegisterEmbed("openrouter", createOpenRouterEmbedFactory)
}
