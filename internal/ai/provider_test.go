package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	for _, name := range []string{"openai", "OpenAI", " gemini ", "openrouter"} {
		p, err := NewChatProvider(name, map[string]interface{}{"api_key": "k"})
		require.NoError(t, err, name)
		require.Equal(t, strings.ToLower(strings.TrimSpace(name)), p.Name())

		e, err := NewEmbedProvider(name, map[string]interface{}{"api_key": "k"})
		require.NoError(t, err, name)
		require.Equal(t, strings.ToLower(strings.TrimSpace(name)), e.Name())
	}

	_, err := NewChatProvider("", nil)
	require.Error(t, err)
	_, err = NewChatProvider("unknown", nil)
	require.Error(t, err)
	_, err = NewEmbedProvider("unknown", nil)
	require.Error(t, err)
}

func TestProviderWithoutKeyIsUnavailable(t *testing.T) {
	p, err := NewEmbedProvider("openai", nil)
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "m", []string{"x"}, 0)
	require.ErrorIs(t, err, ErrUnavailable)

	c, err := NewChatProvider("gemini", map[string]interface{}{})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "m", nil, 0.2)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIProviderEmbedOrdersByIndex(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`)
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "test-key", "base_url": srv.URL})
	require.NoError(t, err)
	vecs, err := p.Embed(context.Background(), "text-embedding-3-small", []string{"a", "b"}, 2)
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	require.Equal(t, "text-embedding-3-small", gotBody["model"])
	require.Equal(t, []interface{}{"a", "b"}, gotBody["input"])
	require.EqualValues(t, 2, gotBody["dimensions"])

	gotBody = nil
	_, err = p.Embed(context.Background(), "text-embedding-ada-002", []string{"a", "b"}, 2)
	require.NoError(t, err)
	require.NotContains(t, gotBody, "dimensions")
}

func TestOpenAIProviderChat(t *testing.T) {
	var gotBody struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [
				{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Paris"}}
			]
		}`)
	}))
	defer srv.Close()

	p, err := NewChatProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	out, err := p.Chat(context.Background(), "gpt-4o-mini", []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "capital of France?"},
	}, 0.2)
	require.NoError(t, err)
	require.Equal(t, "Paris", out)
	require.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.InDelta(t, 0.2, gotBody.Temperature, 1e-9)
	require.Len(t, gotBody.Messages, 2)
	require.Equal(t, "system", gotBody.Messages[0].Role)
	require.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestOpenAIProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "m", []string{"x"}, 0)
	require.Error(t, err)
}
