package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkeep/hub/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]ClientOption{WithBaseURL(srv.URL + "/v1/"), WithHTTPClient(srv.Client())}, opts...)

	return NewClient("sk-test", opts...)
}

func TestClient_CreateEmbedding(t *testing.T) {
	t.Run("returns the vector and sends model and dimensions", func(t *testing.T) {
		var body map[string]any

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
				"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25,1]}],
				"usage":{"prompt_tokens":2,"total_tokens":2}}`))
		}, WithDimensions(3))

		vec, err := client.CreateEmbedding(context.Background(), "  eggshells  ", models.IntentQuery)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
		assert.Equal(t, "eggshells", body["input"])
		assert.Equal(t, "text-embedding-3-small", body["model"])
		assert.InDelta(t, 3, body["dimensions"], 0)
	})

	t.Run("dimension mismatch is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1,2]}]}`))
		}, WithDimensions(3))

		_, err := client.CreateEmbedding(context.Background(), "x", models.IntentDocument)
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty input fails without a request", func(t *testing.T) {
		client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
			t.Fatal("unexpected request")
		})

		_, err := client.CreateEmbedding(context.Background(), "   ", models.IntentQuery)
		require.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestClient_GenerateText(t *testing.T) {
	t.Run("sends system and user messages and returns the content", func(t *testing.T) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)

			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[{\"title\":\"Soup\"}]"}}]}`))
		}, WithModel("gpt-4o-mini"))

		text, err := client.GenerateText(context.Background(), models.GenerationRequest{
			SystemInstruction: "be brief",
			Prompt:            "suggest",
			JSONOutput:        true,
		})
		require.NoError(t, err)
		assert.Equal(t, `[{"title":"Soup"}]`, text)

		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)
	})

	t.Run("empty completion is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"m","choices":[]}`))
		})

		_, err := client.GenerateText(context.Background(), models.GenerationRequest{Prompt: "x"})
		require.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("server error is returned without SDK retries", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.GenerateText(context.Background(), models.GenerationRequest{Prompt: "x"})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
