package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
}`

const embeddingResponse = `{
	"object": "list",
	"data": [{"object": "embedding", "embedding": [0.1, 0.2, 0.3], "index": 0}],
	"model": "text-embedding-3-small",
	"usage": {"prompt_tokens": 8, "total_tokens": 8}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(Config{
		BaseURL:             srv.URL + "/v1",
		APIKey:              "test-key",
		Timeout:             2 * time.Second,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	})
	require.NoError(t, err)
	return c
}

func chatJSON(content string) string {
	return fmt.Sprintf(chatResponse, content)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	assert.Error(t, err)
}

func TestGenerateText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatJSON(`{"bio":"hi"}`)))
	})

	res, err := c.GenerateText(context.Background(), TextRequest{Prompt: "write", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, `{"bio":"hi"}`, res.Text)
	assert.Equal(t, 150, res.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(embeddingResponse))
	})

	res, err := c.Embed(context.Background(), "friendly dog")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, res.Vector)
	assert.Equal(t, 8, res.TokensUsed)
}

func TestAnalyzeImages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatJSON("```json\n{\"breedGuess\":\"Labrador\",\"color\":\"Black\",\"observedTraits\":[\"Relaxed\"],\"description\":\"A black dog lying down\"}\n```")))
	})

	res, err := c.AnalyzeImages(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g"})
	require.NoError(t, err)
	assert.Equal(t, "Labrador", res.BreedGuess)
	assert.Equal(t, []string{"Relaxed"}, res.ObservedTraits)
	assert.Equal(t, 150, res.TokensUsed)
}

func TestAnalyzeImages_MalformedIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatJSON("not json at all")))
	})

	_, err := c.AnalyzeImages(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.AnalyzeImages(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.Embed(ctx, "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
	}

	// After the breaker opens, calls fail fast without reaching the server.
	assert.Less(t, hits.Load(), int32(5))
}

func TestUnavailableClient(t *testing.T) {
	var c Client = Unavailable{}
	_, err := c.GenerateText(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1} `))
}
