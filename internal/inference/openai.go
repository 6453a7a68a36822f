package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
)

// Config configures an OpenAIClient.
type Config struct {
	// BaseURL of any OpenAI-compatible API. Empty selects the OpenAI default.
	BaseURL string
	APIKey  string

	ChatModel      string
	VisionModel    string
	EmbeddingModel string

	// Timeout bounds each call.
	Timeout time.Duration

	// RequestsPerSecond and Burst smooth outgoing calls. Zero disables smoothing.
	RequestsPerSecond float64
	Burst             int

	// BreakerFailureRatio opens the circuit once at least BreakerMinRequests
	// calls were made in an interval and this fraction of them failed.
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenTimeout  time.Duration
}

// OpenAIClient implements Client against an OpenAI-compatible API.
type OpenAIClient struct {
	client  *openai.Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewOpenAIClient creates a client. It does not contact the API.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.ChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailureRatio <= 0 {
		cfg.BreakerFailureRatio = 0.6
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = time.Minute
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	c := &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    logging.Component("inference"),
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.InferenceBreakerState.Set(float64(to))
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("inference circuit breaker state changed")
		},
	})

	return c, nil
}

// ChatModel returns the text generation model identifier.
func (c *OpenAIClient) ChatModel() string { return c.cfg.ChatModel }

// EmbeddingModel returns the embedding model identifier.
func (c *OpenAIClient) EmbeddingModel() string { return c.cfg.EmbeddingModel }

// call runs fn behind the limiter, the breaker and the per-call timeout.
func (c *OpenAIClient) call(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.InferenceCalls.WithLabelValues(op, "rate_limited").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
		}
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "circuit_open"
		}
		metrics.InferenceCalls.WithLabelValues(op, outcome).Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}

	metrics.InferenceCalls.WithLabelValues(op, "ok").Inc()
	return out, nil
}

// GenerateText runs a chat completion.
func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	out, err := c.call(ctx, "generate_text", func(ctx context.Context) (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.ChatModel,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("empty completion")
		}
		return TextResult{
			Text:       resp.Choices[0].Message.Content,
			TokensUsed: resp.Usage.TotalTokens,
			Model:      c.cfg.ChatModel,
		}, nil
	})
	if err != nil {
		return TextResult{}, err
	}
	return out.(TextResult), nil
}

// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) (EmbedResult, error) {
	out, err := c.call(ctx, "embed", func(ctx context.Context) (any, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != 1 || len(resp.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("API returned %d embeddings for 1 text", len(resp.Data))
		}
		return EmbedResult{
			Vector:     resp.Data[0].Embedding,
			TokensUsed: resp.Usage.TotalTokens,
			Model:      c.cfg.EmbeddingModel,
		}, nil
	})
	if err != nil {
		return EmbedResult{}, err
	}
	return out.(EmbedResult), nil
}

const imageSystemPrompt = `You describe shelter animals from photos. Report only what is visible.
Respond with a JSON object: {"breedGuess": string, "color": string, "observedTraits": [string], "description": string}.`

// AnalyzeImages runs a vision completion over up to MaxImages URLs.
func (c *OpenAIClient) AnalyzeImages(ctx context.Context, urls []string) (ImageAnalysis, error) {
	if len(urls) == 0 {
		return ImageAnalysis{}, fmt.Errorf("%w: no images", ErrUnavailable)
	}
	if len(urls) > MaxImages {
		urls = urls[:MaxImages]
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: "Describe this animal.",
	}}
	for _, u := range urls {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    u,
				Detail: openai.ImageURLDetailLow,
			},
		})
	}

	out, err := c.call(ctx, "analyze_images", func(ctx context.Context) (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.cfg.VisionModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: imageSystemPrompt},
				{Role: openai.ChatMessageRoleUser, MultiContent: parts},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			MaxTokens: 400,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("empty completion")
		}

		var analysis ImageAnalysis
		if err := json.Unmarshal([]byte(StripCodeFence(resp.Choices[0].Message.Content)), &analysis); err != nil {
			return nil, fmt.Errorf("malformed image analysis: %w", err)
		}
		analysis.TokensUsed = resp.Usage.TotalTokens
		analysis.Model = c.cfg.VisionModel
		return analysis, nil
	})
	if err != nil {
		return ImageAnalysis{}, err
	}
	return out.(ImageAnalysis), nil
}
