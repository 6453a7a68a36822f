/*
Package inference defines the external inference client used for text
generation, embeddings and image analysis.

Every failure (network error, open circuit, rate limit, malformed response)
is reported as an error wrapping ErrUnavailable so callers can treat them
uniformly as a soft failure.
*/
package inference

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable wraps every client failure.
var ErrUnavailable = errors.New("inference unavailable")

// MaxImages is the maximum number of images sent to AnalyzeImages.
const MaxImages = 5

// TextRequest is a single text generation request.
type TextRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// TextResult is generated text with its billed token count.
type TextResult struct {
	Text       string
	TokensUsed int
	Model      string
}

// EmbedResult is an embedding vector with its billed token count.
type EmbedResult struct {
	Vector     []float32
	TokensUsed int
	Model      string
}

// ImageAnalysis is the structured result of a vision call.
type ImageAnalysis struct {
	BreedGuess     string   `json:"breedGuess"`
	Color          string   `json:"color"`
	ObservedTraits []string `json:"observedTraits"`
	Description    string   `json:"description"`
	TokensUsed     int      `json:"tokensUsed"`
	Model          string   `json:"model,omitempty"`
}

// Client is the external inference collaborator.
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResult, error)
	Embed(ctx context.Context, text string) (EmbedResult, error)
	AnalyzeImages(ctx context.Context, urls []string) (ImageAnalysis, error)
}

// Unavailable is a Client that fails every call. It is used when no API key
// is configured.
type Unavailable struct{}

func (Unavailable) GenerateText(context.Context, TextRequest) (TextResult, error) {
	return TextResult{}, ErrUnavailable
}

func (Unavailable) Embed(context.Context, string) (EmbedResult, error) {
	return EmbedResult{}, ErrUnavailable
}

func (Unavailable) AnalyzeImages(context.Context, []string) (ImageAnalysis, error) {
	return ImageAnalysis{}, ErrUnavailable
}

// StripCodeFence removes a surrounding ```json fence that chat models
// sometimes wrap around JSON output.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
