package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/source"
)

var (
	// ErrBadRequest is returned when the request is missing required fields.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound is returned when the item does not exist in the source.
	ErrNotFound = errors.New("item not found")
)

// ItemGetter looks up a single item. source.Source implements it.
type ItemGetter interface {
	GetItem(ctx context.Context, id string) (pet.Item, error)
}

// Request is a single-item enrichment request. Use NewRequest for defaults.
type Request struct {
	ItemID           string
	RunAI            bool
	RunImageAnalysis bool
	ForceRefresh     bool
}

// NewRequest returns a request with text generation enabled.
func NewRequest(itemID string) Request {
	return Request{ItemID: itemID, RunAI: true}
}

// Response is the merged item with its enriched content.
type Response struct {
	Item       pet.Item `json:"item"`
	Content    Content  `json:"content"`
	TokensUsed int      `json:"tokensUsed"`
	Cached     bool     `json:"cached"`
}

// Service is the single-item entry point.
type Service struct {
	items ItemGetter
	orch  *Orchestrator
}

// NewService creates a service over an item source and an orchestrator.
func NewService(items ItemGetter, orch *Orchestrator) *Service {
	return &Service{items: items, orch: orch}
}

// EnrichByID loads the item and enriches it. It returns ErrBadRequest for a
// blank id and ErrNotFound for an unknown one; every other problem degrades
// the result instead of failing.
func (s *Service) EnrichByID(ctx context.Context, req Request) (Response, error) {
	id := strings.TrimSpace(req.ItemID)
	if id == "" {
		return Response{}, fmt.Errorf("%w: item id is required", ErrBadRequest)
	}

	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return Response{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Response{}, fmt.Errorf("failed to load item %s: %w", id, err)
	}

	res := s.orch.Enrich(ctx, item, Options{
		RunAI:            req.RunAI,
		RunImageAnalysis: req.RunImageAnalysis,
		ForceRefresh:     req.ForceRefresh,
	})

	return Response{
		Item:       Merge(item, res.Content),
		Content:    res.Content,
		TokensUsed: res.TokensUsed,
		Cached:     res.Cached,
	}, nil
}
