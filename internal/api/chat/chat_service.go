package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/dateai/dateai-server/internal/api/geocode"
	"github.com/dateai/dateai-server/internal/types"
)

const defaultRecommendationRadius = 5

// systemInstruction teaches the model the delimited block format the parser
// consumes.
const systemInstruction = `You are an AI assistant helping users plan dates and find events.
When events are mentioned in your responses, format them like this:

EVENT_START
Title: [Event Title]
Date: [Event Date in MM/DD/YYYY format]
Time: [Event Time in HH:MM AM/PM format]
Location: [Full address including venue name, street, city, state]
Category: [One of: live-music, comedy, sports-games, performing-arts, food-drink, cultural, social, educational, outdoor, special]
Price: [Price or price range if available]
Description: [Brief description]
EVENT_END`

// RecommendationType names the kinds of suggestions a user can ask for.
type RecommendationType string

const (
	RecommendRestaurants RecommendationType = "restaurants"
	RecommendAttractions RecommendationType = "attractions"
	RecommendActivities  RecommendationType = "activities"
	RecommendNightlife   RecommendationType = "nightlife"
	RecommendCultural    RecommendationType = "cultural"
)

func ValidRecommendationType(t RecommendationType) bool {
	switch t {
	case RecommendRestaurants, RecommendAttractions, RecommendActivities, RecommendNightlife, RecommendCultural:
		return true
	}
	return false
}

// RecommendationParams locate and narrow an AI recommendation request.
type RecommendationParams struct {
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Type        RecommendationType `json:"type"`
	Radius      float64            `json:"radius,omitempty"`
	Preferences []string           `json:"preferences,omitempty"`
}

// RecommendationResponse carries the model's prose plus every extracted
// event that survived geocoding and validation.
type RecommendationResponse struct {
	Content string        `json:"content"`
	Events  []types.Event `json:"events"`
}

// Completer produces one model completion for a prompt under a fixed system
// instruction.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter backs Completer with the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	return result.Text(), nil
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetRecommendations(ctx context.Context, params RecommendationParams) (*RecommendationResponse, error)
}

// ServiceImpl asks the model for recommendations and turns its delimited
// event blocks into canonical records, resolving each Location line through
// the geocoder. Only records passing the event validity rules are returned.
type ServiceImpl struct {
	logger    *slog.Logger
	completer Completer
	geocoder  geocode.Service
}

func NewServiceImpl(completer Completer, geocoder geocode.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		completer: completer,
		geocoder:  geocoder,
	}
}

func (s *ServiceImpl) GetRecommendations(ctx context.Context, params RecommendationParams) (*RecommendationResponse, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GetRecommendations")
	defer span.End()
	span.SetAttributes(attribute.String("recommendation.type", string(params.Type)))

	if !ValidRecommendationType(params.Type) {
		return nil, fmt.Errorf("unknown recommendation type %q", params.Type)
	}

	content, err := s.completer.Complete(ctx, buildPrompt(params))
	if err != nil {
		s.logger.ErrorContext(ctx, "Completion failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Completion failed")
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	parsed := ParseEventBlocks(content)
	events := make([]types.Event, 0, len(parsed))
	for _, ev := range parsed {
		enriched, ok := s.resolveLocation(ctx, ev)
		if !ok || !enriched.Valid() {
			continue
		}
		events = append(events, enriched)
	}

	s.logger.InfoContext(ctx, "Recommendations generated",
		slog.Int("blocks", len(parsed)), slog.Int("valid", len(events)))
	span.SetAttributes(attribute.Int("events.count", len(events)))
	span.SetStatus(codes.Ok, "Recommendations returned")
	return &RecommendationResponse{Content: content, Events: events}, nil
}

func buildPrompt(params RecommendationParams) string {
	radius := params.Radius
	if radius == 0 {
		radius = defaultRecommendationRadius
	}
	prompt := fmt.Sprintf("Find %s recommendations within %g miles of coordinates (%g, %g)",
		params.Type, radius, params.Latitude, params.Longitude)
	if len(params.Preferences) > 0 {
		prompt += " that match these preferences: " + strings.Join(params.Preferences, ", ")
	}
	return prompt + ". Format each recommendation as an event."
}

// resolveLocation geocodes the extracted address. Records whose address the
// geocoder cannot place are dropped.
func (s *ServiceImpl) resolveLocation(ctx context.Context, ev types.Event) (types.Event, bool) {
	suggestions, err := s.geocoder.SearchLocations(ctx, ev.Location.Address)
	if err != nil || len(suggestions) == 0 {
		return ev, false
	}
	best := suggestions[0]

	// Suggestion centers are [lon, lat].
	ev.Location.Latitude = best.Center[1]
	ev.Location.Longitude = best.Center[0]

	parts := strings.Split(best.PlaceName, ",")
	city, state := "", ""
	if len(parts) > 1 {
		city = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		state = strings.TrimSpace(parts[2])
	}
	ev.Venue = types.Venue{
		Name:  strings.TrimSpace(strings.Split(ev.Location.Address, ",")[0]),
		City:  city,
		State: state,
	}
	return ev, true
}
