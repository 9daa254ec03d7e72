// README: Place lookup tool exposed to the model; validates input and never surfaces resolver failures.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tripplanner/internal/ai"
	"tripplanner/internal/maps"
)

// FindPlacesName is the function name the model uses to invoke the tool.
const FindPlacesName = "findPlacesTool"

// ErrContractViolation is returned when the model calls the tool with invalid arguments.
// It is raised before the resolver is contacted.
var ErrContractViolation = errors.New("tool contract violation")

// Resolver is the fail-soft place lookup the tool forwards to.
type Resolver interface {
	Resolve(ctx context.Context, location string, category maps.Category, query string) []maps.PlaceCandidate
}

// FindPlacesInput is the validated argument set of one invocation.
type FindPlacesInput struct {
	Location string
	Category maps.Category
	Query    string
}

// FindPlaces adapts a Resolver into the model-callable findPlacesTool.
type FindPlaces struct {
	resolver Resolver
	logger   *zap.Logger
}

func NewFindPlaces(resolver Resolver, logger *zap.Logger) *FindPlaces {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FindPlaces{resolver: resolver, logger: logger}
}

// Spec declares the tool to the model.
func (t *FindPlaces) Spec() ai.ToolSpec {
	enum := make([]string, len(maps.Categories))
	for i, c := range maps.Categories {
		enum[i] = string(c)
	}
	return ai.ToolSpec{
		Name: FindPlacesName,
		Description: "Fetches real-world suggestions for restaurants, tourist attractions or cafes in a given location. " +
			"Returns up to 5 places ranked by relevance with id, name, category, address description, coordinates and image URL when available. " +
			"Use this to find specific establishments to include in the itinerary. Always use the exact name returned by this tool when referring to the place.",
		Params: []ai.ToolParam{
			{Name: "location", Description: `The city and country, e.g. "Paris, France".`, Required: true},
			{Name: "category", Description: "The type of place to search for.", Enum: enum, Required: true},
			{Name: "query", Description: `A specific query for the place, e.g. "pizza", "museum of history", "coffee shop with Wi-Fi".`},
		},
	}
}

// ParseInput validates raw model arguments against the tool contract.
func ParseInput(args map[string]any) (FindPlacesInput, error) {
	location, err := stringArg(args, "location")
	if err != nil {
		return FindPlacesInput{}, err
	}
	if location == "" {
		return FindPlacesInput{}, fmt.Errorf("%w: location is required", ErrContractViolation)
	}

	rawCategory, err := stringArg(args, "category")
	if err != nil {
		return FindPlacesInput{}, err
	}
	category, ok := maps.ParseCategory(rawCategory)
	if !ok {
		return FindPlacesInput{}, fmt.Errorf("%w: category %q is not one of restaurant, attraction, cafe", ErrContractViolation, rawCategory)
	}

	query, err := stringArg(args, "query")
	if err != nil {
		return FindPlacesInput{}, err
	}
	return FindPlacesInput{Location: location, Category: category, Query: query}, nil
}

// Call validates args and runs the lookup. The only error it returns is ErrContractViolation;
// anything that goes wrong inside the resolver, including a panic, yields no places.
func (t *FindPlaces) Call(ctx context.Context, args map[string]any) ([]maps.PlaceCandidate, error) {
	in, err := ParseInput(args)
	if err != nil {
		t.logger.Warn("rejected tool call", zap.String("tool", FindPlacesName), zap.Any("args", args), zap.Error(err))
		return []maps.PlaceCandidate{}, err
	}
	return t.lookup(ctx, in), nil
}

func (t *FindPlaces) lookup(ctx context.Context, in FindPlacesInput) (places []maps.PlaceCandidate) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("place resolver panicked",
				zap.String("location", in.Location),
				zap.String("category", string(in.Category)),
				zap.Any("panic", r))
			places = []maps.PlaceCandidate{}
		}
	}()

	places = t.resolver.Resolve(ctx, in.Location, in.Category, in.Query)
	if places == nil {
		places = []maps.PlaceCandidate{}
	}
	t.logger.Debug("tool lookup",
		zap.String("location", in.Location),
		zap.String("category", string(in.Category)),
		zap.String("query", in.Query),
		zap.Int("results", len(places)))
	return places
}

// Response encodes places (and an optional rejection) as a JSON-compatible tool result payload.
func Response(places []maps.PlaceCandidate, callErr error) map[string]any {
	items := []any{}
	if len(places) > 0 {
		if b, err := json.Marshal(places); err == nil {
			_ = json.Unmarshal(b, &items)
		}
	}
	resp := map[string]any{"places": items}
	if callErr != nil {
		resp["error"] = callErr.Error()
	}
	return resp
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrContractViolation, key)
	}
	return strings.TrimSpace(s), nil
}
