package maps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"tripplanner/internal/observability"
)

// MaxCandidates caps the number of places returned per lookup.
const MaxCandidates = 5

const defaultPhotoBaseURL = "https://maps.googleapis.com"

var (
	// ErrMissingCredential means no Places API key was configured.
	ErrMissingCredential = errors.New("places api key missing")
	// ErrUpstream wraps transport failures, non-OK statuses and unparsable bodies.
	ErrUpstream = errors.New("places upstream error")
)

// PlaceCandidate is one ranked real-world place returned for a lookup.
// Latitude and Longitude are either both set or both nil.
type PlaceCandidate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// Option configures a PlacesService.
type Option func(*PlacesService)

// WithBaseURL points the client at a different Places host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(s *PlacesService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the transport used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *PlacesService) { s.httpClient = c }
}

// WithRateLimit bounds upstream calls per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(s *PlacesService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *PlacesService) { s.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *PlacesService) { s.metrics = m }
}

// PlacesService handles interactions with Google Places API (Text Search).
// It is stateless apart from the rate limiter and safe for concurrent use.
type PlacesService struct {
	client     *maps.Client
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewPlacesService creates a new PlacesService with the given API Key.
// An empty key is not an error: the service is created but every lookup resolves to no places.
func NewPlacesService(apiKey string, opts ...Option) (*PlacesService, error) {
	s := &PlacesService{
		apiKey: strings.TrimSpace(apiKey),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics()
	}
	if s.apiKey == "" {
		s.logger.Warn("places api key missing; place lookups will return no results")
		return s, nil
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(s.apiKey)}
	if s.baseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, maps.WithHTTPClient(s.httpClient))
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	s.client = client
	return s, nil
}

// Resolve returns up to MaxCandidates places for the lookup, in upstream relevance order.
// It never fails: every upstream problem is logged and degrades to an empty result.
func (s *PlacesService) Resolve(ctx context.Context, location string, category Category, query string) []PlaceCandidate {
	places, err := s.Search(ctx, location, category, query)
	if err != nil {
		s.logger.Warn("place lookup degraded to empty result",
			zap.String("location", location),
			zap.String("category", string(category)),
			zap.String("query", query),
			zap.Error(err))
		return []PlaceCandidate{}
	}
	return places
}

// Search performs the upstream text search and reports failures as errors
// wrapping ErrMissingCredential or ErrUpstream.
func (s *PlacesService) Search(ctx context.Context, location string, category Category, query string) ([]PlaceCandidate, error) {
	if s.client == nil {
		s.metrics.Lookup(ctx, "upstream", "no_credential")
		return nil, ErrMissingCredential
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.metrics.Lookup(ctx, "upstream", "rate_limited")
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
		}
	}

	r := &maps.TextSearchRequest{
		Query: BuildQuery(location, category, query),
	}
	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		s.metrics.Lookup(ctx, "upstream", "error")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	places := s.toCandidates(category, resp.Results)
	s.metrics.Lookup(ctx, "upstream", "ok")
	return places, nil
}

// BuildQuery combines the optional free-text query, the category and the location into
// the single search string sent upstream, e.g. "pizza restaurant in Rome, Italy".
func BuildQuery(location string, category Category, query string) string {
	kind := humanizeType(category.placeType())
	location = strings.TrimSpace(location)
	if q := strings.TrimSpace(query); q != "" {
		return fmt.Sprintf("%s %s in %s", q, kind, location)
	}
	return fmt.Sprintf("%s in %s", kind, location)
}

func (s *PlacesService) toCandidates(category Category, results []maps.PlacesSearchResult) []PlaceCandidate {
	out := make([]PlaceCandidate, 0, MaxCandidates)
	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		if result.PlaceID == "" || strings.TrimSpace(result.Name) == "" {
			continue
		}
		if _, dup := seen[result.PlaceID]; dup {
			continue
		}
		seen[result.PlaceID] = struct{}{}

		p := PlaceCandidate{
			ID:          result.PlaceID,
			Name:        result.Name,
			Category:    categoryLabel(category, result.Types),
			Description: result.FormattedAddress,
		}
		if p.Description == "" {
			p.Description = result.Vicinity
		}

		// The client decodes a missing geometry as 0,0; treat that as "no coordinates".
		loc := result.Geometry.Location
		if loc.Lat != 0 || loc.Lng != 0 {
			lat, lng := loc.Lat, loc.Lng
			p.Latitude, p.Longitude = &lat, &lng
		}

		if len(result.Photos) > 0 && result.Photos[0].PhotoReference != "" {
			p.ImageURL = s.photoURL(result.Photos[0].PhotoReference)
		}

		out = append(out, p)
		if len(out) >= MaxCandidates {
			break
		}
	}
	return out
}

func (s *PlacesService) photoURL(ref string) string {
	base := s.baseURL
	if base == "" {
		base = defaultPhotoBaseURL
	}
	v := url.Values{}
	v.Set("maxwidth", "400")
	v.Set("photoreference", ref)
	v.Set("key", s.apiKey)
	return base + "/maps/api/place/photo?" + v.Encode()
}
