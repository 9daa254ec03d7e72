package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MaxDestinations caps the number of suggestions returned.
const MaxDestinations = 5

// SuggestDestinations proposes destinations for a free-text trip description.
// Suggestions without a name are dropped.
func (p *TripPlanner) SuggestDestinations(ctx context.Context, description string) ([]Destination, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: trip description is required", ErrBadRequest)
	}

	raw, err := p.provider.GenerateJSON(ctx, buildDestinationsPrompt(description))
	if err != nil {
		return nil, generationError("destination suggestion failed", err)
	}

	var out struct {
		Destinations []Destination `json:"destinations"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: unparsable destination suggestions: %w", ErrGenerationFailed, err)
	}

	dests := make([]Destination, 0, len(out.Destinations))
	for _, d := range out.Destinations {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			continue
		}
		d.Description = strings.TrimSpace(d.Description)
		d.Reason = strings.TrimSpace(d.Reason)
		dests = append(dests, d)
		if len(dests) == MaxDestinations {
			break
		}
	}
	p.logger.Debug("destinations suggested", zap.Int("count", len(dests)))
	return dests, nil
}
