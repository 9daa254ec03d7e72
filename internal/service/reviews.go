package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxReviews bounds how many reviews are forwarded to the model.
const MaxReviews = 50

// SummarizeActivityReviews condenses visitor reviews of one activity into a short summary.
// Blank reviews are ignored; with none left the model is asked for a general sentiment.
func (p *TripPlanner) SummarizeActivityReviews(ctx context.Context, activityName string, reviews []string) (string, error) {
	activityName = strings.TrimSpace(activityName)
	if activityName == "" {
		return "", fmt.Errorf("%w: activity name is required", ErrBadRequest)
	}

	kept := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if r = strings.TrimSpace(r); r != "" {
			kept = append(kept, r)
		}
		if len(kept) == MaxReviews {
			break
		}
	}

	raw, err := p.provider.GenerateJSON(ctx, buildReviewsPrompt(activityName, kept))
	if err != nil {
		return "", generationError("review summary failed", err)
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("%w: unparsable review summary: %w", ErrGenerationFailed, err)
	}
	if s := strings.TrimSpace(out.Summary); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%w: empty review summary", ErrGenerationFailed)
}
