package service

import (
	"errors"
	"fmt"
	"strings"

	"tripplanner/internal/maps"
	"tripplanner/internal/types"
)

// FallbackTitle replaces a missing or blank itinerary title.
const FallbackTitle = "Generated Itinerary"

var (
	// ErrBadRequest marks caller input that is rejected before any model call.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidTrip is returned for TripRequests that fail validation.
	ErrInvalidTrip = fmt.Errorf("%w: invalid trip request", ErrBadRequest)
	// ErrGenerationFailed means the model produced no usable structured payload.
	// It is fatal to the call and is the only planner error worth retrying.
	ErrGenerationFailed = errors.New("itinerary generation failed")
	// ErrToolBudgetExceeded is a GenerationFailed raised when the model keeps calling tools.
	ErrToolBudgetExceeded = fmt.Errorf("%w: tool call budget exceeded", ErrGenerationFailed)
)

// TripRequest holds the caller's trip parameters. Budget is currency-agnostic.
type TripRequest struct {
	Destination    string     `json:"destination"`
	StartDate      types.Date `json:"startDate"`
	EndDate        types.Date `json:"endDate"`
	NumberOfPeople int        `json:"numberOfPeople"`
	Budget         float64    `json:"budget"`
	Preferences    string     `json:"preferences"`
}

func (r TripRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Destination) == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidTrip)
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidTrip)
	case r.EndDate.Before(r.StartDate):
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidTrip, r.EndDate, r.StartDate)
	case r.NumberOfPeople < 1:
		return fmt.Errorf("%w: number of people must be at least 1", ErrInvalidTrip)
	case r.Budget < 0:
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidTrip)
	}
	return nil
}

// Days is the number of calendar days the trip spans.
func (r TripRequest) Days() int {
	return r.StartDate.DaysThrough(r.EndDate)
}

// Activity is one entry of a day plan. PlaceDetails, when set, is a verbatim copy of a
// candidate returned by the place lookup tool during the same generation.
type Activity struct {
	ID           string               `json:"id"`
	Time         string               `json:"time,omitempty"`
	Description  string               `json:"description"`
	PlaceDetails *maps.PlaceCandidate `json:"placeDetails,omitempty"`
	Notes        string               `json:"notes,omitempty"`
}

// DayPlan is one day of the itinerary; Day is 1-based and contiguous.
type DayPlan struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"`
	Title      string     `json:"title,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Activities []Activity `json:"activities"`
}

type Itinerary struct {
	Title string    `json:"itineraryTitle"`
	Days  []DayPlan `json:"structuredItinerary"`
}

// Anomaly records a model output contract violation that was repaired instead of failing the call.
type Anomaly struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Detail string `json:"detail,omitempty"`
}

const (
	AnomalyMissingTitle        = "missing_title"
	AnomalyMalformedItinerary  = "malformed_itinerary"
	AnomalyMalformedDay        = "malformed_day"
	AnomalyMalformedActivities = "malformed_activities"
	AnomalyMalformedActivity   = "malformed_activity"
	AnomalyMalformedField      = "malformed_field"
	AnomalyInvalidPlaceDetails = "invalid_place_details"
	AnomalyUngroundedPlace     = "ungrounded_place_details"
	AnomalyActivityIDRewritten = "activity_id_rewritten"
	AnomalyDayRenumbered       = "day_renumbered"
	AnomalyInvalidDate         = "invalid_date"
	AnomalyDayCountMismatch    = "day_count_mismatch"
)

// Result is a successful generation. A non-empty Anomalies slice marks a degraded result.
type Result struct {
	Itinerary Itinerary `json:"itinerary"`
	Anomalies []Anomaly `json:"anomalies,omitempty"`
	ToolCalls int       `json:"toolCalls"`
}

func (r *Result) Degraded() bool {
	return len(r.Anomalies) > 0
}

// Destination is one suggestion returned by SuggestDestinations.
type Destination struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}
