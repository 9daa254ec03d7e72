package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tripplanner/internal/ai"
	"tripplanner/internal/maps"
	"tripplanner/internal/tools"
	"tripplanner/internal/types"
)

var (
	eiffel = maps.PlaceCandidate{
		ID: "ChIJLU7jZClu5kcR4PcOOO6p3I0", Name: "Eiffel Tower", Category: "tourist attraction",
		Description: "Champ de Mars, 5 Av. Anatole France, 75007 Paris, France",
		Latitude:    ptr(48.8584), Longitude: ptr(2.2945),
		ImageURL: "https://example.test/eiffel.jpg",
	}
	flore = maps.PlaceCandidate{
		ID: "ChIJ3S-JXmJu5kcRbR1QBrQ3xvY", Name: "Café de Flore", Category: "cafe",
		Description: "172 Bd Saint-Germain, 75006 Paris, France",
		Latitude:    ptr(48.8541), Longitude: ptr(2.3326),
	}
)

func parisTrip() TripRequest {
	return TripRequest{
		Destination:    "Paris, France",
		StartDate:      types.NewDate(2024, time.September, 10),
		EndDate:        types.NewDate(2024, time.September, 11),
		NumberOfPeople: 2,
		Budget:         1500,
		Preferences:    "art, cafes",
	}
}

func newPlanner(conv *scriptedConversation, res *catalogResolver, maxCalls int) (*TripPlanner, *fakeProvider) {
	provider := &fakeProvider{conv: conv}
	return NewTripPlanner(provider, tools.NewFindPlaces(res, nil), PlannerOptions{MaxToolCalls: maxCalls}), provider
}

const parisItinerary = `Here is your plan:
` + "```json" + `
{
  "itineraryTitle": "Parisian Art & Coffee for 2",
  "structuredItinerary": [
    {
      "day": 1,
      "date": "2024-09-10",
      "title": "Iron Lady",
      "summary": "Classic views.",
      "activities": [
        {
          "id": "day1-activity1",
          "time": "Morning",
          "description": "Climb the Eiffel Tower.",
          "placeDetails": {"id": "ChIJLU7jZClu5kcR4PcOOO6p3I0", "name": "Eiffel Tower", "category": "tourist attraction", "latitude": 48.8584, "longitude": 2.2945}
        },
        {"id": "day1-activity2", "time": "Evening", "description": "Stroll along the Seine."}
      ]
    },
    {
      "day": 2,
      "date": "2024-09-11",
      "title": "Left Bank",
      "activities": [
        {
          "id": "day2-activity1",
          "time": "Morning",
          "description": "Breakfast at Café de Flore.",
          "placeDetails": {"id": "ChIJ3S-JXmJu5kcRbR1QBrQ3xvY", "name": "Café de Flore", "category": "cafe", "latitude": 48.8541, "longitude": 2.3326}
        }
      ]
    }
  ]
}
` + "```"

func TestGenerateParisTwoDays(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		callTools(findPlaces("Paris, France", "attraction", "Eiffel Tower")),
		callTools(findPlaces("Paris, France", "cafe", "historic cafe")),
		reply(parisItinerary),
	}}
	res := &catalogResolver{catalog: map[maps.Category][]maps.PlaceCandidate{
		maps.CategoryAttraction: {eiffel},
		maps.CategoryCafe:       {flore},
	}}
	planner, provider := newPlanner(conv, res, 0)

	out, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)

	assert.Empty(t, out.Anomalies)
	assert.False(t, out.Degraded())
	assert.Equal(t, 2, out.ToolCalls)
	assert.Equal(t, 2, res.calls)
	require.Len(t, provider.specs, 1)
	assert.Equal(t, tools.FindPlacesName, provider.specs[0].Name)

	it := out.Itinerary
	assert.Equal(t, "Parisian Art & Coffee for 2", it.Title)
	require.Len(t, it.Days, 2)
	assert.Equal(t, 1, it.Days[0].Day)
	assert.Equal(t, 2, it.Days[1].Day)
	assert.Equal(t, "2024-09-10", it.Days[0].Date)
	assert.Equal(t, "2024-09-11", it.Days[1].Date)

	first := it.Days[0].Activities[0]
	require.NotNil(t, first.PlaceDetails)
	assert.Equal(t, eiffel, *first.PlaceDetails, "place details are copied verbatim from the tool result")
	assert.Nil(t, it.Days[0].Activities[1].PlaceDetails)
	require.NotNil(t, it.Days[1].Activities[0].PlaceDetails)
	assert.Equal(t, flore.ID, it.Days[1].Activities[0].PlaceDetails.ID)

	require.Len(t, conv.results, 2)
	places := conv.results[0][0].Response["places"].([]any)
	require.Len(t, places, 1)
	assert.Equal(t, eiffel.ID, places[0].(map[string]any)["id"])
	require.Len(t, conv.prompts, 1)
	assert.Contains(t, conv.prompts[0], "Day 2: 2024-09-11")
}

func TestGenerateRomeWithFailingLookups(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		callTools(findPlaces("Rome, Italy", "restaurant", "carbonara")),
		reply(`{"itineraryTitle":"Roman Holiday","structuredItinerary":[{"day":1,"activities":[{"id":"a","description":"Dinner in Trastevere"}]}]}`),
	}}
	planner, _ := newPlanner(conv, &catalogResolver{}, 0)
	req := parisTrip()
	req.Destination = "Rome, Italy"
	req.EndDate = req.StartDate

	out, err := planner.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Itinerary.Days, 1)
	assert.Nil(t, out.Itinerary.Days[0].Activities[0].PlaceDetails)
	assert.Equal(t, "2024-09-10", out.Itinerary.Days[0].Date)

	resp := conv.results[0][0].Response
	assert.Equal(t, []any{}, resp["places"])
	assert.NotContains(t, resp, "error")
}

func TestGenerateNullItineraryIsDegraded(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		reply(`{"itineraryTitle":"Trip","structuredItinerary":null}`),
	}}
	planner, _ := newPlanner(conv, &catalogResolver{}, 0)

	out, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)
	assert.Equal(t, "Trip", out.Itinerary.Title)
	assert.NotNil(t, out.Itinerary.Days)
	assert.Empty(t, out.Itinerary.Days)
	require.Len(t, out.Anomalies, 1)
	assert.Equal(t, AnomalyMalformedItinerary, out.Anomalies[0].Kind)
	assert.True(t, out.Degraded())
}

func TestGenerateFailsWithoutStructuredPayload(t *testing.T) {
	for _, text := range []string{"", "I'm sorry, I can't plan that trip.", `{"itineraryTitle": "broken",`} {
		conv := &scriptedConversation{steps: []step{reply(text)}}
		planner, _ := newPlanner(conv, &catalogResolver{}, 0)

		out, err := planner.Generate(context.Background(), parisTrip())
		assert.ErrorIs(t, err, ErrGenerationFailed, "output %q", text)
		assert.Nil(t, out)
	}
}

func TestGenerateFailsWhenModelErrors(t *testing.T) {
	conv := &scriptedConversation{}
	planner, _ := newPlanner(conv, &catalogResolver{}, 0)

	_, err := planner.Generate(context.Background(), parisTrip())
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerateEnforcesToolBudget(t *testing.T) {
	conv := &scriptedConversation{repeat: callTools(findPlaces("Paris, France", "cafe", ""))}
	res := &catalogResolver{catalog: map[maps.Category][]maps.PlaceCandidate{maps.CategoryCafe: {flore}}}
	planner, _ := newPlanner(conv, res, 3)

	_, err := planner.Generate(context.Background(), parisTrip())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolBudgetExceeded)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 3, res.calls)
}

func TestGenerateDiscardsResultsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conv := &scriptedConversation{steps: []step{
		callTools(findPlaces("Paris, France", "attraction", "")),
		reply(parisItinerary),
	}}
	res := &catalogResolver{
		catalog: map[maps.Category][]maps.PlaceCandidate{maps.CategoryAttraction: {eiffel}},
		hook:    cancel,
	}
	planner, _ := newPlanner(conv, res, 0)

	out, err := planner.Generate(ctx, parisTrip())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conv.results, "tool results must not reach the model after cancellation")
}

func TestGenerateAnswersContractViolations(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		callTools(findPlaces("Paris, France", "museum", "Louvre")),
		reply(`{"itineraryTitle":"Paris","structuredItinerary":[{"day":1,"activities":[]},{"day":2,"activities":[]}]}`),
	}}
	res := &catalogResolver{}
	planner, _ := newPlanner(conv, res, 0)

	out, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)
	assert.Len(t, out.Itinerary.Days, 2)
	assert.Equal(t, 0, res.calls)

	resp := conv.results[0][0].Response
	assert.Equal(t, []any{}, resp["places"])
	assert.Contains(t, resp["error"], "museum")
}

func TestGenerateAnswersUnknownTool(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		callTools(findPlaces("Paris, France", "cafe", ""), ai.ToolCall{Name: "bookHotel", Args: map[string]any{}}),
		reply(`{"itineraryTitle":"Paris","structuredItinerary":[]}`),
	}}
	res := &catalogResolver{}
	planner, _ := newPlanner(conv, res, 0)

	out, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)
	assert.Equal(t, 2, out.ToolCalls)
	require.Len(t, conv.results[0], 2)
	assert.Equal(t, "bookHotel", conv.results[0][1].Name)
	assert.Contains(t, conv.results[0][1].Response["error"], "unknown tool")
}

func TestGenerateDropsUngroundedPlaceDetails(t *testing.T) {
	conv := &scriptedConversation{steps: []step{
		reply(parisItinerary),
	}}
	planner, _ := newPlanner(conv, &catalogResolver{}, 0)

	out, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)
	for _, d := range out.Itinerary.Days {
		for _, a := range d.Activities {
			assert.Nil(t, a.PlaceDetails)
		}
	}
	kinds := anomalyKinds(out.Anomalies)
	assert.Equal(t, 2, kinds[AnomalyUngroundedPlace])
}

func TestGenerateRejectsInvalidTrip(t *testing.T) {
	conv := &scriptedConversation{}
	planner, provider := newPlanner(conv, &catalogResolver{}, 0)

	req := parisTrip()
	req.EndDate = types.NewDate(2024, time.September, 1)
	_, err := planner.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidTrip)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, provider.started)
}

func TestGenerateLogsAnomaliesAndFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	conv := &scriptedConversation{steps: []step{
		reply(`{"structuredItinerary":[]}`),
		reply("no json here"),
	}}
	provider := &fakeProvider{conv: conv}
	planner := NewTripPlanner(provider, tools.NewFindPlaces(&catalogResolver{}, nil), PlannerOptions{Logger: zap.New(core)})

	_, err := planner.Generate(context.Background(), parisTrip())
	require.NoError(t, err)
	anomalies := logs.FilterMessage("model output anomaly").FilterField(zap.String("kind", AnomalyMissingTitle)).All()
	require.Len(t, anomalies, 1)
	assert.Equal(t, zapcore.WarnLevel, anomalies[0].Level)
	assert.Equal(t, "Paris, France", anomalies[0].ContextMap()["destination"])

	_, err = planner.Generate(context.Background(), parisTrip())
	require.ErrorIs(t, err, ErrGenerationFailed)
	failures := logs.FilterMessage("itinerary generation failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "tool_call_pending", StateToolCallPending.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func anomalyKinds(as []Anomaly) map[string]int {
	out := make(map[string]int)
	for _, a := range as {
		out[a.Kind]++
	}
	return out
}
