package service

import (
	"fmt"
	"strings"

	"tripplanner/internal/tools"
)

// BuildItineraryPrompt renders the instruction prompt for one trip. It carries the
// grounding policy the model is expected to follow when calling the place lookup tool.
func BuildItineraryPrompt(req TripRequest) string {
	days := req.Days()
	var dates strings.Builder
	for i := 0; i < days; i++ {
		fmt.Fprintf(&dates, "  - Day %d: %s\n", i+1, req.StartDate.AddDays(i))
	}

	preferences := strings.TrimSpace(req.Preferences)
	if preferences == "" {
		preferences = "none stated"
	}

	return fmt.Sprintf(`You are an expert travel planner. Generate a detailed, multi-day travel itinerary for the trip below.

Trip:
- Destination: %[1]s
- Start date: %[2]s
- End date: %[3]s
- Number of people: %[4]d
- Budget: %[5]s
- Preferences: %[6]s

The trip spans exactly %[7]d day(s):
%[8]s
Output format:
Return ONE JSON object and nothing else:
{
  "itineraryTitle": string,            // short, catchy title for the whole trip, not the itinerary itself
  "structuredItinerary": [             // exactly one entry per day listed above, in order
    {
      "day": number,                   // 1-based
      "date": "YYYY-MM-DD",
      "title": string,
      "summary": string,               // one or two sentences
      "activities": [
        {
          "id": "day{D}-activity{N}",  // unique across the whole itinerary
          "time": string,              // e.g. "Morning", "1:00 PM", "Evening"
          "description": string,
          "placeDetails": { "id", "name", "category", "latitude", "longitude", "imageUrl", "description" },
          "notes": string
        }
      ]
    }
  ]
}

Place policy:
1. Whenever an activity involves a specific establishment (restaurant, cafe, museum, park, landmark) you MUST call %[9]s for it, once per such activity.
   Use "%[1]s" as the location, category "restaurant", "attraction" or "cafe", and a query that reflects the preferences or the activity.
2. If the tool returns places, pick the most suitable one and copy its fields into placeDetails EXACTLY as returned: id, name, category, latitude, longitude, imageUrl, description.
   Mention the place by that exact name in the activity description.
3. If the tool returns no places, or the activity is general (for example "Relax at the hotel"), omit placeDetails entirely. Never invent a place id.
4. Keep descriptions engaging. Add notes such as booking tips when useful, without spending extra tool calls on them.

Guidelines:
- Respect the budget and the preferences, and keep the plan diverse.
- Schedule a realistic number of activities per day.
- Do not output any text outside the JSON object.
`,
		strings.TrimSpace(req.Destination),
		req.StartDate,
		req.EndDate,
		req.NumberOfPeople,
		formatBudget(req.Budget),
		preferences,
		days,
		dates.String(),
		tools.FindPlacesName,
	)
}

func formatBudget(b float64) string {
	if b == 0 {
		return "not specified"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", b), "0"), ".")
}

func buildDestinationsPrompt(description string) string {
	return fmt.Sprintf(`You are a travel expert. A traveller described the trip they are looking for:

"""%s"""

Suggest between 3 and 5 destinations that fit this trip. For each one give a brief description and explain why it fits the description above.

Return ONE JSON object and nothing else:
{"destinations": [{"name": string, "description": string, "reason": string}]}
`, description)
}

func buildReviewsPrompt(activityName string, reviews []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant that summarizes visitor reviews.\n\nSummarize the following reviews for the activity named %q:\n\n", activityName)
	if len(reviews) == 0 {
		b.WriteString("No reviews were provided. If this is a well-known attraction you may give a general sentiment; otherwise state that no specific review data is available.\n")
	}
	for _, r := range reviews {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\nReturn ONE JSON object and nothing else: {\"summary\": string}\n")
	return b.String()
}
