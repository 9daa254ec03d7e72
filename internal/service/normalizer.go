package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"tripplanner/internal/maps"
	"tripplanner/internal/types"
)

// Normalize coerces a decoded model payload into a valid Itinerary. It never fails:
// every repair it makes is reported as an Anomaly instead.
func Normalize(payload map[string]json.RawMessage) (Itinerary, []Anomaly) {
	n := &normalizer{}
	it := Itinerary{
		Title: n.title(payload["itineraryTitle"]),
		Days:  n.days(payload["structuredItinerary"]),
	}
	return it, n.anomalies
}

type normalizer struct {
	anomalies []Anomaly
}

func (n *normalizer) add(kind, path, detail string) {
	n.anomalies = append(n.anomalies, Anomaly{Kind: kind, Path: path, Detail: detail})
}

func (n *normalizer) title(raw json.RawMessage) string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		n.add(AnomalyMissingTitle, "itineraryTitle", "replaced with fallback title")
		return FallbackTitle
	}
	return strings.TrimSpace(s)
}

func (n *normalizer) days(raw json.RawMessage) []DayPlan {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		n.add(AnomalyMalformedItinerary, "structuredItinerary", "missing or not an array")
		return []DayPlan{}
	}

	days := make([]DayPlan, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("structuredItinerary[%d]", i)
		var fields map[string]json.RawMessage
		if isNull(item) || json.Unmarshal(item, &fields) != nil {
			n.add(AnomalyMalformedDay, path, "not an object")
			continue
		}
		days = append(days, n.day(path, fields))
	}
	return days
}

func (n *normalizer) day(path string, f map[string]json.RawMessage) DayPlan {
	d := DayPlan{
		Day:     n.intField(path+".day", f["day"]),
		Date:    n.stringField(path+".date", f["date"]),
		Title:   n.stringField(path+".title", f["title"]),
		Summary: n.stringField(path+".summary", f["summary"]),
	}

	var items []json.RawMessage
	if raw := f["activities"]; isNull(raw) || json.Unmarshal(raw, &items) != nil {
		n.add(AnomalyMalformedActivities, path+".activities", "missing or not an array")
		d.Activities = []Activity{}
		return d
	}

	d.Activities = make([]Activity, 0, len(items))
	for i, item := range items {
		apath := fmt.Sprintf("%s.activities[%d]", path, i)
		var fields map[string]json.RawMessage
		if isNull(item) || json.Unmarshal(item, &fields) != nil {
			n.add(AnomalyMalformedActivity, apath, "not an object")
			continue
		}
		d.Activities = append(d.Activities, n.activity(apath, fields))
	}
	return d
}

func (n *normalizer) activity(path string, f map[string]json.RawMessage) Activity {
	return Activity{
		ID:           n.stringField(path+".id", f["id"]),
		Time:         n.stringField(path+".time", f["time"]),
		Description:  n.stringField(path+".description", f["description"]),
		Notes:        n.stringField(path+".notes", f["notes"]),
		PlaceDetails: n.placeDetails(path+".placeDetails", f["placeDetails"]),
	}
}

func (n *normalizer) placeDetails(path string, raw json.RawMessage) *maps.PlaceCandidate {
	if isNull(raw) {
		return nil
	}
	var pd maps.PlaceCandidate
	if err := json.Unmarshal(raw, &pd); err != nil {
		n.add(AnomalyInvalidPlaceDetails, path, "dropped: "+err.Error())
		return nil
	}
	if reason := placeDetailsProblem(pd); reason != "" {
		n.add(AnomalyInvalidPlaceDetails, path, "dropped: "+reason)
		return nil
	}
	return &pd
}

func placeDetailsProblem(pd maps.PlaceCandidate) string {
	switch {
	case strings.TrimSpace(pd.ID) == "":
		return "empty id"
	case strings.TrimSpace(pd.Name) == "":
		return "empty name"
	case (pd.Latitude == nil) != (pd.Longitude == nil):
		return "only one coordinate present"
	case pd.Latitude != nil && !(types.LatLng{Lat: *pd.Latitude, Lng: *pd.Longitude}).Valid():
		return "coordinates out of range"
	}
	return ""
}

// stringField accepts a JSON string; anything else except absence or null is reported and blanked.
func (n *normalizer) stringField(path string, raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		n.add(AnomalyMalformedField, path, "expected a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (n *normalizer) intField(path string, raw json.RawMessage) int {
	if isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f != math.Trunc(f) {
		n.add(AnomalyMalformedField, path, "expected an integer")
		return 0
	}
	return int(f)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
