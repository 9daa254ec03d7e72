package service

import (
	"fmt"

	"tripplanner/internal/maps"
	"tripplanner/internal/types"
)

// finalize enforces the structural guarantees of a returned itinerary on top of Normalize:
// grounded place details, contiguous day numbers, dates and unique activity IDs.
// seen holds every candidate the tool returned during this generation, keyed by id.
func finalize(it *Itinerary, req TripRequest, seen map[string]maps.PlaceCandidate) []Anomaly {
	var anomalies []Anomaly
	add := func(kind, path, detail string) {
		anomalies = append(anomalies, Anomaly{Kind: kind, Path: path, Detail: detail})
	}

	expected := req.Days()
	if len(it.Days) > 0 && len(it.Days) != expected {
		add(AnomalyDayCountMismatch, "structuredItinerary",
			fmt.Sprintf("got %d days, trip spans %d", len(it.Days), expected))
	}

	used := make(map[string]struct{})
	for i := range it.Days {
		day := &it.Days[i]
		path := fmt.Sprintf("structuredItinerary[%d]", i)

		if day.Day != i+1 {
			if day.Day != 0 {
				add(AnomalyDayRenumbered, path+".day", fmt.Sprintf("%d -> %d", day.Day, i+1))
			}
			day.Day = i + 1
		}
		fixDate(day, i, req, path, add)

		for j := range day.Activities {
			act := &day.Activities[j]
			apath := fmt.Sprintf("%s.activities[%d]", path, j)
			groundPlace(act, seen, apath, add)

			if _, dup := used[act.ID]; act.ID == "" || dup {
				old := act.ID
				act.ID = uniqueActivityID(day.Day, j+1, used)
				add(AnomalyActivityIDRewritten, apath+".id", fmt.Sprintf("%q -> %q", old, act.ID))
			}
			used[act.ID] = struct{}{}
		}
	}
	return anomalies
}

func fixDate(day *DayPlan, i int, req TripRequest, path string, add func(kind, path, detail string)) {
	if i >= req.Days() {
		return
	}
	want := req.StartDate.AddDays(i).String()
	switch {
	case day.Date == "":
		day.Date = want
	case day.Date != want:
		if _, err := types.ParseDate(day.Date); err != nil {
			add(AnomalyInvalidDate, path+".date", fmt.Sprintf("%q replaced with %s", day.Date, want))
			day.Date = want
		}
	}
}

// groundPlace keeps placeDetails only when its id was returned by the tool, and then
// restores every field verbatim from that candidate.
func groundPlace(act *Activity, seen map[string]maps.PlaceCandidate, path string, add func(kind, path, detail string)) {
	if act.PlaceDetails == nil {
		return
	}
	c, ok := seen[act.PlaceDetails.ID]
	if !ok {
		add(AnomalyUngroundedPlace, path+".placeDetails", fmt.Sprintf("id %q was not returned by the place lookup", act.PlaceDetails.ID))
		act.PlaceDetails = nil
		return
	}
	c = clonePlace(c)
	act.PlaceDetails = &c
}

func uniqueActivityID(day, n int, used map[string]struct{}) string {
	id := fmt.Sprintf("day%d-activity%d", day, n)
	for k := 2; ; k++ {
		if _, taken := used[id]; !taken {
			return id
		}
		id = fmt.Sprintf("day%d-activity%d-%d", day, n, k)
	}
}

func clonePlace(p maps.PlaceCandidate) maps.PlaceCandidate {
	if p.Latitude != nil {
		lat := *p.Latitude
		p.Latitude = &lat
	}
	if p.Longitude != nil {
		lng := *p.Longitude
		p.Longitude = &lng
	}
	return p
}
