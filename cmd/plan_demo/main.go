// README: CLI demo; runs one itinerary generation against live Gemini and Places and prints the JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tripplanner/internal/ai"
	"tripplanner/internal/config"
	"tripplanner/internal/maps"
	"tripplanner/internal/observability"
	"tripplanner/internal/service"
	"tripplanner/internal/tools"
	"tripplanner/internal/types"
)

func main() {
	destination := flag.String("destination", "Paris, France", "trip destination")
	start := flag.String("start", time.Now().AddDate(0, 0, 14).Format("2006-01-02"), "start date (YYYY-MM-DD)")
	days := flag.Int("days", 2, "trip length in days")
	people := flag.Int("people", 2, "number of travellers")
	budget := flag.Float64("budget", 1500, "total budget")
	prefs := flag.String("prefs", "art museums, local cafes", "free-text preferences")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := observability.NewLogger("debug", false)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startDate, err := types.ParseDate(*start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Planning.GenerateTimeout)
	defer cancel()

	provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer provider.Close()

	places, err := maps.NewPlacesService(cfg.Places.APIKey, maps.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to initialize places: %v", err)
	}
	resolver := maps.NewCachedResolver(places, nil, cfg.Places.CacheTTL, logger)
	planner := service.NewTripPlanner(provider, tools.NewFindPlaces(resolver, logger), service.PlannerOptions{
		MaxToolCalls: cfg.Planning.MaxToolCalls,
		Logger:       logger,
	})

	req := service.TripRequest{
		Destination:    *destination,
		StartDate:      startDate,
		EndDate:        startDate.AddDays(*days - 1),
		NumberOfPeople: *people,
		Budget:         *budget,
		Preferences:    *prefs,
	}
	fmt.Printf("Planning %d day(s) in %s from %s\n", req.Days(), req.Destination, req.StartDate)

	res, err := planner.Generate(ctx, req)
	if err != nil {
		log.Fatalf("Error generating itinerary: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Tool calls: %d, anomalies: %d\n", res.ToolCalls, len(res.Anomalies))
}
