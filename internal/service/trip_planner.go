// README: Itinerary generation engine; drives the model/tool exchange and returns a normalized itinerary.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tripplanner/internal/ai"
	"tripplanner/internal/maps"
	"tripplanner/internal/observability"
	"tripplanner/internal/tools"
)

// DefaultMaxToolCalls bounds tool invocations per generation when no limit is configured.
const DefaultMaxToolCalls = 24

// State is the phase of one generation.
type State int

const (
	StateRequested State = iota
	StateToolCallPending
	StateToolResultReceived
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateToolCallPending:
		return "tool_call_pending"
	case StateToolResultReceived:
		return "tool_result_received"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// PlannerOptions tunes a TripPlanner. Zero values select defaults.
type PlannerOptions struct {
	MaxToolCalls int
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// TripPlanner orchestrates the model and the place lookup tool. It holds no per-request
// state, so one instance serves concurrent generations.
type TripPlanner struct {
	provider     ai.LLMProvider
	findPlaces   *tools.FindPlaces
	maxToolCalls int
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// NewTripPlanner creates a TripPlanner with initialized dependencies.
func NewTripPlanner(provider ai.LLMProvider, findPlaces *tools.FindPlaces, opts PlannerOptions) *TripPlanner {
	p := &TripPlanner{
		provider:     provider,
		findPlaces:   findPlaces,
		maxToolCalls: opts.MaxToolCalls,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	if p.maxToolCalls <= 0 {
		p.maxToolCalls = DefaultMaxToolCalls
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.metrics == nil {
		p.metrics = observability.DefaultMetrics()
	}
	return p
}

// generation is the per-call state of Generate.
type generation struct {
	state     State
	round     int
	toolCalls int
	seen      map[string]maps.PlaceCandidate
	logger    *zap.Logger
}

func (g *generation) transition(to State) {
	g.logger.Debug("generation state",
		zap.Stringer("from", g.state),
		zap.Stringer("to", to),
		zap.Int("round", g.round))
	g.state = to
}

// Generate produces an itinerary for req. It fails with ErrInvalidTrip before contacting the
// model, and with ErrGenerationFailed when the model yields no structured payload. Any other
// defect in the model output is repaired and reported in Result.Anomalies.
// Cancelling ctx abandons the generation; pending tool results are then discarded.
func (p *TripPlanner) Generate(ctx context.Context, req TripRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "TripPlanner.Generate", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.days", req.Days()),
	))
	defer span.End()

	start := time.Now()
	logger := p.logger.With(
		zap.String("destination", req.Destination),
		zap.Stringer("start_date", req.StartDate),
		zap.Stringer("end_date", req.EndDate))
	g := &generation{
		state:  StateRequested,
		seen:   make(map[string]maps.PlaceCandidate),
		logger: logger,
	}

	res, err := p.run(ctx, g, req)
	if err != nil {
		g.transition(StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		fields := []zap.Field{
			zap.Int("tool_calls", g.toolCalls),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		}
		if ctx.Err() != nil {
			p.metrics.Generation(ctx, "abandoned")
			logger.Warn("itinerary generation abandoned", fields...)
			return nil, err
		}
		p.metrics.Generation(ctx, "failed")
		logger.Error("itinerary generation failed", fields...)
		return nil, err
	}

	g.transition(StateCompleted)
	span.SetAttributes(
		attribute.Int("generation.tool_calls", res.ToolCalls),
		attribute.Int("generation.anomalies", len(res.Anomalies)))
	outcome := "ok"
	if res.Degraded() {
		outcome = "degraded"
	}
	p.metrics.Generation(ctx, outcome)
	for _, a := range res.Anomalies {
		p.metrics.Anomaly(ctx, a.Kind)
		logger.Warn("model output anomaly",
			zap.String("kind", a.Kind),
			zap.String("path", a.Path),
			zap.String("detail", a.Detail))
	}
	logger.Info("itinerary generated",
		zap.Int("days", len(res.Itinerary.Days)),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (p *TripPlanner) run(ctx context.Context, g *generation, req TripRequest) (*Result, error) {
	conv := p.provider.StartConversation([]ai.ToolSpec{p.findPlaces.Spec()})

	turn, err := conv.Send(ctx, BuildItineraryPrompt(req))
	for {
		if err != nil {
			return nil, generationError("model request failed", err)
		}
		if turn == nil {
			return nil, fmt.Errorf("%w: model returned no turn", ErrGenerationFailed)
		}
		if turn.Terminal() {
			break
		}

		if g.toolCalls+len(turn.ToolCalls) > p.maxToolCalls {
			return nil, fmt.Errorf("%w: %d calls requested, limit is %d",
				ErrToolBudgetExceeded, g.toolCalls+len(turn.ToolCalls), p.maxToolCalls)
		}
		g.round++
		g.transition(StateToolCallPending)

		results := p.callTools(ctx, g, turn.ToolCalls)
		if err := ctx.Err(); err != nil {
			return nil, generationError("abandoned while tools were running", err)
		}
		g.transition(StateToolResultReceived)

		turn, err = conv.SendToolResults(ctx, results)
	}

	text := ai.CleanJSONString(turn.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrGenerationFailed)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: unparsable model output: %w", ErrGenerationFailed, err)
	}

	itinerary, anomalies := Normalize(payload)
	anomalies = append(anomalies, finalize(&itinerary, req, g.seen)...)
	return &Result{Itinerary: itinerary, Anomalies: anomalies, ToolCalls: g.toolCalls}, nil
}

// callTools runs the calls of one model turn in order. Unknown tools and contract
// violations are answered with an error payload so the model can correct itself.
func (p *TripPlanner) callTools(ctx context.Context, g *generation, calls []ai.ToolCall) []ai.ToolResult {
	results := make([]ai.ToolResult, 0, len(calls))
	for _, call := range calls {
		g.toolCalls++
		if call.Name != tools.FindPlacesName {
			p.metrics.ToolCall(ctx, call.Name, "unknown_tool")
			g.logger.Warn("model called unknown tool", zap.String("tool", call.Name))
			results = append(results, ai.ToolResult{
				Name:     call.Name,
				Response: map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)},
			})
			continue
		}

		callCtx, span := observability.Tracer().Start(ctx, "tool."+call.Name)
		places, callErr := p.findPlaces.Call(callCtx, call.Args)
		outcome := "ok"
		switch {
		case callErr != nil:
			outcome = "contract_violation"
			span.RecordError(callErr)
		case len(places) == 0:
			outcome = "empty"
		}
		span.SetAttributes(attribute.String("tool.outcome", outcome), attribute.Int("tool.results", len(places)))
		span.End()
		p.metrics.ToolCall(ctx, call.Name, outcome)

		for _, c := range places {
			g.seen[c.ID] = c
		}
		results = append(results, ai.ToolResult{Name: call.Name, Response: tools.Response(places, callErr)})
	}
	return results
}

func generationError(msg string, err error) error {
	if errors.Is(err, ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrGenerationFailed, msg, err)
}
