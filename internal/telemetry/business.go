package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/mto-floor-go/internal/models"
)

// BusinessTracer starts spans for the domain operations: slate listing,
// feed fetches and predictions.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a tracer backed by the global provider. A nil
// tracer argument is allowed and means the global business tracer.
func NewBusinessTracer(tracer trace.Tracer) *BusinessTracer {
	if tracer == nil {
		tracer = GetBusinessTracer()
	}
	return &BusinessTracer{tracer: tracer}
}

// FusionMetrics summarizes one slate assembly.
type FusionMetrics struct {
	ScoreFeedGames int
	OddsFeedGames  int
	FusedGames     int
	ScoreFeedOK    bool
	OddsFeedOK     bool
}

// TraceGameListing starts a span covering fetch, fuse and filter for one slate.
func (bt *BusinessTracer) TraceGameListing(ctx context.Context, sport models.Sport, window string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "games.list",
		trace.WithAttributes(
			attribute.String("sport", string(sport)),
			attribute.String("window", window),
		),
	)
}

// RecordFusion adds the slate counts to span.
func (bt *BusinessTracer) RecordFusion(span trace.Span, metrics FusionMetrics) {
	span.SetAttributes(
		attribute.Int("fusion.score_feed_games", metrics.ScoreFeedGames),
		attribute.Int("fusion.odds_feed_games", metrics.OddsFeedGames),
		attribute.Int("fusion.fused_games", metrics.FusedGames),
		attribute.Bool("fusion.score_feed_ok", metrics.ScoreFeedOK),
		attribute.Bool("fusion.odds_feed_ok", metrics.OddsFeedOK),
	)
	if !metrics.ScoreFeedOK && !metrics.OddsFeedOK {
		span.SetStatus(codes.Error, "both feeds unavailable")
	}
}

// TraceFeedFetch starts a span for one adapter call.
func (bt *BusinessTracer) TraceFeedFetch(ctx context.Context, source models.SourceTag, sport models.Sport) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "feed.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("feed.source", string(source)),
			attribute.String("sport", string(sport)),
		),
	)
}

// RecordFeedHealth adds the adapter outcome to span.
func (bt *BusinessTracer) RecordFeedHealth(span trace.Span, health models.FeedHealth) {
	span.SetAttributes(
		attribute.Bool("feed.ok", health.OK),
		attribute.Int("feed.count", health.LastCount),
	)
	if !health.OK {
		span.SetAttributes(attribute.String("feed.error", health.LastError))
		span.SetStatus(codes.Error, health.LastError)
	}
}

// TracePrediction starts a span for one floor prediction.
func (bt *BusinessTracer) TracePrediction(ctx context.Context, gameID string, sport models.Sport) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "prediction.compute",
		trace.WithAttributes(
			attribute.String("game.id", gameID),
			attribute.String("sport", string(sport)),
		),
	)
}

// RecordPrediction adds the headline numbers of p to span.
func (bt *BusinessTracer) RecordPrediction(span trace.Span, p models.MTOPrediction, cached bool) {
	span.SetAttributes(
		attribute.Float64("prediction.expected_total", p.ExpectedTotal),
		attribute.Float64("prediction.floor", p.MTOFloor),
		attribute.Float64("prediction.confidence", p.Confidence),
		attribute.String("prediction.band", string(p.ConfidenceBand)),
		attribute.Bool("prediction.stays_away", p.StaysAway),
		attribute.Float64("prediction.completeness", p.DataCompleteness),
		attribute.String("market.source", string(p.MarketFeatures.Source)),
		attribute.Bool("cache.hit", cached),
	)
}

// RecordError marks span failed.
func (bt *BusinessTracer) RecordError(span trace.Span, err error, description string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}
