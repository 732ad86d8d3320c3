package subscription

import (
	"context"

	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/drain-bot/internal/subscription"

type instruments struct {
	tracer         trace.Tracer
	recomputations metric.Int64Counter
	scores         metric.Int64Histogram
}

// newInstruments uses the global providers, which are no-ops until telemetry
// is configured.
func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)

	recomputations, err := meter.Int64Counter(
		"drain.recomputations",
		metric.WithDescription("Drain score recomputations by trigger and resulting tier"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create recomputation counter")
	}

	scores, err := meter.Int64Histogram(
		"drain.score",
		metric.WithDescription("Distribution of computed drain scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 39, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create score histogram")
	}

	return instruments{
		tracer:         otel.Tracer(instrumentationName),
		recomputations: recomputations,
		scores:         scores,
	}
}

func (i instruments) record(ctx context.Context, trigger Trigger, res drain.Result) {
	attrs := metric.WithAttributes(
		attribute.String("trigger", string(trigger)),
		attribute.String("tier", string(res.Tier)),
	)
	if i.recomputations != nil {
		i.recomputations.Add(ctx, 1, attrs)
	}
	if i.scores != nil {
		i.scores.Record(ctx, int64(res.Score), attrs)
	}
}
