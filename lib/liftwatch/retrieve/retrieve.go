// Package retrieve obtains raw markup for the lift report page. The
// source actively blocks automated clients, so retrieval is an ordered
// chain of strategies: a plain fetch with a spoofed browser identity
// first, and a full headless-browser render when that is not enough.
// Every failure is absorbed into a NoData outcome; callers above this
// layer never see transport errors.
package retrieve

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("liftwatch/retrieve")

// Outcome is the result of one retrieval. The zero value is NoData.
type Outcome struct {
	HTML     string
	Strategy string
}

func (o Outcome) NoData() bool {
	return o.HTML == ""
}

// Strategy fetches the page one particular way. Errors are reported
// to the chain for logging but are never surfaced past it.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (Outcome, error)
}

// Chain tries each strategy in order and returns the first outcome
// that carries markup.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

func (c *Chain) Retrieve(ctx context.Context, url string) Outcome {
	ctx, span := tracer.Start(ctx, "Retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	for _, s := range c.strategies {
		out, err := s.Fetch(ctx, url)
		if err != nil {
			slog.WarnContext(ctx, "retrieval strategy failed",
				"strategy", s.Name(), "url", url, "err", err)
			span.RecordError(err)
			continue
		}
		if out.NoData() {
			slog.DebugContext(ctx, "retrieval strategy returned no data",
				"strategy", s.Name(), "url", url)
			continue
		}
		out.Strategy = s.Name()
		span.SetAttributes(attribute.String("strategy", out.Strategy))
		return out
	}

	span.SetStatus(codes.Error, "all retrieval strategies exhausted")
	return Outcome{}
}
