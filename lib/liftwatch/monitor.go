// Package liftwatch ties the lift-status pipeline together: it decides
// whether to fetch, retrieves and extracts when allowed, and serves the
// last-known-good value everywhere else. The caller-facing rule is
// simple: you always get a StatusMap, never an error about the source.
package liftwatch

import (
	"context"
	"log/slog"
	"strings"

	"liftwatch/lib/liftwatch/cache"
	"liftwatch/lib/liftwatch/extract"
	"liftwatch/lib/liftwatch/retrieve"
	"liftwatch/lib/liftwatch/schedule"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("liftwatch")
var meter = otel.Meter("liftwatch")

// Retriever is satisfied by *retrieve.Chain. Injectable for tests.
type Retriever interface {
	Retrieve(ctx context.Context, url string) retrieve.Outcome
}

type Options struct {
	// URL of the lift report page.
	URL string
	// Strategies are tried in order; first non-empty extraction wins.
	Strategies []extract.Strategy
	// Retriever fetches raw markup for the live path.
	Retriever Retriever
	// Scheduler owns the fetch-now decision.
	Scheduler *schedule.State
	// Cache holds the last-known-good value. Optional; a fresh empty
	// cache is created when nil.
	Cache *cache.Cache
}

// Monitor watches one resort's lift report.
type Monitor struct {
	url        string
	strategies []extract.Strategy
	retriever  Retriever
	sched      *schedule.State
	cache      *cache.Cache

	flight singleflight.Group

	// baseCtx scopes in-flight fetches so Close can abort a browser
	// session mid-render during shutdown
	baseCtx context.Context
	cancel  context.CancelFunc

	servedStale metric.Int64Counter
}

func New(opts Options) *Monitor {
	c := opts.Cache
	if c == nil {
		c = cache.New()
	}
	baseCtx, cancel := context.WithCancel(context.Background())

	servedStale, err := meter.Int64Counter("liftwatch.served_stale",
		metric.WithDescription("queries answered from the cache instead of a fresh fetch"))
	if err != nil {
		slog.Warn("failed to register served_stale counter", "err", err)
	}

	return &Monitor{
		url:         opts.URL,
		strategies:  opts.Strategies,
		retriever:   opts.Retriever,
		sched:       opts.Scheduler,
		cache:       c,
		baseCtx:     baseCtx,
		cancel:      cancel,
		servedStale: servedStale,
	}
}

// Close aborts any in-flight fetch. Queries after Close still answer
// from the cache.
func (m *Monitor) Close() {
	m.cancel()
}

// Cache exposes the monitor's cache, mainly for staleness reporting.
func (m *Monitor) Cache() *cache.Cache {
	return m.cache
}

// StatusFromDocument extracts lift status from an already-fetched
// document, e.g. one produced by an upstream crawl. It is a pure
// function of the document: no scheduling state moves, no network or
// cache I/O happens. ok is false when no strategy finds any rows.
func (m *Monitor) StatusFromDocument(ctx context.Context, doc *goquery.Document) (extract.StatusMap, bool) {
	_, span := tracer.Start(ctx, "StatusFromDocument")
	defer span.End()

	result := extract.First(doc, m.strategies...)
	span.SetAttributes(attribute.Int("lifts", len(result)))
	return result, len(result) > 0
}

// CurrentStatus answers a live status query. It records caller
// activity, asks the scheduler whether a fresh fetch is allowed, and
// either joins the single in-flight fetch or serves the cached value.
// Data-source trouble is never surfaced: the only visible effect of
// any failure is a stale answer.
func (m *Monitor) CurrentStatus(ctx context.Context) extract.StatusMap {
	ctx, span := tracer.Start(ctx, "CurrentStatus")
	defer span.End()

	m.sched.RecordRequest()

	if !m.sched.ShouldFetchNow() {
		slog.DebugContext(ctx, "fetch declined by scheduler, serving cache", "url", m.url)
		m.recordStale(ctx)
		span.SetAttributes(attribute.Bool("fresh", false))
		return m.cache.Get()
	}

	// concurrent callers that all pass the scheduler check join one
	// outstanding fetch instead of racing duplicate browser launches
	v, _, shared := m.flight.Do(m.url, func() (interface{}, error) {
		return m.fetchIfStillDue(ctx), nil
	})
	span.SetAttributes(attribute.Bool("fresh", true), attribute.Bool("shared", shared))
	return v.(extract.StatusMap)
}

// fetchIfStillDue re-checks the scheduler once inside the flight: a
// caller that passed the outer check while a fetch was in flight, but
// arrived here just after it completed, would otherwise start a second
// fetch right after RecordAttempt armed the backoff window.
func (m *Monitor) fetchIfStillDue(ctx context.Context) extract.StatusMap {
	if !m.sched.ShouldFetchNow() {
		slog.DebugContext(ctx, "fetch window closed while joining flight, serving cache", "url", m.url)
		m.recordStale(ctx)
		return m.cache.Get()
	}
	return m.fetchFresh()
}

// fetchFresh performs one retrieve→extract→cache cycle. Timing state
// advances no matter how the attempt ends.
func (m *Monitor) fetchFresh() extract.StatusMap {
	// the fetch runs under the monitor's own context, not any single
	// caller's: other callers share the outcome, and Close aborts it
	ctx, span := tracer.Start(m.baseCtx, "fetchFresh")
	defer span.End()

	defer m.sched.RecordAttempt()

	out := m.retriever.Retrieve(ctx, m.url)
	if out.NoData() {
		slog.WarnContext(ctx, "retrieval produced no data, serving cache", "url", m.url)
		m.recordStale(ctx)
		return m.cache.Get()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.HTML))
	if err != nil {
		slog.WarnContext(ctx, "fetched markup failed to parse, serving cache",
			"url", m.url, "err", err)
		span.RecordError(err)
		m.recordStale(ctx)
		return m.cache.Get()
	}

	result := extract.First(doc, m.strategies...)
	if len(result) == 0 {
		// a page with zero recognizable rows is treated as drift or a
		// challenge page, never as "all lifts gone"
		slog.WarnContext(ctx, "no lift rows extracted, serving cache",
			"url", m.url, "strategy", out.Strategy)
		m.recordStale(ctx)
		return m.cache.Get()
	}

	m.cache.Set(result)
	slog.InfoContext(ctx, "lift status refreshed",
		"url", m.url, "strategy", out.Strategy, "lifts", len(result))
	span.SetAttributes(attribute.Int("lifts", len(result)))
	return result
}

func (m *Monitor) recordStale(ctx context.Context) {
	if m.servedStale != nil {
		m.servedStale.Add(ctx, 1, metric.WithAttributes(attribute.String("url", m.url)))
	}
}
