package retrieve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name  string
	html  string
	err   error
	calls int
}

func (s *stubStrategy) Name() string {
	return s.name
}

func (s *stubStrategy) Fetch(ctx context.Context, url string) (Outcome, error) {
	s.calls++
	if s.err != nil {
		return Outcome{}, s.err
	}
	return Outcome{HTML: s.html}, nil
}

func TestChainFirstSuccessWins(t *testing.T) {
	a := &stubStrategy{name: "direct", html: "<html>fast path</html>"}
	b := &stubStrategy{name: "browser", html: "<html>slow path</html>"}

	out := NewChain(a, b).Retrieve(context.Background(), "https://resort.example/lifts")

	require.False(t, out.NoData())
	require.Equal(t, "direct", out.Strategy)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 0, b.calls)
}

func TestChainFallsBackOnError(t *testing.T) {
	a := &stubStrategy{name: "direct", err: errors.New("connection refused")}
	b := &stubStrategy{name: "browser", html: "<html>rendered</html>"}

	out := NewChain(a, b).Retrieve(context.Background(), "https://resort.example/lifts")

	require.Equal(t, "browser", out.Strategy)
	require.Contains(t, out.HTML, "rendered")
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
}

func TestChainFallsBackOnEmptyBody(t *testing.T) {
	a := &stubStrategy{name: "direct"}
	b := &stubStrategy{name: "browser", html: "<html>rendered</html>"}

	out := NewChain(a, b).Retrieve(context.Background(), "https://resort.example/lifts")
	require.Equal(t, "browser", out.Strategy)
}

func TestChainExhaustedIsNoDataNotError(t *testing.T) {
	a := &stubStrategy{name: "direct", err: errors.New("dns failure")}
	b := &stubStrategy{name: "browser", err: errors.New("chrome crashed")}

	out := NewChain(a, b).Retrieve(context.Background(), "https://resort.example/lifts")
	require.True(t, out.NoData())
}

func TestBrowserOptionDefaults(t *testing.T) {
	b := NewBrowser(BrowserOptions{Landmark: "#liftReport"})

	require.Equal(t, "#liftReport", b.opts.Landmark)
	require.Positive(t, b.opts.LaunchTimeout)
	require.Positive(t, b.opts.NavigateTimeout)
	require.Positive(t, b.opts.LandmarkTimeout)
	require.Equal(t, 1920, b.opts.ViewportWidth)
	require.Equal(t, 1080, b.opts.ViewportHeight)

	// the overall budget covers every staged timeout with room for the
	// unstaged work (connect, page creation, html capture)
	require.Greater(t, b.opts.OverallTimeout,
		b.opts.LaunchTimeout+b.opts.NavigateTimeout+b.opts.LandmarkTimeout)
}

func TestBrowserSessionAlwaysHasDeadline(t *testing.T) {
	b := NewBrowser(BrowserOptions{OverallTimeout: 45 * time.Second})

	// even an unbounded caller context (the monitor's base context
	// lives until shutdown) must not let a stalled session run forever
	ctx, cancel := b.sessionContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(45*time.Second), deadline, 5*time.Second)
}
