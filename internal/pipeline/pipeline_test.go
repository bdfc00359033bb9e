package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
	"github.com/couchcryptid/sounding-skewt/internal/observability"
)

const validFeed = `# ZONDE upper-air observation
202608260000 47102 1000.0   111.0  25.0  20.0 180  5.0 1
202608260000 47102  850.0  1457.0  15.0  12.0 200  8.0 1
202608260000 47102  700.0  3012.0   5.0   2.0 220 12.0 1
202608260000 47102  500.0  5574.0 -18.0 -22.0 240 20.0 1
202608260000 47102  300.0  9164.0 -45.0 -50.0 250 30.0 1
`

type mockFetcher struct {
	mu    sync.Mutex
	calls int
	// failures is the number of leading calls that return an error.
	failures int
	text     string
	err      error
}

func (m *mockFetcher) Fetch(_ context.Context) (domain.RawFeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return domain.RawFeed{}, m.err
	}
	return domain.RawFeed{
		Station:     "47102",
		Text:        []byte(m.text),
		RetrievedAt: time.Now().UTC(),
	}, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Analysis
	err       error
	notify    chan struct{}
}

func (m *mockPublisher) Publish(_ context.Context, a domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, a)
	if m.notify != nil {
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func newTestPipeline(f Fetcher, pub Publisher, interval time.Duration) (*Pipeline, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.DiscardHandler)
	p := New(f, pub, logger, metrics, clockwork.NewRealClock(), interval, "Seoul/Osan")
	return p, metrics
}

func TestPipeline_FirstCycleImmediate(t *testing.T) {
	fetcher := &mockFetcher{text: validFeed}
	publisher := &mockPublisher{notify: make(chan struct{}, 1)}
	p, _ := newTestPipeline(fetcher, publisher, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-publisher.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no analysis published within deadline")
	}
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 1, publisher.count())
	a := publisher.published[0]
	assert.Equal(t, "47102", a.Station)
	assert.Equal(t, "Seoul/Osan", a.StationName)
	assert.Len(t, a.Sounding.Levels, 5)
	assert.True(t, a.Energy.HasCAPE())

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, a.Station, latest.Station)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_NotReadyBeforeFirstAnalysis(t *testing.T) {
	p, _ := newTestPipeline(&mockFetcher{text: validFeed}, &mockPublisher{}, time.Hour)

	assert.Error(t, p.CheckReadiness(context.Background()))
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestPipeline_ParseErrorNotRetried(t *testing.T) {
	fetcher := &mockFetcher{text: "garbage that is not a sounding\n"}
	publisher := &mockPublisher{}
	p, metrics := newTestPipeline(fetcher, publisher, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.cycle(ctx)

	assert.Equal(t, 1, fetcher.callCount(), "rejected text must not be refetched")
	assert.Equal(t, 0, publisher.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ParseErrors))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_TransientFetchErrorRetried(t *testing.T) {
	fetcher := &mockFetcher{
		text:     validFeed,
		failures: 2,
		err:      errors.New("connection reset"),
	}
	publisher := &mockPublisher{}
	p, metrics := newTestPipeline(fetcher, publisher, time.Hour)

	p.cycle(context.Background())

	assert.Equal(t, 3, fetcher.callCount())
	assert.Equal(t, 1, publisher.count())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FetchErrors))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_PublishErrorCounted(t *testing.T) {
	fetcher := &mockFetcher{text: validFeed}
	publisher := &mockPublisher{err: errors.New("broker unavailable")}
	p, metrics := newTestPipeline(fetcher, publisher, time.Hour)

	p.cycle(context.Background())

	assert.Equal(t, float64(maxAttempts), testutil.ToFloat64(metrics.PublishErrors))
	assert.Error(t, p.CheckReadiness(context.Background()), "failed publish must not mark ready")
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	fetcher := &mockFetcher{text: validFeed}
	p, _ := newTestPipeline(fetcher, &mockPublisher{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, fetcher.callCount(), 2, "ticker should drive repeat cycles")
}

func TestPipeline_DroppedRecordsCounted(t *testing.T) {
	feed := validFeed +
		"202608260000 47102  250.0 -999.0 -999.0 -999.0 250 35.0 1\n" +
		"202608260000 47102  200.0 11800.0 -52.0 -40.0 260 40.0 1\n"
	fetcher := &mockFetcher{text: feed}
	p, metrics := newTestPipeline(fetcher, &mockPublisher{}, time.Hour)

	p.cycle(context.Background())

	// one sentinel record, one supersaturated record
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RecordsDropped))
	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Len(t, latest.Sounding.Levels, 5)
}

func TestLogPublisher(t *testing.T) {
	lp := LogPublisher{Logger: slog.New(slog.DiscardHandler)}
	err := lp.Publish(context.Background(), domain.Analysis{Station: "47102"})
	assert.NoError(t, err)
}
