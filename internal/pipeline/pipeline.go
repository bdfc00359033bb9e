// Package pipeline orchestrates the analysis cycle: fetch the raw feed,
// parse and validate it, lift the surface parcel, integrate CAPE/CIN, and
// hand the finished analysis to the publisher. The pipeline owns no
// thermodynamics; it wires pure domain transforms to I/O adapters.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
	"github.com/couchcryptid/sounding-skewt/internal/observability"
)

// Fetcher retrieves one raw sounding feed. Implementations own transport
// concerns (timeouts, encoding); the pipeline never performs I/O itself.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RawFeed, error)
}

// Publisher delivers a finished analysis to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, a domain.Analysis) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 5
)

// Pipeline runs the fetch-analyze-publish cycle on a fixed interval.
type Pipeline struct {
	fetcher     Fetcher
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	interval    time.Duration
	stationName string

	ready  atomic.Bool
	latest atomic.Pointer[domain.Analysis]
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, pub Publisher, logger *slog.Logger, metrics *observability.Metrics,
	clock clockwork.Clock, interval time.Duration, stationName string) *Pipeline {
	return &Pipeline{
		fetcher:     f,
		publisher:   pub,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		interval:    interval,
		stationName: stationName,
	}
}

// CheckReadiness returns nil once at least one analysis has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no sounding analyzed yet")
	}
	return nil
}

// Latest returns the most recent analysis, if any cycle has succeeded.
func (p *Pipeline) Latest() (domain.Analysis, bool) {
	a := p.latest.Load()
	if a == nil {
		return domain.Analysis{}, false
	}
	return *a, true
}

// Run executes analysis cycles until the context is cancelled. The first
// cycle starts immediately; later ones follow the configured interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.cycle(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.cycle(ctx)
		}
	}
}

// cycle runs one fetch-analyze-publish pass, retrying transient fetch and
// publish failures with exponential backoff. Parse failures are not
// retried: the same text would fail the same way, and the next
// observation cycle supersedes it.
func (p *Pipeline) cycle(ctx context.Context) {
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := p.runOnce(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrEmptySounding) || errors.Is(err, domain.ErrMalformedRecord) {
			p.metrics.ParseErrors.Inc()
			p.logger.Error("sounding rejected", "error", err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		p.logger.Warn("cycle failed, backing off",
			"error", err, "attempt", attempt, "backoff", backoff)
		if !p.sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
	p.logger.Error("cycle abandoned until next interval", "attempts", maxAttempts)
}

// runOnce performs a single end-to-end pass.
func (p *Pipeline) runOnce(ctx context.Context) error {
	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.metrics.FetchErrors.Inc()
		return err
	}
	p.metrics.SoundingsFetched.Inc()

	analysis, err := p.analyze(raw)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, analysis); err != nil {
		p.metrics.PublishErrors.Inc()
		return err
	}
	p.metrics.AnalysesPublished.Inc()

	p.latest.Store(&analysis)
	p.ready.Store(true)

	p.logger.Info("sounding analyzed",
		"station", analysis.Station,
		"observed_at", analysis.ObservedAt,
		"levels", len(analysis.Sounding.Levels),
		"lcl_hpa", analysis.Trace.LCL.Pressure,
		"cape_jkg", energyValue(analysis.Energy.CAPE, analysis.Energy.HasCAPE()),
		"cin_jkg", energyValue(analysis.Energy.CIN, analysis.Energy.HasCIN()),
	)
	return nil
}

// analyze is the pure part of the cycle: raw text in, analysis out.
func (p *Pipeline) analyze(raw domain.RawFeed) (domain.Analysis, error) {
	start := time.Now()

	sounding, report, err := domain.ParseSounding(raw.Station, raw.Text)
	dropped := report.Missing + report.Inconsistent + report.BadTimestamp + report.Malformed + report.Duplicates
	if dropped > 0 {
		p.metrics.RecordsDropped.Add(float64(dropped))
	}
	if err != nil {
		return domain.Analysis{}, err
	}
	p.metrics.SoundingLevels.Observe(float64(report.Levels))

	trace, err := domain.ComputeParcelProfile(sounding)
	if err != nil {
		return domain.Analysis{}, err
	}
	p.metrics.LCLIterations.Observe(float64(trace.LCL.Iterations))
	if !trace.LCL.Converged {
		p.metrics.LCLNonConvergence.Inc()
		p.logger.Warn("LCL solver hit iteration cap, using best estimate",
			"station", sounding.Station, "lcl_hpa", trace.LCL.Pressure)
	}

	energy := domain.ComputeEnergy(trace)
	switch {
	case energy.HasCAPE():
		p.metrics.CapeJoules.Set(energy.CAPE)
		p.metrics.CinJoules.Set(energy.CIN)
	default:
		p.metrics.EnergyUndefined.Inc()
	}

	p.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	return domain.NewAnalysis(p.stationName, sounding, trace, energy), nil
}

// sleep waits for the backoff duration on the pipeline clock, returning
// false if the context was cancelled first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// energyValue renders an energy for logging: the number, or "unavailable"
// when the profile has no defined value. Never logs a bare NaN.
func energyValue(v float64, defined bool) any {
	if !defined {
		return "unavailable"
	}
	return v
}
