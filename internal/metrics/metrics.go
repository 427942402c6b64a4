// Package metrics exposes the estimator throughput as OpenTelemetry
// instruments. Install sets up an SDK MeterProvider with a manual reader so
// the service can report the collected values itself; without it the global
// provider is a no-op.
package metrics

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/thebtf/coinscope/internal/scheduler"
)

// ScopeName is the instrumentation scope used by Default.
const ScopeName = "github.com/thebtf/coinscope"

// Attribute keys and values.
const (
	EstimatorKey = attribute.Key("estimator")

	EstimatorAdaptive   = "adaptive"
	EstimatorRefinement = "refinement"
	EstimatorDirect     = "direct"
)

// Recorder records tick and session events.
type Recorder struct {
	ticks        metric.Int64Counter
	skipped      metric.Int64Counter
	tickDuration metric.Float64Histogram
	steps        metric.Int64Counter
	refinements  metric.Int64Counter
	sessions     metric.Int64Counter
}

// NewRecorder creates all instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	if r.ticks, err = meter.Int64Counter("coinscope.ticks",
		metric.WithDescription("Ticks that advanced the estimators"),
		metric.WithUnit("{tick}")); err != nil {
		return nil, err
	}
	if r.skipped, err = meter.Int64Counter("coinscope.ticks.skipped",
		metric.WithDescription("Ticks skipped because the session was paused"),
		metric.WithUnit("{tick}")); err != nil {
		return nil, err
	}
	if r.tickDuration, err = meter.Float64Histogram("coinscope.tick.duration",
		metric.WithDescription("Wall time spent in one tick"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.steps, err = meter.Int64Counter("coinscope.steps",
		metric.WithDescription("Monte Carlo steps or samples per estimator"),
		metric.WithUnit("{step}")); err != nil {
		return nil, err
	}
	if r.refinements, err = meter.Int64Counter("coinscope.refinements",
		metric.WithDescription("Refinements of the entropic estimate"),
		metric.WithUnit("{refinement}")); err != nil {
		return nil, err
	}
	if r.sessions, err = meter.Int64Counter("coinscope.sessions",
		metric.WithDescription("Sessions started"),
		metric.WithUnit("{session}")); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns a Recorder on the global MeterProvider.
func Default() *Recorder {
	r, err := NewRecorder(otel.Meter(ScopeName))
	if err != nil {
		// The global provider never fails instrument creation for valid names.
		panic(err)
	}
	return r
}

// RecordTick records one tick report.
func (r *Recorder) RecordTick(ctx context.Context, report scheduler.TickReport) {
	if r == nil {
		return
	}
	if report.Skipped {
		r.skipped.Add(ctx, 1)
		return
	}
	r.ticks.Add(ctx, 1)
	r.tickDuration.Record(ctx, report.Duration.Seconds())
	r.addSteps(ctx, EstimatorAdaptive, report.AdaptiveSteps)
	r.addSteps(ctx, EstimatorRefinement, report.RefinementSteps)
	r.addSteps(ctx, EstimatorDirect, report.DirectSamples)
	if report.Refined {
		r.refinements.Add(ctx, 1)
	}
}

// SessionStarted records a new session with n coins.
func (r *Recorder) SessionStarted(ctx context.Context, n int) {
	if r == nil {
		return
	}
	r.sessions.Add(ctx, 1, metric.WithAttributes(attribute.Int("coins", n)))
}

func (r *Recorder) addSteps(ctx context.Context, estimator string, n uint64) {
	if n == 0 {
		return
	}
	r.steps.Add(ctx, int64(n), metric.WithAttributes(EstimatorKey.String(estimator)))
}

// Sample is one collected data point.
type Sample struct {
	Name       string            `json:"name"`
	Unit       string            `json:"unit,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      float64           `json:"value"`
	Count      uint64            `json:"count,omitempty"` // histograms only
}

// Provider owns an SDK MeterProvider read on demand.
type Provider struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewProvider creates a provider with a manual reader.
func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Install creates a Provider and registers it as the global MeterProvider,
// so Default records into it.
func Install() *Provider {
	p := NewProvider()
	otel.SetMeterProvider(p.provider)
	return p
}

// Recorder creates a Recorder on this provider.
func (p *Provider) Recorder() (*Recorder, error) {
	return NewRecorder(p.provider.Meter(ScopeName))
}

// Collect reads every instrument. Sums report their value; histograms report
// their sum and count. Samples are ordered by name.
func (p *Provider) Collect(ctx context.Context) ([]Sample, error) {
	if p == nil {
		return nil, nil
	}
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var out []Sample
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Unit: m.Unit, Attributes: attrs(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Unit: m.Unit, Attributes: attrs(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Sample{Name: m.Name, Unit: m.Unit, Attributes: attrs(dp.Attributes), Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

func attrs(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	out := make(map[string]string, set.Len())
	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}
