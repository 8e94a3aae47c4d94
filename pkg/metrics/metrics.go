// Package metrics counts what a gallery run did: survey fetches, figures
// and sources. A batch run is not a server, so the numbers are written
// out in the node_exporter textfile format at the end rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the gallery's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Fetches        *prometheus.CounterVec
	FetchDurations *prometheus.HistogramVec
	Figures        *prometheus.CounterVec
	Sources        *prometheus.CounterVec
	SourceDuration prometheus.Histogram
}

// NewCollector registers the metrics against `reg`, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	fetches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_survey_fetches_total",
		Help: "Survey image fetches, labeled by survey and outcome.",
	}, []string{"survey", "outcome"}), "gallery_survey_fetches_total")
	if err != nil {
		return nil, err
	}

	fetchDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gallery_survey_fetch_duration_seconds",
		Help:    "Survey image fetch latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"survey"}), "gallery_survey_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	figures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_figures_total",
		Help: "Figures, labeled by kind and outcome (written, exists, skipped, failed).",
	}, []string{"kind", "outcome"}), "gallery_figures_total")
	if err != nil {
		return nil, err
	}

	sources, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_sources_total",
		Help: "Sources processed, labeled by outcome (ok, no_coverage, failed).",
	}, []string{"outcome"}), "gallery_sources_total")
	if err != nil {
		return nil, err
	}

	sourceDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_source_duration_seconds",
		Help:    "Wall time to process one source.",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})
	if err := reg.Register(sourceDuration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		if sourceDuration, ok = are.ExistingCollector.(prometheus.Histogram); !ok {
			return nil, fmt.Errorf("collector gallery_source_duration_seconds already registered with incompatible type")
		}
	}

	return &Collector{
		gatherer:       gatherer,
		Fetches:        fetches,
		FetchDurations: fetchDurations,
		Figures:        figures,
		Sources:        sources,
		SourceDuration: sourceDuration,
	}, nil
}

// ObserveFetch makes the Collector a survey.FetchObserver.
func (c *Collector) ObserveFetch(survey, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Fetches.WithLabelValues(survey, outcome).Inc()
	c.FetchDurations.WithLabelValues(survey).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveFigure(kind, outcome string) {
	if c == nil {
		return
	}
	c.Figures.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) ObserveSource(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Sources.WithLabelValues(outcome).Inc()
	c.SourceDuration.Observe(elapsed.Seconds())
}

// WriteTextfile dumps every registered metric to `path`, for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics '%s': %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
