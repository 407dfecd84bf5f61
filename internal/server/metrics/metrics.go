// Package metrics exposes server metrics in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
)

const namespace = "mousetrap"

// Collector holds all Prometheus metrics of the server on its own registry.
type Collector struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ActiveHandlers      prometheus.Gauge
	FreeSlots           prometheus.Gauge
	Requests            *prometheus.CounterVec

	TrainingRuns     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	TrainingCost     prometheus.Gauge
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted endpoint connections",
		}),
		ActiveHandlers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_handlers",
			Help:      "Number of connection handlers currently running",
		}),
		FreeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_slots",
			Help:      "Number of free connection slots",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of protocol requests by opcode",
		}, []string{"op"}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Total number of model training runs by result",
		}, []string{"result"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Model training duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		TrainingCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_last_cost",
			Help:      "Average reconstruction cost of the last trained model",
		}),
	}

	c.registry.MustRegister(
		c.ConnectionsAccepted,
		c.ActiveHandlers,
		c.FreeSlots,
		c.Requests,
		c.TrainingRuns,
		c.TrainingDuration,
		c.TrainingCost,
	)
	return c
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ConnectionOpened() {
	c.ConnectionsAccepted.Inc()
	c.ActiveHandlers.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.ActiveHandlers.Dec()
}

func (c *Collector) SlotsFree(n int) {
	c.FreeSlots.Set(float64(n))
}

func (c *Collector) Request(op string) {
	c.Requests.WithLabelValues(op).Inc()
}

// TrainingFinished records one training run.
func (c *Collector) TrainingFinished(d time.Duration, cost float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		c.TrainingCost.Set(cost)
	}
	c.TrainingRuns.WithLabelValues(result).Inc()
	c.TrainingDuration.Observe(d.Seconds())
}

// Handler serves the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics until its context is cancelled.
type Server struct {
	addr   string
	c      *Collector
	logger logging.Logger
}

func NewServer(addr string, c *Collector, logger logging.Logger) *Server {
	return &Server{addr: addr, c: c, logger: logger.With("module", "metrics")}
}

// Run listens on the configured address and shuts down when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.c.Handler())

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "metrics server started", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
