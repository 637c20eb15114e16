package fiberprometheus

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FiberPrometheus records per-route request metrics on its own registry.
type FiberPrometheus struct {
	registry         *prometheus.Registry
	constLabels      prometheus.Labels
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	defaultURL       string
}

// New creates a collector set labelled with the given service name.
func New(serviceName string) *FiberPrometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "http_requests_total",
		Help:        "Count all http requests by status code, method and path.",
		ConstLabels: constLabels,
	}, []string{"status_code", "method", "path"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Help:        "Duration of all HTTP requests by status code, method and path.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"status_code", "method", "path"})

	requestsInFlight := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "http_requests_in_progress_total",
		Help:        "All the requests in progress",
		ConstLabels: constLabels,
	}, []string{"method"})

	registry.MustRegister(requestsTotal, requestDuration, requestsInFlight)

	return &FiberPrometheus{
		registry:         registry,
		constLabels:      constLabels,
		requestsTotal:    requestsTotal,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
	}
}

func (p *FiberPrometheus) GetRegistry() *prometheus.Registry {
	return p.registry
}

func (p *FiberPrometheus) GetConstLabels() prometheus.Labels {
	return p.constLabels
}

// RegisterAt exposes the registry in the Prometheus text format at url.
func (p *FiberPrometheus) RegisterAt(app fiber.Router, url string, handlers ...fiber.Handler) {
	p.defaultURL = url

	h := append(handlers, adaptor.HTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})))
	app.Get(p.defaultURL, h...)
}

// Middleware records the request. Requests for the metrics endpoint itself
// are not counted.
func (p *FiberPrometheus) Middleware(ctx *fiber.Ctx) error {
	start := time.Now()
	method := ctx.Method()

	if ctx.Path() == p.defaultURL {
		return ctx.Next()
	}

	p.requestsInFlight.WithLabelValues(method).Inc()
	defer p.requestsInFlight.WithLabelValues(method).Dec()

	err := ctx.Next()

	status := fiber.StatusInternalServerError
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
	} else {
		status = ctx.Response().StatusCode()
	}

	// Route().Path is the registered pattern, which keeps label cardinality
	// bounded for paths with ids.
	path := ctx.Route().Path
	if path == "/" && ctx.Path() != "/" {
		path = "unmatched"
	}

	statusCode := strconv.Itoa(status)
	p.requestsTotal.WithLabelValues(statusCode, method, path).Inc()
	p.requestDuration.WithLabelValues(statusCode, method, path).Observe(time.Since(start).Seconds())

	return err
}
