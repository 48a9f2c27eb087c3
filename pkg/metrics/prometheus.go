package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpLabels = []string{"code", "method", "url"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code, method and route.",
	Type:        "counter_vec",
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "The HTTP request sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var standardMetrics = []*Metric{reqCnt, reqDur, resSz, reqSz}

const defaultMetricPath = "/metrics"

// RequestCounterURLLabelMappingFn controls the "url" label. Map parameterized paths to
// their route template so document ids do not each get a time series.
type RequestCounterURLLabelMappingFn func(c *gin.Context) string

// Prometheus records HTTP metrics for a gin engine and owns the registry the business
// counters are registered in.
type Prometheus struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	registry    *prometheus.Registry
	MetricsList []*Metric
	MetricsPath string

	ReqCntURLLabelMappingFn RequestCounterURLLabelMappingFn

	listenAddress string
	server        *http.Server
	logger        *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	Subsystem               string
	MetricsList             []*Metric
	MetricsPath             string
	ReqCntURLLabelMappingFn func(c *gin.Context) string
	Logger                  *zap.SugaredLogger
}

// NewPrometheus registers the standard HTTP metrics plus options.MetricsList in a fresh
// registry that also carries the Go runtime and process collectors.
func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		registry:    prometheus.NewRegistry(),
		MetricsList: append(append([]*Metric{}, options.MetricsList...), standardMetrics...),
		MetricsPath: options.MetricsPath,
		logger:      options.Logger,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	p.ReqCntURLLabelMappingFn = options.ReqCntURLLabelMappingFn
	if p.ReqCntURLLabelMappingFn == nil {
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		}
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}

	p.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	p.registerMetrics(options.Subsystem)
	return p
}

func (p *Prometheus) registerMetrics(subsystem string) {
	for _, def := range p.MetricsList {
		metric := NewMetric(def, subsystem)
		if metric == nil {
			p.logger.Errorw("metric_type_unknown", "name", def.Name, "type", def.Type)
			continue
		}
		if err := p.registry.Register(metric); err != nil {
			p.logger.Errorw("metric_register_failed", "name", def.Name, "err", err)
			continue
		}
		switch def {
		case reqCnt:
			p.reqCnt = metric.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = metric.(*prometheus.HistogramVec)
		case resSz:
			p.resSz = metric.(*prometheus.SummaryVec)
		case reqSz:
			p.reqSz = metric.(*prometheus.SummaryVec)
		}
		if b, ok := businessCollectors[def]; ok {
			*b = metric.(*prometheus.CounterVec)
		}
		def.MetricCollector = metric
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// SetListenAddress moves the metrics endpoint to its own listener. Without it the
// endpoint is mounted on the instrumented engine.
func (p *Prometheus) SetListenAddress(address string) {
	p.listenAddress = address
}

// Use adds the middleware to e and mounts the metrics path when no separate listener
// is configured.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	if p.listenAddress == "" {
		h := p.Handler()
		e.GET(p.MetricsPath, func(c *gin.Context) { h.ServeHTTP(c.Writer, c.Request) })
	}
}

// Start serves the metrics path on the configured listen address. It is a no-op when
// the endpoint shares the API engine.
func (p *Prometheus) Start() {
	if p.listenAddress == "" || p.server != nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(p.MetricsPath, p.Handler())
	p.server = &http.Server{Addr: p.listenAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorw("metrics_server_stopped", "addr", p.listenAddress, "err", err)
		}
	}()
}

// Stop shuts the metrics listener down.
func (p *Prometheus) Stop(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

// HandlerFunc records one observation per request, skipping the metrics path itself.
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		reqSize := computeApproximateRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, p.ReqCntURLLabelMappingFn(c)}
		if p.reqDur != nil {
			p.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		}
		if p.reqCnt != nil {
			p.reqCnt.WithLabelValues(labels...).Inc()
		}
		if p.reqSz != nil {
			p.reqSz.WithLabelValues(labels...).Observe(float64(reqSize))
		}
		if p.resSz != nil {
			p.resSz.WithLabelValues(labels...).Observe(float64(c.Writer.Size()))
		}
	}
}
