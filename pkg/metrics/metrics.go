package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	}
	return metric
}

// Business counters. They stay nil until NewPrometheus registers them, so every
// helper below tolerates a process that runs without the metrics endpoint.
var (
	webhookEvents   *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	uploadAttempts  *prometheus.CounterVec
	sweeperOutcomes *prometheus.CounterVec
)

var webhookEventsDef = &Metric{
	ID:          "webhookEvents",
	Name:        "webhook_events_total",
	Description: "Verified payment processor events, partitioned by event type and result.",
	Type:        "counter_vec",
	Args:        []string{"type", "result"},
}

var deliveriesDef = &Metric{
	ID:          "deliveries",
	Name:        "deliveries_total",
	Description: "Automation service notifications, partitioned by result.",
	Type:        "counter_vec",
	Args:        []string{"result"},
}

var uploadAttemptsDef = &Metric{
	ID:          "uploadAttempts",
	Name:        "upload_attempts_total",
	Description: "Object store upload attempts, partitioned by path and result.",
	Type:        "counter_vec",
	Args:        []string{"path", "result"},
}

var sweeperOutcomesDef = &Metric{
	ID:          "sweeperOutcomes",
	Name:        "sweeper_outcomes_total",
	Description: "Draft sweeper decisions, partitioned by outcome.",
	Type:        "counter_vec",
	Args:        []string{"outcome"},
}

// BusinessMetrics are registered alongside the standard HTTP metrics.
var BusinessMetrics = []*Metric{webhookEventsDef, deliveriesDef, uploadAttemptsDef, sweeperOutcomesDef}

var businessCollectors = map[*Metric]**prometheus.CounterVec{
	webhookEventsDef:   &webhookEvents,
	deliveriesDef:      &deliveries,
	uploadAttemptsDef:  &uploadAttempts,
	sweeperOutcomesDef: &sweeperOutcomes,
}

func inc(v *prometheus.CounterVec, labels ...string) {
	if v == nil {
		return
	}
	v.WithLabelValues(labels...).Inc()
}

func WebhookEvent(eventType, result string) { inc(webhookEvents, eventType, result) }

func Delivery(result string) { inc(deliveries, result) }

func UploadAttempt(path, result string) { inc(uploadAttempts, path, result) }

func SweeperOutcome(outcome string) { inc(sweeperOutcomes, outcome) }

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
