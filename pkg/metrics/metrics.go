// Package metrics exposes runtime counters to Prometheus. Every metric is
// read from the atomic counters of the components at scrape time, so
// nothing here runs on the loop.
package metrics

import (
	"context"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahendrakumarshinde/iu.go/pkg/calibration"
	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Namespace prefixes every metric.
const Namespace = "iu"

// Registry collects the metrics of a device.
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates a Registry.
func NewRegistry() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

func (r *Registry) counter(subsystem, name, help string, labels prometheus.Labels, fn func() uint64) {
	r.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 { return float64(fn()) }))
}

// AddFramer exports the counters of a framer.
func (r *Registry) AddFramer(stream string, f *comm.Framer) {
	labels := prometheus.Labels{"stream": stream}
	r.counter("framer", "frames_total", "Frames completed.", labels,
		func() uint64 { return f.Stats().Frames })
	r.counter("framer", "overflows_total", "Frames which outgrew the buffer.", labels,
		func() uint64 { return f.Stats().Overflows })
	r.counter("framer", "timeouts_total", "Partial frames discarded after the reception timeout.", labels,
		func() uint64 { return f.Stats().Timeouts })
	r.counter("framer", "dropped_bytes_total", "Bytes discarded.", labels,
		func() uint64 { return f.Stats().Dropped })
}

// AddTimeHelper exports the counters of the time helper.
func (r *Registry) AddTimeHelper(h *timesync.Helper) {
	r.counter("timesync", "ntp_requests_total", "NTP requests sent.", nil,
		func() uint64 { return h.Stats().Requests })
	r.counter("timesync", "ntp_responses_total", "Valid NTP responses applied.", nil,
		func() uint64 { return h.Stats().Responses })
	r.counter("timesync", "ntp_timeouts_total", "NTP requests abandoned.", nil,
		func() uint64 { return h.Stats().Timeouts })
	r.counter("timesync", "ntp_malformed_total", "Unusable NTP responses.", nil,
		func() uint64 { return h.Stats().Malformed })
	r.counter("timesync", "ntp_send_errors_total", "NTP requests which could not be sent.", nil,
		func() uint64 { return h.Stats().SendErrors })
	r.counter("timesync", "authoritative_updates_total", "Authoritative time updates applied.", nil,
		func() uint64 { return h.Stats().AuthUpdates })
}

// AddCalibration exports the counters of a calibration session.
func (r *Registry) AddCalibration(s *calibration.Session) {
	r.counter("calibration", "completed_total", "Calibrations completed.", nil,
		func() uint64 { return s.Stats().Completed })
	r.counter("calibration", "timeouts_total", "Calibrations abandoned.", nil,
		func() uint64 { return s.Stats().TimedOut })
	r.counter("calibration", "rejected_total", "Calibration parts rejected.", nil,
		func() uint64 { return s.Stats().Rejected })
}

// DeliveryCounter is implemented by producers.
type DeliveryCounter interface {
	Deliveries() uint64
}

// AddProducer exports the deliveries of a producer.
func (r *Registry) AddProducer(name string, p DeliveryCounter) {
	r.counter("producer", "deliveries_total", "Values delivered to receivers.",
		prometheus.Labels{"producer": name}, p.Deliveries)
}

// Handler returns the HTTP handler serving the metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Server serves the metrics over HTTP.
type Server struct {
	Addr     string
	Registry *Registry
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Registry.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("metrics on %s/metrics", s.Addr)
	err := framework.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}
