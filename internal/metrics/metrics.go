package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	authorizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "latchd_authorize_total",
		Help: "Total authorization attempts by outcome message.",
	}, []string{"result"})

	authorizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "latchd_authorize_duration_seconds",
		Help:    "Authorization request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	devicesRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "latchd_devices_registered_total",
		Help: "Devices auto-registered on first contact.",
	})
)

func init() {
	prometheus.MustRegister(authorizeTotal, authorizeDuration, devicesRegistered)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAuthorize records one authorization attempt.
func ObserveAuthorize(result string, start time.Time) {
	authorizeTotal.WithLabelValues(result).Inc()
	authorizeDuration.Observe(time.Since(start).Seconds())
}

// DeviceRegistered counts one device auto-registration.
func DeviceRegistered() {
	devicesRegistered.Inc()
}
