package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greys"

// bridge exposes a Collector's counters to Prometheus without making
// the hot paths depend on prometheus types: Collect reads the atomics
// on scrape and emits const metrics.
type bridge struct {
	c *Collector

	connActive    *prometheus.Desc
	connTotal     *prometheus.Desc
	lines         *prometheus.Desc
	dispatched    *prometheus.Desc
	dropped       *prometheus.Desc
	sessCreated   *prometheus.Desc
	sessDestroyed *prometheus.Desc
	bytesIn       *prometheus.Desc
	bytesOut      *prometheus.Desc
	errs          *prometheus.Desc
}

func newBridge(c *Collector) *bridge {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &bridge{
		c:             c,
		connActive:    desc("connections_active", "Currently open client connections."),
		connTotal:     desc("connections_total", "Lifetime accepted client connections."),
		lines:         desc("lines_decoded_total", "Complete lines emitted by the decoders."),
		dispatched:    desc("commands_dispatched_total", "Lines that reached the command handler."),
		dropped:       desc("commands_dropped_total", "Lines refused because the session was busy or destroyed."),
		sessCreated:   desc("sessions_created_total", "Sessions registered."),
		sessDestroyed: desc("sessions_destroyed_total", "Sessions torn down."),
		bytesIn:       desc("bytes_in_total", "Bytes read from clients."),
		bytesOut:      desc("bytes_out_total", "Bytes written to clients."),
		errs:          desc("errors_total", "I/O and dispatch errors."),
	}
}

func (b *bridge) Describe(ch chan<- *prometheus.Desc) {
	ch <- b.connActive
	ch <- b.connTotal
	ch <- b.lines
	ch <- b.dispatched
	ch <- b.dropped
	ch <- b.sessCreated
	ch <- b.sessDestroyed
	ch <- b.bytesIn
	ch <- b.bytesOut
	ch <- b.errs
}

func (b *bridge) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v int64) prometheus.Metric {
		return prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter := func(d *prometheus.Desc, v int64) prometheus.Metric {
		return prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	ch <- gauge(b.connActive, b.c.connectionsActive.Load())
	ch <- counter(b.connTotal, b.c.connectionsTotal.Load())
	ch <- counter(b.lines, b.c.linesDecoded.Load())
	ch <- counter(b.dispatched, b.c.commandsDispatch.Load())
	ch <- counter(b.dropped, b.c.commandsDropped.Load())
	ch <- counter(b.sessCreated, b.c.sessionsCreated.Load())
	ch <- counter(b.sessDestroyed, b.c.sessionsDestroyed.Load())
	ch <- counter(b.bytesIn, b.c.bytesIn.Load())
	ch <- counter(b.bytesOut, b.c.bytesOut.Load())
	ch <- counter(b.errs, b.c.errorsTotal.Load())
}

// Registry returns a fresh Prometheus registry with the collector's
// bridge (and the standard Go runtime collectors) registered.
func Registry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newBridge(c))
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// Handler returns an http.Handler serving the collector in Prometheus
// exposition format, for mounting at /metrics.
func Handler(c *Collector) http.Handler {
	return promhttp.HandlerFor(Registry(c), promhttp.HandlerOpts{})
}
