// Package metrics exports link statistics to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/uartlink/pkg/l0/serial"
)

const namespace = "uartlink"

// StatsSource provides link statistics.
type StatsSource interface {
	Stats() serial.Stats
}

type counter struct {
	name  string
	help  string
	value func(serial.Stats) uint64
}

var counters = []counter{
	{"rx_bytes_total", "bytes received on the application line", func(s serial.Stats) uint64 { return s.RxBytes }},
	{"rx_dropped_bytes_total", "received bytes dropped on queue overflow", func(s serial.Stats) uint64 { return s.RxDropped }},
	{"frames_received_total", "frames decoded", func(s serial.Stats) uint64 { return s.FramesReceived }},
	{"frames_sent_total", "frames transmitted", func(s serial.Stats) uint64 { return s.FramesSent }},
	{"tx_errors_total", "frames not transmitted because of encode or write errors", func(s serial.Stats) uint64 { return s.TxErrors }},
	{"discarded_bytes_total", "bytes skipped while resynchronizing", func(s serial.Stats) uint64 { return s.Discarded }},
	{"crc_errors_total", "frames rejected by checksum", func(s serial.Stats) uint64 { return s.CRCErrors }},
}

// Register registers the counters of src on reg. labels are attached
// as constant labels, e.g. the port name.
func Register(reg prometheus.Registerer, src StatsSource, labels prometheus.Labels) error {
	for _, c := range counters {
		value := c.value
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "link",
			Name:        c.name,
			Help:        c.help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(value(src.Stats()))
		})
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
