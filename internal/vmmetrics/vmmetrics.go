// Package vmmetrics exposes Prometheus counters and histograms for the
// decoding engine, mirroring the teacher's internal/observability
// metrics package: package-level vectors, a sync.Once-guarded register,
// and small record-style helper functions called from the hot path
// instead of the metric types leaking out of this package.
package vmmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	elementsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yactfr",
			Subsystem: "vm",
			Name:      "elements_emitted_total",
			Help:      "Total decoding elements emitted by the VM, by element kind.",
		},
		[]string{"kind"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yactfr",
			Subsystem: "vm",
			Name:      "decode_errors_total",
			Help:      "Total decode errors surfaced at Next(), by error kind.",
		},
		[]string{"kind"},
	)
	packetsDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "yactfr",
			Subsystem: "vm",
			Name:      "packets_decoded_total",
			Help:      "Total packets for which PacketEnd was emitted.",
		},
	)
	packetDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "yactfr",
			Subsystem: "vm",
			Name:      "packet_decode_duration_seconds",
			Help:      "Wall-clock time spent decoding one packet, from PacketBegin to PacketEnd.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register installs the package's collectors with the default
// Prometheus registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(elementsEmitted, decodeErrors, packetsDecoded, packetDuration)
	})
}

// RecordElement increments the per-kind element counter.
func RecordElement(kind string) {
	Register()
	elementsEmitted.WithLabelValues(kind).Inc()
}

// RecordError increments the per-kind decode error counter.
func RecordError(kind string) {
	Register()
	decodeErrors.WithLabelValues(kind).Inc()
}

// RecordPacket records one fully decoded packet's wall-clock duration.
func RecordPacket(d time.Duration) {
	Register()
	packetsDecoded.Inc()
	packetDuration.Observe(d.Seconds())
}
