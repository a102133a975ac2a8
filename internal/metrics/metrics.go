package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DownloadEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fetchd",
			Name:      "download_events_total",
			Help:      "Count of download events processed by the relay.",
		},
		[]string{"type"},
	)

	ActiveDownload = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fetchd",
			Name:      "active_download",
			Help:      "Whether a transfer currently occupies the download slot (0 or 1).",
		},
	)

	TransferredBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fetchd",
			Name:      "transferred_bytes_total",
			Help:      "Bytes written to the storage sink across all transfers.",
		},
	)

	TransferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fetchd",
			Name:      "transfer_duration_seconds",
			Help:      "Wall time from an accepted start to its terminal event.",
		},
	)
)

// Register registers the fetchd metrics into the default registry.
func Register() {
	prometheus.MustRegister(DownloadEvents, ActiveDownload, TransferredBytes, TransferDuration)
}
