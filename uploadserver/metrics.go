package uploadserver

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK                   = "ok"
	resultMissingFile          = "missing_file"
	resultUnsupportedExtension = "unsupported_extension"
	resultInvalidName          = "invalid_name"
	resultIOError              = "io_error"
)

type metrics struct {
	uploads     *prometheus.CounterVec
	uploadBytes prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sheetdrop",
			Name:      "uploads_total",
			Help:      "Spreadsheet upload attempts by result",
		}, []string{"result"}),
		uploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sheetdrop",
			Name:      "upload_bytes",
			Help:      "Size of stored spreadsheet uploads in bytes",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 8),
		}),
	}
}

func (m *metrics) observe(result string, size int) {
	m.uploads.WithLabelValues(result).Inc()
	if result == resultOK {
		m.uploadBytes.Observe(float64(size))
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrMissingFile):
		return resultMissingFile
	case errors.Is(err, ErrUnsupportedExtension):
		return resultUnsupportedExtension
	case errors.Is(err, ErrInvalidName):
		return resultInvalidName
	default:
		return resultIOError
	}
}
