package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/excalidrive/excalidrive/pkg/drive"
)

// driveMetrics is the Prometheus implementation of drive.Metrics.
type driveMetrics struct {
	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	orphanedBlobsTotal *prometheus.CounterVec
}

// NewDriveMetrics creates a Prometheus-backed drive.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called); the
// coordinator treats nil as a no-op receiver.
func NewDriveMetrics() drive.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &driveMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "excalidrive_drive_operations_total",
				Help: "Total number of drive operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "excalidrive_drive_operation_duration_milliseconds",
				Help: "Duration of drive operations in milliseconds",
				Buckets: []float64{
					1,    // 1ms - metadata-only operations
					10,   // 10ms
					50,   // 50ms - local blob I/O
					100,  // 100ms
					500,  // 500ms - remote blob I/O
					1000, // 1s
					5000, // 5s - large subtree moves
				},
			},
			[]string{"operation"},
		),
		orphanedBlobsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "excalidrive_orphaned_blobs_total",
				Help: "Total number of blobs left behind by failed compensations, pending reconciliation",
			},
			[]string{"provider"},
		),
	}
}

func (m *driveMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *driveMetrics) RecordOrphanedBlob(provider string) {
	if m == nil {
		return
	}
	m.orphanedBlobsTotal.WithLabelValues(provider).Inc()
}
