package drive

import "time"

// Metrics receives operation observations from the coordinator.
//
// A nil Metrics is valid and results in zero overhead; the prometheus
// implementation lives in pkg/metrics to keep this package free of the
// client_golang dependency.
type Metrics interface {
	// ObserveOperation records a namespace or content operation with its
	// duration and outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordOrphanedBlob counts a blob left behind by a failed compensation
	// or a best-effort delete, for reconciliation dashboards.
	RecordOrphanedBlob(provider string)
}

func observeOperation(m Metrics, operation string, start time.Time, err error) {
	if m != nil {
		m.ObserveOperation(operation, time.Since(start), err)
	}
}

func recordOrphanedBlob(m Metrics, provider string) {
	if m != nil {
		m.RecordOrphanedBlob(provider)
	}
}
