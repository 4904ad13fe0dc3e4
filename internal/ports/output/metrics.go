package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncUploadCount increments the upload counter.
	IncUploadCount(success bool)

	// IncDeleteCount increments the delete counter.
	IncDeleteCount(success bool)

	// IncLoadCount increments the overlay load counter by outcome
	// (rendered, failed, stale).
	IncLoadCount(outcome string)

	// SetLayerCount sets the number of cataloged layers.
	SetLayerCount(count int)

	// SetOrphanedPayloads sets the number of payloads without a record.
	SetOrphanedPayloads(count int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncUploadCount implements MetricsCollector.
func (n *NoOpMetrics) IncUploadCount(_ bool) {}

// IncDeleteCount implements MetricsCollector.
func (n *NoOpMetrics) IncDeleteCount(_ bool) {}

// IncLoadCount implements MetricsCollector.
func (n *NoOpMetrics) IncLoadCount(_ string) {}

// SetLayerCount implements MetricsCollector.
func (n *NoOpMetrics) SetLayerCount(_ int) {}

// SetOrphanedPayloads implements MetricsCollector.
func (n *NoOpMetrics) SetOrphanedPayloads(_ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
