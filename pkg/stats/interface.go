package stats

// Provider defines the interface for components that expose statistics
type Provider interface {
	// GetStats returns all statistics
	GetStats() map[string]interface{}

	// GetStatsFiltered returns statistics whose key starts with prefix
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector records row provider activity
type Collector interface {
	Provider

	// TrackOperation records a single provider call
	TrackOperation(op OperationType)

	// TrackOperationWithLatency records a provider call with its latency
	TrackOperationWithLatency(op OperationType, latencyNs uint64)

	// TrackError increments the counter for the specified error type
	TrackError(errorType string)

	// TrackRows adds n to the number of rows handed out by providers
	TrackRows(n uint64)

	// Count returns how many times op was recorded
	Count(op OperationType) uint64

	// Reset zeroes every counter
	Reset()
}

var _ Collector = (*AtomicCollector)(nil)
