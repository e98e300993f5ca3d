// Package metrics records operational counters for refreshes, resolutions and HTTP traffic
package metrics

import (
	"time"
)

// Resolution paths recorded by the resolver
const (
	PathIdentity = "identity"
	PathDirect   = "direct"
	PathInverse  = "inverse"
	PathMiss     = "miss"
	PathError    = "error"
)

// Recorder defines the interface for collecting core metrics.
type Recorder interface {
	// Refresh outcome is "success", "partial" or a failure kind label
	RecordRefresh(base, outcome string, duration time.Duration)
	RecordUpsert(success bool)
	RecordResolution(path string)
	RecordConversion(converted bool)
	RecordBreakerState(name, state string)
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
}

// NoOpRecorder discards every measurement
type NoOpRecorder struct{}

func (NoOpRecorder) RecordRefresh(base, outcome string, duration time.Duration) {}

func (NoOpRecorder) RecordUpsert(success bool) {}

func (NoOpRecorder) RecordResolution(path string) {}

func (NoOpRecorder) RecordConversion(converted bool) {}

func (NoOpRecorder) RecordBreakerState(name, state string) {}

func (NoOpRecorder) RecordHTTPRequest(route, method string, status int, duration time.Duration) {}
