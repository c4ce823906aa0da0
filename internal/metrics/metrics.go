// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Identity metrics
	IncUserCreated()
	IncTokenIssued()
	IncAuthFailed()

	// Recipe metrics
	IncRecipeCreated()
	IncRecipeUpdated()
	IncRecipeDeleted()

	// IncCatalogItemCreated counts tags or ingredients created while
	// reconciling a recipe payload. kind is "tag" or "ingredient".
	IncCatalogItemCreated(kind string)

	// Image upload metrics
	IncImageUploaded()
	IncImageRejected()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
