package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncTokenIssued is a no-op.
func (n *NoopRecorder) IncTokenIssued() {}

// IncAuthFailed is a no-op.
func (n *NoopRecorder) IncAuthFailed() {}

// IncRecipeCreated is a no-op.
func (n *NoopRecorder) IncRecipeCreated() {}

// IncRecipeUpdated is a no-op.
func (n *NoopRecorder) IncRecipeUpdated() {}

// IncRecipeDeleted is a no-op.
func (n *NoopRecorder) IncRecipeDeleted() {}

// IncCatalogItemCreated is a no-op.
func (n *NoopRecorder) IncCatalogItemCreated(kind string) {}

// IncImageUploaded is a no-op.
func (n *NoopRecorder) IncImageUploaded() {}

// IncImageRejected is a no-op.
func (n *NoopRecorder) IncImageRejected() {}
