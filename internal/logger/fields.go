package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain via context
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the import job ID
	FieldJobID = "job_id"

	// FieldRecipeID is the stored recipe ID
	FieldRecipeID = "recipe_id"

	// FieldURL is the source page URL being imported
	FieldURL = "url"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the link source identifier (bookmarks file, url list)
	FieldSource = "source"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldBytes is a payload size in bytes
	FieldBytes = "bytes"

	// FieldStatus is the operation or job status
	FieldStatus = "status"

	// FieldMethod is the extraction method that produced a recipe
	FieldMethod = "method"
)
