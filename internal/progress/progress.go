package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageDerive    Stage = "derive"
	StageReconcile Stage = "reconcile"
	StageRender    Stage = "render"
	StageComplete  Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	Elapsed time.Duration
	Error   error
	// OutputFile is set on StageComplete with the rendered post path.
	OutputFile string
	// Paragraphs is the detected paragraph count, set from StageDerive on.
	Paragraphs int
	// Slug is the entry's slug, set from StageReconcile on.
	Slug string
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
