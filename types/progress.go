package types

// Progress is the monotonically updated progress surface polled by callers:
// a stage label, a percentage for the current item, and an item counter.
type Progress struct {
	Stage   string
	Percent float64
	Current int
	Total   int
}

// Outcome is the terminal state of a generation run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the terminal report of a generation run. Err is nil unless
// Outcome is OutcomeError.
type Result struct {
	Outcome Outcome
	Err     error
	// Revision is the material revision the run wrote to.
	Revision MaterialRevision
	// JobsCompleted counts backend jobs that produced an image.
	JobsCompleted int
}
