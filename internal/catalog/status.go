package catalog

import "fmt"

// Status is the closed set of states a catalog entry moves through. String
// comparison is never used for transition decisions; Transition consults the
// table below and rejects everything else.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusPublished  Status = "published"
)

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError, StatusPublished:
		return true
	}
	return false
}

// transitions is the explicit state machine: pending→processing,
// processing→completed|error, completed→published (first publish) or back to
// processing on update, published→processing on update, error→processing on
// retry. processing→processing is allowed so an entry saved mid-run (a crash
// before the render save) can be picked up again. All transitions are
// user-triggered; no state is terminal except via removal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessing, StatusCompleted, StatusError},
	StatusCompleted:  {StatusPublished, StatusProcessing},
	StatusPublished:  {StatusProcessing},
	StatusError:      {StatusProcessing},
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s → %s", e.From, e.To)
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the entry to the requested status, rejecting anything the
// table does not allow.
func (e *Entry) Transition(to Status) error {
	if !to.Valid() {
		return &TransitionError{From: e.Status, To: to}
	}
	if !CanTransition(e.Status, to) {
		return &TransitionError{From: e.Status, To: to}
	}
	e.Status = to
	return nil
}
