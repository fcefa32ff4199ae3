package segment

import "fmt"

// ValidationError reports malformed segment data detected at construction
// (bad timestamps, negative duration). It is fatal to the offending record,
// not to the pipeline run: stages whose contract allows partial results may
// drop or flag the record and continue.
type ValidationError struct {
	// Field names the offending field ("start", "end", "timestamps").
	Field string

	// Reason describes the violation.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("segment: invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports invalid stage parameters (non-positive batch
// size, min speakers above max, non-positive character budget). It is raised
// before any external call is made, so a misconfigured stage fails fast.
type ConfigurationError struct {
	// Param names the offending parameter.
	Param string

	// Reason describes the violation.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("segment: invalid configuration %s: %s", e.Param, e.Reason)
}

// CollaboratorError wraps a failure of an external collaborator (speech
// recognizer, diarization model, correction or translation service) after
// retries were exhausted. It is propagated as a stage-level failure.
type CollaboratorError struct {
	// Collaborator names the failing service ("stt", "diarize", "correct",
	// "translate", "render").
	Collaborator string

	// Err is the underlying failure.
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("segment: collaborator %s failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// AlignmentError reports that a collaborator response violated the batch
// merge contract: wrong result count, reordering, or results for context
// segments. It always aborts the current stage for the file — a partial or
// mis-ordered transcript silently patched together would corrupt downstream
// timing, which is worse than an explicit failure.
type AlignmentError struct {
	// Stage names the stage whose merge detected the violation.
	Stage string

	// Want and Got are the expected and observed result counts when the
	// violation is a count mismatch; both are zero otherwise.
	Want int
	Got  int

	// Reason describes the violation.
	Reason string
}

func (e *AlignmentError) Error() string {
	if e.Want != 0 || e.Got != 0 {
		return fmt.Sprintf("segment: alignment violation in %s: %s (want %d results, got %d)", e.Stage, e.Reason, e.Want, e.Got)
	}
	return fmt.Sprintf("segment: alignment violation in %s: %s", e.Stage, e.Reason)
}
