package workflow

import "time"

// Step names the pipeline stages in execution order.
type Step string

const (
	StepDiscovery         Step = "episode_discovery"
	StepDownload          Step = "audio_download"
	StepLanguageDetection Step = "language_detection"
	StepTranscription     Step = "transcription"
	StepAnalysis          Step = "analysis"
	StepOutput            Step = "output_generation"
)

// milestones are the steps whose completion makes a later failure
// "recoverable": enough work finished that diagnostics are worth surfacing
// in detail instead of a flat error.
var milestones = map[Step]struct{}{
	StepDiscovery:     {},
	StepDownload:      {},
	StepTranscription: {},
	StepAnalysis:      {},
}

// StepFailure records a fatal error attributed to one step.
type StepFailure struct {
	Step Step
	Err  error
}

// StepWarning records a non-fatal advisory attributed to one step.
type StepWarning struct {
	Step    Step
	Message string
}

// State is the transient, per-invocation workflow record. It exists for
// diagnostics only and is never persisted.
type State struct {
	Current   Step
	Completed []Step
	Failures  []StepFailure
	Warnings  []StepWarning
	StartedAt time.Time
}

// NewState creates a state stamped with the wall-clock start time.
func NewState() *State {
	return &State{StartedAt: time.Now()}
}

// Begin marks a step as the one currently executing.
func (s *State) Begin(step Step) {
	s.Current = step
}

// Complete records a finished step.
func (s *State) Complete(step Step) {
	s.Completed = append(s.Completed, step)
}

// Fail records a fatal error for a step.
func (s *State) Fail(step Step, err error) {
	s.Failures = append(s.Failures, StepFailure{Step: step, Err: err})
}

// Warn records a non-fatal advisory for a step.
func (s *State) Warn(step Step, message string) {
	s.Warnings = append(s.Warnings, StepWarning{Step: step, Message: message})
}

// CompletedStep reports whether the named step finished.
func (s *State) CompletedStep(step Step) bool {
	for _, done := range s.Completed {
		if done == step {
			return true
		}
	}
	return false
}

// Recoverable reports whether at least one milestone step completed before
// the failure.
func (s *State) Recoverable() bool {
	for _, done := range s.Completed {
		if _, ok := milestones[done]; ok {
			return true
		}
	}
	return false
}

// Elapsed returns the wall-clock time since the workflow started.
func (s *State) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
