package dag

import "github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"

// State is a stage in a Dag instance's lifecycle:
// Parsed -> Validated -> Published -> Executing -> Finished(success|failure).
type State int

const (
	StateParsed State = iota
	StateValidated
	StatePublished
	StateExecuting
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "Parsed"
	case StateValidated:
		return "Validated"
	case StatePublished:
		return "Published"
	case StateExecuting:
		return "Executing"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Instance tracks a single Dag through its lifecycle. Publication and
// execution-state observation are delegated to external collaborators
// (§6); Instance only enforces the ordering between stages.
type Instance struct {
	Dag      Dag
	state    State
	finished bool // valid only once state == StateFinished; true means success
}

// NewInstance wraps a freshly parsed Dag in the Parsed state.
func NewInstance(d Dag) *Instance {
	return &Instance{Dag: d, state: StateParsed}
}

// State returns the instance's current lifecycle stage.
func (i *Instance) State() State { return i.state }

// Validate runs the structural/concurrency validator and, on success,
// advances Parsed -> Validated. It is only callable from Parsed.
func (i *Instance) Validate() error {
	if i.state != StateParsed {
		return nexuserrors.Internal("dag: Validate called outside the Parsed state")
	}
	if err := Validate(i.Dag); err != nil {
		return err
	}
	i.state = StateValidated
	return nil
}

// MarkPublished advances Validated -> Published. Publication itself (the
// on-chain transaction) is an external collaborator's responsibility.
func (i *Instance) MarkPublished() error {
	if i.state != StateValidated {
		return nexuserrors.Internal("dag: MarkPublished called outside the Validated state")
	}
	i.state = StatePublished
	return nil
}

// MarkExecuting advances Published -> Executing.
func (i *Instance) MarkExecuting() error {
	if i.state != StatePublished {
		return nexuserrors.Internal("dag: MarkExecuting called outside the Published state")
	}
	i.state = StateExecuting
	return nil
}

// Finish advances Executing -> Finished, recording success or failure as
// observed by the event replayer.
func (i *Instance) Finish(success bool) error {
	if i.state != StateExecuting {
		return nexuserrors.Internal("dag: Finish called outside the Executing state")
	}
	i.state = StateFinished
	i.finished = success
	return nil
}

// Succeeded reports the recorded outcome; valid only once State() ==
// StateFinished.
func (i *Instance) Succeeded() bool { return i.finished }
