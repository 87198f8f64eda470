package worker

// State is the lifecycle state of a worker.
type State int32

const (
	// AwaitingHeader is the state before the header arrives.
	AwaitingHeader State = iota
	// Idle means the worker is waiting for a block or for termination.
	Idle
	// Running means a block is being processed.
	Running
	// Stopped is final.
	Stopped
)

func (s State) String() string {
	switch s {
	case AwaitingHeader:
		return "awaiting_header"
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
