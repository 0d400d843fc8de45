package session

import "voxelbot.ai/internal/agent/perception"

type EventKind int

const (
	// Ready fires once, on the first WELCOME.
	Ready EventKind = iota + 1
	GoalReached
	Death
	Kicked
	Error
	// Ended is the last event of a session; the channel is closed after it.
	Ended
)

func (k EventKind) String() string {
	switch k {
	case Ready:
		return "ready"
	case GoalReached:
		return "goal_reached"
	case Death:
		return "death"
	case Kicked:
		return "kicked"
	case Error:
		return "error"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification of a session.
type Event struct {
	Kind EventKind
	// Reason carries the kick reason or the error message.
	Reason string
	// Pos is the agent position when the event was produced.
	Pos perception.Vec3
}
