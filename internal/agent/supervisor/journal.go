package supervisor

import (
	"time"

	"voxelbot.ai/internal/agent/perception"
)

// Journal entry kinds.
const (
	KindConnecting         = "connecting"
	KindReady              = "ready"
	KindRunning            = "running"
	KindDeath              = "death"
	KindRespawn            = "respawn"
	KindKicked             = "kicked"
	KindError              = "error"
	KindGoalReached        = "goal_reached"
	KindEnded              = "ended"
	KindReconnectScheduled = "reconnect_scheduled"
	KindOffline            = "offline"
)

// JournalEntry is one line of the activity journal.
type JournalEntry struct {
	Time    time.Time   `json:"time"`
	Epoch   int         `json:"epoch"`
	Session string      `json:"session,omitempty"`
	Kind    string      `json:"kind"`
	Detail  string      `json:"detail,omitempty"`
	Pos     *[3]float64 `json:"pos,omitempty"`
}

func posOf(v perception.Vec3) *[3]float64 {
	return &[3]float64{v.X, v.Y, v.Z}
}

// Journal records supervisor activity. Implementations must not block for long.
type Journal interface {
	Record(e JournalEntry) error
}

// MultiJournal fans every entry out to all journals and returns the first error.
type MultiJournal []Journal

func (m MultiJournal) Record(e JournalEntry) error {
	var first error
	for _, j := range m {
		if j == nil {
			continue
		}
		if err := j.Record(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
