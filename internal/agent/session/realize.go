package session

import (
	"context"
	"math"
	"strconv"
	"sync"

	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/protocol"
)

// ControlKeyFollow is the CONTROL key carrying the follow target.
const ControlKeyFollow = "follow"

type realizer struct {
	mu     sync.Mutex
	goal   *control.Goal
	task   string
	inputs map[string]bool
	follow string
}

// taskDone clears the active move task if id is it.
func (r *realizer) taskDone(id string) bool {
	return r.clearTask(id)
}

// taskFailed forgets a move the world rejected so the same goal is sent again.
func (r *realizer) taskFailed(id string) bool {
	return r.clearTask(id)
}

func (r *realizer) clearTask(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" || id != r.task {
		return false
	}
	r.task = ""
	r.goal = nil
	return true
}

// diff turns an intent into the ACT that moves the world from the last realized
// intent to it. It returns false when nothing changed.
func (r *realizer) diff(in control.Intent, newTask func() string) (protocol.ActMsg, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var act protocol.ActMsg
	if !sameGoal(r.goal, in.Goal) {
		if r.task != "" {
			act.Cancel = append(act.Cancel, r.task)
			r.task = ""
		}
		r.goal = nil
		if in.Goal != nil {
			g := *in.Goal
			r.goal = &g
			r.task = newTask()
			act.Tasks = append(act.Tasks, protocol.TaskReq{
				ID:        r.task,
				Type:      protocol.TaskMoveTo,
				Target:    [3]int{round(g.X), round(g.Y), round(g.Z)},
				Tolerance: g.Radius,
			})
		}
	}
	for _, k := range in.InputNames() {
		v := in.Inputs[k]
		if old, ok := r.inputs[k]; ok && old == v {
			continue
		}
		r.inputs[k] = v
		act.Instants = append(act.Instants, protocol.InstantReq{Type: protocol.InstantControl, Key: k, Value: strconv.FormatBool(v)})
	}
	if in.FollowTarget != r.follow {
		r.follow = in.FollowTarget
		act.Instants = append(act.Instants, protocol.InstantReq{Type: protocol.InstantControl, Key: ControlKeyFollow, Value: in.FollowTarget})
	}
	changed := len(act.Cancel) > 0 || len(act.Tasks) > 0 || len(act.Instants) > 0
	return act, changed
}

func sameGoal(a, b *control.Goal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func round(v float64) int { return int(math.Round(v)) }

// Realize mirrors the control surface into ACT messages until ctx is done or the
// session ends. The latest intent is always realized; intermediate ones may be skipped.
func (s *Session) Realize(ctx context.Context, surface *control.Surface) error {
	for {
		if err := s.realizeOnce(surface.Snapshot()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-surface.Changes():
		}
	}
}

func (s *Session) realizeOnce(in control.Intent) error {
	act, changed := s.applied.diff(in, func() string { return s.nextID("K") })
	if !changed {
		return nil
	}
	for i := range act.Instants {
		act.Instants[i].ID = s.nextID("I")
	}
	return s.send(act)
}
