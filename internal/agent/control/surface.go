// Package control holds the agent's shared movement intent: the navigation goal,
// the named boolean control inputs and the follow target.
package control

import (
	"sort"
	"sync"
	"time"
)

// Well-known control inputs.
const (
	Forward = "forward"
	Back    = "back"
	Jump    = "jump"
	Sneak   = "sneak"
)

type Priority int

const (
	// Routine goals come from player commands.
	Routine Priority = iota
	// Safety goals come from threat avoidance and preempt routine goals while held.
	Safety
)

func (p Priority) String() string {
	switch p {
	case Routine:
		return "routine"
	case Safety:
		return "safety"
	default:
		return "unknown"
	}
}

// Goal is a navigation target with an arrival radius.
type Goal struct {
	X, Y, Z float64
	Radius  float64
}

// Intent is a consistent copy of the surface.
type Intent struct {
	Revision uint64
	// Goal is nil when no navigation goal is active.
	Goal         *Goal
	GoalPriority Priority
	Inputs       map[string]bool
	FollowTarget string
}

// InputNames returns the input keys in sorted order.
func (in Intent) InputNames() []string {
	out := make([]string, 0, len(in.Inputs))
	for k := range in.Inputs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Surface struct {
	hold time.Duration
	now  func() time.Time

	mu        sync.Mutex
	rev       uint64
	goal      *Goal
	prio      Priority
	heldUntil time.Time
	inputs    map[string]bool
	follow    string

	changed chan struct{}
}

// New returns an empty surface. Safety goals block routine writes for hold.
func New(hold time.Duration) *Surface {
	return &Surface{
		hold:    hold,
		now:     time.Now,
		inputs:  map[string]bool{},
		changed: make(chan struct{}, 1),
	}
}

// Changes is signalled after every accepted write. Bursts coalesce into one signal.
func (s *Surface) Changes() <-chan struct{} { return s.changed }

// SetGoal replaces the goal (nil clears it) and reports whether the write was accepted.
// A write is rejected while a higher-priority goal is still held.
func (s *Surface) SetGoal(p Priority, g *Goal) bool {
	s.mu.Lock()
	now := s.now()
	if p < s.prio && now.Before(s.heldUntil) {
		s.mu.Unlock()
		return false
	}
	if g != nil {
		cp := *g
		g = &cp
	}
	s.goal = g
	s.prio = p
	s.heldUntil = time.Time{}
	if p > Routine && g != nil {
		s.heldUntil = now.Add(s.hold)
	}
	s.rev++
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Surface) SetInput(name string, on bool) {
	s.mu.Lock()
	if cur, ok := s.inputs[name]; ok && cur == on {
		s.mu.Unlock()
		return
	}
	s.inputs[name] = on
	s.rev++
	s.mu.Unlock()
	s.notify()
}

// SetFollowTarget records who the agent follows; "" clears it.
func (s *Surface) SetFollowTarget(id string) {
	s.mu.Lock()
	if s.follow == id {
		s.mu.Unlock()
		return
	}
	s.follow = id
	s.rev++
	s.mu.Unlock()
	s.notify()
}

func (s *Surface) Snapshot() Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := Intent{
		Revision:     s.rev,
		GoalPriority: s.prio,
		Inputs:       make(map[string]bool, len(s.inputs)),
		FollowTarget: s.follow,
	}
	if s.goal != nil {
		g := *s.goal
		in.Goal = &g
	}
	for k, v := range s.inputs {
		in.Inputs[k] = v
	}
	return in
}

func (s *Surface) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
