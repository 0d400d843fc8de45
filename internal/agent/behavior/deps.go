// Package behavior implements the agent's independent behavior modules and the
// orchestrator that owns their lifetimes for one session.
package behavior

import (
	"context"
	"io"
	"log"
	"time"

	"voxelbot.ai/internal/agent/perception"
)

// Actions are the side effects a module may ask the world for.
type Actions interface {
	Say(ctx context.Context, text string) error
	Equip(ctx context.Context, item string) error
	Consume(ctx context.Context, item string) error
}

// Perception is the read side of the world.
type Perception interface {
	Snapshot() perception.State
	Player(name string) (perception.Entity, bool)
	SubscribeEntities(buf int) *perception.Subscription[perception.Entity]
	SubscribeChat(buf int) *perception.Subscription[perception.ChatMessage]
}

// Module is one independently scheduled behavior. Run returns when ctx is done
// or when the behavior has nothing left to do.
type Module interface {
	Name() string
	Run(ctx context.Context) error
}

// Timings are the fixed periods of the modules. Zero fields take the defaults.
type Timings struct {
	IdlePeriod   time.Duration
	IdleStep     time.Duration
	FeedPeriod   time.Duration
	FollowPeriod time.Duration
	EatTimeout   time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		IdlePeriod:   60 * time.Second,
		IdleStep:     time.Second,
		FeedPeriod:   3 * time.Second,
		FollowPeriod: time.Second,
		EatTimeout:   10 * time.Second,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.IdlePeriod <= 0 {
		t.IdlePeriod = d.IdlePeriod
	}
	if t.IdleStep <= 0 {
		t.IdleStep = d.IdleStep
	}
	if t.FeedPeriod <= 0 {
		t.FeedPeriod = d.FeedPeriod
	}
	if t.FollowPeriod <= 0 {
		t.FollowPeriod = d.FollowPeriod
	}
	if t.EatTimeout <= 0 {
		t.EatTimeout = d.EatTimeout
	}
	return t
}

func sublog(parent *log.Logger, name string) *log.Logger {
	if parent == nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(parent.Writer(), parent.Prefix()+"["+name+"] ", parent.Flags())
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
