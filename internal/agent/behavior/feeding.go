package behavior

import (
	"context"
	"errors"
	"log"
	"time"

	"voxelbot.ai/internal/agent/perception"
)

// FeedingLoop eats the first food in the inventory whenever the agent is hungry.
type FeedingLoop struct {
	world  Perception
	eater  *Eater
	period time.Duration
	log    *log.Logger
}

func NewFeedingLoop(world Perception, eater *Eater, period time.Duration, logger *log.Logger) *FeedingLoop {
	return &FeedingLoop{world: world, eater: eater, period: period, log: logger}
}

func (f *FeedingLoop) Name() string { return "eat" }

func (f *FeedingLoop) Run(ctx context.Context) error {
	f.log.Printf("auto-eat module started")
	t := time.NewTicker(f.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			f.tick(ctx)
		}
	}
}

// tick reports whether an eat action was attempted.
func (f *FeedingLoop) tick(ctx context.Context) bool {
	if f.world.Snapshot().Full() || f.eater.Busy() {
		return false
	}
	meal, err := f.eater.Eat(ctx)
	switch {
	case err == nil:
		f.log.Printf("Ate %s. Food: %d/%d", meal.Item, meal.Hunger, perception.MaxHunger)
	case errors.Is(err, ErrNoFood), errors.Is(err, ErrFull), errors.Is(err, ErrBusy):
		return false
	case ctx.Err() != nil:
	default:
		f.log.Printf("eat failed: %v", err)
	}
	return true
}
