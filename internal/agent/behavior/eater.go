package behavior

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"voxelbot.ai/internal/agent/perception"
)

var (
	ErrFull   = errors.New("already full")
	ErrBusy   = errors.New("already eating")
	ErrNoFood = errors.New("no food in inventory")
)

type Meal struct {
	Item   string
	Hunger int
}

// Eater runs equip-then-consume as one action. At most one action runs at a time
// and the busy flag is released however the action ends.
type Eater struct {
	world   Perception
	acts    Actions
	foods   *perception.Foods
	timeout time.Duration

	busy atomic.Bool
}

func NewEater(world Perception, acts Actions, foods *perception.Foods, timeout time.Duration) *Eater {
	if foods == nil {
		foods = perception.NewFoods()
	}
	return &Eater{world: world, acts: acts, foods: foods, timeout: timeout}
}

func (e *Eater) Busy() bool { return e.busy.Load() }

func (e *Eater) Eat(ctx context.Context) (Meal, error) {
	st := e.world.Snapshot()
	if st.Full() {
		return Meal{Hunger: st.Hunger}, ErrFull
	}
	if !e.busy.CompareAndSwap(false, true) {
		return Meal{}, ErrBusy
	}
	defer e.busy.Store(false)

	food, ok := e.foods.First(st.Inventory)
	if !ok {
		return Meal{Hunger: st.Hunger}, ErrNoFood
	}
	meal := Meal{Item: food.ID}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := e.acts.Equip(ctx, food.ID); err != nil {
		return meal, fmt.Errorf("equip %s: %w", food.ID, err)
	}
	if err := e.acts.Consume(ctx, food.ID); err != nil {
		return meal, fmt.Errorf("consume %s: %w", food.ID, err)
	}
	meal.Hunger = e.world.Snapshot().Hunger
	return meal, nil
}
