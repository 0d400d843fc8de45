package behavior

import (
	"context"
	"log"
	"time"

	"voxelbot.ai/internal/agent/control"
)

// IdleMotion keeps the agent jumping (and optionally sneaking) and wiggles it
// forward and back once per period.
type IdleMotion struct {
	surface *control.Surface
	sneak   bool
	period  time.Duration
	step    time.Duration
	log     *log.Logger
}

func NewIdleMotion(surface *control.Surface, sneak bool, period, step time.Duration, logger *log.Logger) *IdleMotion {
	return &IdleMotion{surface: surface, sneak: sneak, period: period, step: step, log: logger}
}

func (m *IdleMotion) Name() string { return "idle" }

func (m *IdleMotion) Run(ctx context.Context) error {
	m.surface.SetInput(control.Jump, true)
	if m.sneak {
		m.surface.SetInput(control.Sneak, true)
	}
	m.log.Printf("anti-afk started (sneak=%v)", m.sneak)

	t := time.NewTicker(m.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.wiggle(ctx)
		}
	}
}

func (m *IdleMotion) wiggle(ctx context.Context) {
	m.surface.SetInput(control.Forward, true)
	if !sleep(ctx, m.step) {
		return
	}
	m.surface.SetInput(control.Forward, false)
	m.surface.SetInput(control.Back, true)
	if !sleep(ctx, m.step) {
		return
	}
	m.surface.SetInput(control.Back, false)
}
