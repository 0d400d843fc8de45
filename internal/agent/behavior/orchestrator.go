package behavior

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/agent/perception"
	"voxelbot.ai/internal/config"
)

type Deps struct {
	World   Perception
	Actions Actions
	Foods   *perception.Foods
	Logger  *log.Logger
	Timings Timings
}

// Orchestrator owns the control surface and the modules of one session.
type Orchestrator struct {
	cfg     config.Utils
	deps    Deps
	timings Timings
	log     *log.Logger

	surface    *control.Surface
	eater      *Eater
	dispatcher *Dispatcher

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	running []string
}

func NewOrchestrator(cfg config.Utils, deps Deps) *Orchestrator {
	t := deps.Timings.withDefaults()
	o := &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		timings: t,
		log:     sublog(deps.Logger, "orchestrator"),
		surface: control.New(cfg.AvoidMobs.FleeHold()),
	}
	o.eater = NewEater(deps.World, deps.Actions, deps.Foods, t.EatTimeout)
	o.dispatcher = NewDispatcher(deps.World, deps.Actions, o.surface, o.eater, t.FollowPeriod, sublog(deps.Logger, "cmd"))
	return o
}

func (o *Orchestrator) Surface() *control.Surface { return o.surface }

func (o *Orchestrator) Dispatcher() *Dispatcher { return o.dispatcher }

// Modules returns the enabled modules in start order. The dispatcher is always enabled.
func (o *Orchestrator) Modules() []Module {
	var mods []Module
	u := o.cfg
	if u.ChatMessages.Enabled {
		mods = append(mods, NewChatLoop(o.deps.Actions, u.ChatMessages.Messages, u.ChatMessages.Repeat, u.ChatMessages.Delay(), sublog(o.deps.Logger, "chat")))
	}
	if u.AntiAFK.Enabled {
		mods = append(mods, NewIdleMotion(o.surface, u.AntiAFK.Sneak, o.timings.IdlePeriod, o.timings.IdleStep, sublog(o.deps.Logger, "idle")))
	}
	if u.AutoEat.Enabled {
		mods = append(mods, NewFeedingLoop(o.deps.World, o.eater, o.timings.FeedPeriod, sublog(o.deps.Logger, "eat")))
	}
	if u.AvoidMobs.Enabled {
		mods = append(mods, NewThreatReactor(o.deps.World, o.surface, u.AvoidMobs.HostileList(), sublog(o.deps.Logger, "avoid")))
	}
	mods = append(mods, o.dispatcher)
	return mods
}

// Start launches every enabled module and returns their names.
func (o *Orchestrator) Start(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return nil, fmt.Errorf("orchestrator already started")
	}
	o.started = true

	ctx, o.cancel = context.WithCancel(ctx)
	o.group = &errgroup.Group{}
	for _, m := range o.Modules() {
		o.running = append(o.running, m.Name())
		o.group.Go(func() error {
			o.runModule(ctx, m)
			return nil
		})
	}
	o.log.Printf("started modules %v", o.running)
	return append([]string(nil), o.running...), nil
}

// runModule confines a module's failure to that module.
func (o *Orchestrator) runModule(ctx context.Context, m Module) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Printf("module %s panicked: %v", m.Name(), r)
		}
	}()
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		o.log.Printf("module %s stopped: %v", m.Name(), err)
	}
}

// Running lists the modules started by Start.
func (o *Orchestrator) Running() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.running...)
}

// Stop cancels every module and returns once all of them are released.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel, g := o.cancel, o.group
	o.cancel, o.group = nil, nil
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
	o.log.Printf("all modules released")
}
