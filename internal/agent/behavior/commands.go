package behavior

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/agent/perception"
)

// CommandPrefix starts every chat command.
const CommandPrefix = "/bot "

const (
	goRadius     = 1.0
	followRadius = 2.0
)

const (
	replyUsageGo  = "❌ Invalid coordinates. Usage: /bot go <x> <y> <z>"
	replyStopped  = "⏹️ Stopped all movement."
	replyHeld     = "⏹️ Stopped all movement (threat avoidance still active)."
	replyFull     = "✅ Already full!"
	replyBusy     = "⏳ Already eating."
	replyNoFood   = "❌ No food found in inventory!"
	replyUnknown  = "❓ Unknown command. Try: /bot go x y z | /bot follow <player> | /bot stop | /bot eat"
	replyFleeing  = "⚠️ Avoiding a threat, not going to %s %s %s."
	replyNotFound = "❌ Player %q not found."
)

// Dispatcher answers /bot commands from chat. Apart from the single follow timer
// it keeps no state between commands.
type Dispatcher struct {
	world   Perception
	acts    Actions
	surface *control.Surface
	eater   *Eater
	period  time.Duration
	log     *log.Logger

	mu     sync.Mutex
	follow *followHandle
	active atomic.Int32

	wg sync.WaitGroup
}

type followHandle struct {
	target string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(world Perception, acts Actions, surface *control.Surface, eater *Eater, followPeriod time.Duration, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		world:   world,
		acts:    acts,
		surface: surface,
		eater:   eater,
		period:  followPeriod,
		log:     logger,
	}
}

func (d *Dispatcher) Name() string { return "cmd" }

func (d *Dispatcher) Run(ctx context.Context) error {
	sub := d.world.SubscribeChat(32)
	defer sub.Close()
	defer d.wg.Wait()
	defer d.stopFollow()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.C:
			if !ok {
				return nil
			}
			d.Handle(ctx, m)
		}
	}
}

// Following returns the current follow target, or "".
func (d *Dispatcher) Following() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.follow == nil {
		return ""
	}
	return d.follow.target
}

// ActiveFollowTimers counts follow timers that have not been released yet.
func (d *Dispatcher) ActiveFollowTimers() int { return int(d.active.Load()) }

// Handle runs one chat line. Lines without the prefix are ignored.
func (d *Dispatcher) Handle(ctx context.Context, m perception.ChatMessage) {
	if !strings.HasPrefix(m.Text, CommandPrefix) {
		return
	}
	args := strings.Split(m.Text[len(CommandPrefix):], " ")
	d.log.Printf("%s: %s", m.From, m.Text)

	switch args[0] {
	case "go":
		d.goTo(ctx, args[1:])
	case "follow":
		if len(args) != 2 || args[1] == "" {
			d.reply(ctx, replyUnknown)
			return
		}
		d.startFollow(ctx, args[1])
	case "stop":
		d.stop(ctx)
	case "eat":
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.eat(ctx)
		}()
	default:
		d.reply(ctx, replyUnknown)
	}
}

func (d *Dispatcher) reply(ctx context.Context, text string) {
	if err := d.acts.Say(ctx, text); err != nil && ctx.Err() == nil {
		d.log.Printf("reply %q: %v", text, err)
	}
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (d *Dispatcher) goTo(ctx context.Context, args []string) {
	if len(args) != 3 {
		d.reply(ctx, replyUsageGo)
		return
	}
	var xyz [3]float64
	for i, a := range args {
		v, ok := parseCoord(a)
		if !ok {
			d.reply(ctx, replyUsageGo)
			return
		}
		xyz[i] = v
	}
	x, y, z := fmtCoord(xyz[0]), fmtCoord(xyz[1]), fmtCoord(xyz[2])
	if !d.surface.SetGoal(control.Routine, &control.Goal{X: xyz[0], Y: xyz[1], Z: xyz[2], Radius: goRadius}) {
		d.reply(ctx, fmt.Sprintf(replyFleeing, x, y, z))
		return
	}
	d.reply(ctx, fmt.Sprintf("✅ Going to %s %s %s", x, y, z))
}

func fmtCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (d *Dispatcher) startFollow(ctx context.Context, name string) {
	if _, ok := d.world.Player(name); !ok {
		d.reply(ctx, fmt.Sprintf(replyNotFound, name))
		return
	}
	d.stopFollow()

	fctx, cancel := context.WithCancel(ctx)
	h := &followHandle{target: name, cancel: cancel, done: make(chan struct{})}
	d.mu.Lock()
	d.follow = h
	d.mu.Unlock()
	d.surface.SetFollowTarget(name)

	d.active.Add(1)
	go d.followLoop(fctx, h)
	d.reply(ctx, "✅ Now following "+name)
}

func (d *Dispatcher) followLoop(ctx context.Context, h *followHandle) {
	defer close(h.done)
	defer d.active.Add(-1)
	defer h.cancel()

	t := time.NewTicker(d.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		p, ok := d.world.Player(h.target)
		if !ok {
			d.mu.Lock()
			if d.follow == h {
				d.follow = nil
				d.surface.SetFollowTarget("")
			}
			d.mu.Unlock()
			d.reply(ctx, fmt.Sprintf("⏹️ Stopped following %s (player left).", h.target))
			return
		}
		// Rejected while a safety goal is held; the next tick tries again.
		d.surface.SetGoal(control.Routine, &control.Goal{X: p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z, Radius: followRadius})
	}
}

// stopFollow cancels the follow timer and waits until it is released.
func (d *Dispatcher) stopFollow() bool {
	d.mu.Lock()
	h := d.follow
	d.follow = nil
	d.mu.Unlock()
	if h == nil {
		return false
	}
	h.cancel()
	<-h.done
	return true
}

func (d *Dispatcher) stop(ctx context.Context) {
	d.stopFollow()
	d.surface.SetFollowTarget("")
	cleared := d.surface.SetGoal(control.Routine, nil)
	d.surface.SetInput(control.Forward, false)
	d.surface.SetInput(control.Back, false)
	if !cleared {
		d.reply(ctx, replyHeld)
		return
	}
	d.reply(ctx, replyStopped)
}

func (d *Dispatcher) eat(ctx context.Context) {
	meal, err := d.eater.Eat(ctx)
	switch {
	case err == nil:
		d.reply(ctx, fmt.Sprintf("🍖 Ate %s! Hunger: %d/%d", meal.Item, meal.Hunger, perception.MaxHunger))
	case errors.Is(err, ErrFull):
		d.reply(ctx, replyFull)
	case errors.Is(err, ErrBusy):
		d.reply(ctx, replyBusy)
	case errors.Is(err, ErrNoFood):
		d.reply(ctx, replyNoFood)
	default:
		d.reply(ctx, fmt.Sprintf("❌ Could not eat %s: %v", meal.Item, err))
	}
}
