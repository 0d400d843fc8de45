package behavior

import (
	"context"
	"log"
	"strings"

	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/agent/perception"
)

const (
	// ThreatRadius is how close a fresh hostile must be to trigger a flee.
	ThreatRadius = 5.0
	fleeScale    = 3.0
	fleeRadius   = 1.0
)

// ThreatReactor runs away from hostile mobs that appear close to the agent.
// It reacts to appearances only; a mob that walks closer later is ignored.
type ThreatReactor struct {
	world   Perception
	surface *control.Surface
	hostile map[string]struct{}
	log     *log.Logger
}

func NewThreatReactor(world Perception, surface *control.Surface, hostile []string, logger *log.Logger) *ThreatReactor {
	set := make(map[string]struct{}, len(hostile))
	for _, h := range hostile {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return &ThreatReactor{world: world, surface: surface, hostile: set, log: logger}
}

func (r *ThreatReactor) Name() string { return "avoid" }

func (r *ThreatReactor) Run(ctx context.Context) error {
	sub := r.world.SubscribeEntities(64)
	defer sub.Close()
	r.log.Printf("avoid mobs module started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			r.react(e)
		}
	}
}

func (r *ThreatReactor) isHostile(e perception.Entity) bool {
	if e.Type != "MOB" {
		return false
	}
	_, ok := r.hostile[strings.ToLower(e.MobType)]
	return ok
}

// react reports whether a flee goal was issued.
func (r *ThreatReactor) react(e perception.Entity) bool {
	if !r.isHostile(e) {
		return false
	}
	self := r.world.Snapshot().Pos
	d := self.DistanceTo(e.Pos)
	if d >= ThreatRadius {
		return false
	}
	dx := self.X - e.Pos.X
	dz := self.Z - e.Pos.Z
	run := self.Offset(dx*fleeScale, 0, dz*fleeScale)
	if !r.surface.SetGoal(control.Safety, &control.Goal{X: run.X, Y: run.Y, Z: run.Z, Radius: fleeRadius}) {
		return false
	}
	r.log.Printf("Running from %s at distance %.1f", e.MobType, d)
	return true
}
