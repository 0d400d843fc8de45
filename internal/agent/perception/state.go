package perception

import (
	"math"

	"voxelbot.ai/internal/protocol"
)

// MaxHunger is the hunger level of a fully fed agent.
const MaxHunger = 20

type Vec3 struct{ X, Y, Z float64 }

func FromBlock(p [3]int) Vec3 {
	return Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vec3) Offset(dx, dy, dz float64) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

type Item struct {
	ID    string
	Count int
}

type Entity struct {
	ID      string
	Type    string
	MobType string
	Name    string
	Pos     Vec3
}

// IsPlayer reports whether the entity is another agent with a known name.
func (e Entity) IsPlayer() bool { return e.Type == "AGENT" && e.Name != "" }

// State is what the agent last observed about itself and its surroundings.
type State struct {
	Tick      uint64
	AgentID   string
	Pos       Vec3
	HP        int
	Hunger    int
	MainHand  string
	Inventory []Item
	Entities  []Entity
}

func (s State) Full() bool { return s.Hunger >= MaxHunger }

type ChatMessage struct {
	From string
	Text string
}

// StateFromObs converts an OBS message into a State.
func StateFromObs(o protocol.ObsMsg) State {
	st := State{
		Tick:     o.Tick,
		AgentID:  o.AgentID,
		Pos:      FromBlock(o.Self.Pos),
		HP:       o.Self.HP,
		Hunger:   o.Self.Hunger,
		MainHand: o.Equipment.MainHand,
	}
	for _, it := range o.Inventory {
		st.Inventory = append(st.Inventory, Item{ID: it.Item, Count: it.Count})
	}
	for _, e := range o.Entities {
		st.Entities = append(st.Entities, Entity{
			ID:      e.ID,
			Type:    e.Type,
			MobType: e.MobType,
			Name:    e.Name,
			Pos:     FromBlock(e.Pos),
		})
	}
	return st
}
