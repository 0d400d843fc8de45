package perception

import (
	"testing"

	"voxelbot.ai/internal/protocol"
)

func zombieAt(id string, x, z int) Entity {
	return Entity{ID: id, Type: "MOB", MobType: "zombie", Pos: FromBlock([3]int{x, 0, z})}
}

func TestUpdatePublishesOnlyNewEntities(t *testing.T) {
	s := NewStore(nil)
	sub := s.SubscribeEntities(8)
	defer sub.Close()

	s.Update(State{Entities: []Entity{zombieAt("m1", 1, 1)}})
	got := s.Update(State{Entities: []Entity{zombieAt("m1", 2, 2), zombieAt("m2", 3, 3)}})
	if len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("expected only m2 to appear, got %+v", got)
	}
	// m1 leaves and comes back: that is a fresh appearance.
	s.Update(State{})
	s.Update(State{Entities: []Entity{zombieAt("m1", 0, 0)}})

	var ids []string
	for i := 0; i < 3; i++ {
		select {
		case e := <-sub.C:
			ids = append(ids, e.ID)
		default:
			t.Fatalf("expected 3 events, got %v", ids)
		}
	}
	if ids[0] != "m1" || ids[1] != "m2" || ids[2] != "m1" {
		t.Fatalf("unexpected event order: %v", ids)
	}
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	s := NewStore(nil)
	a := s.SubscribeChat(1)
	b := s.SubscribeEntities(1)
	if s.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.Subscribers())
	}
	a.Close()
	a.Close()
	if _, ok := <-a.C; ok {
		t.Fatalf("expected closed channel after Close")
	}
	s.Close()
	if _, ok := <-b.C; ok {
		t.Fatalf("expected store Close to close subscribers")
	}
	if s.Subscribers() != 0 {
		t.Fatalf("expected no subscribers left")
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	s := NewStore(nil)
	sub := s.SubscribeChat(1)
	defer sub.Close()
	s.PublishChat(ChatMessage{From: "a", Text: "one"})
	s.PublishChat(ChatMessage{From: "a", Text: "two"})
	if m := <-sub.C; m.Text != "one" {
		t.Fatalf("expected first message kept, got %q", m.Text)
	}
	select {
	case m := <-sub.C:
		t.Fatalf("expected second message dropped, got %q", m.Text)
	default:
	}
}

func TestPublishChatSkipsSelf(t *testing.T) {
	s := NewStore(nil)
	s.SetSelf("Warden")
	sub := s.SubscribeChat(4)
	defer sub.Close()
	s.PublishChat(ChatMessage{From: "warden", Text: "echo"})
	s.PublishChat(ChatMessage{From: "alex", Text: "/bot stop"})
	if m := <-sub.C; m.From != "alex" {
		t.Fatalf("expected alex's line, got %+v", m)
	}
}

func TestPlayerLookup(t *testing.T) {
	s := NewStore(nil)
	s.Update(State{Entities: []Entity{
		{ID: "a1", Type: "AGENT", Name: "alex", Pos: Vec3{X: 4}},
		{ID: "m1", Type: "MOB", MobType: "zombie", Name: "alex"},
	}})
	e, ok := s.Player("alex")
	if !ok || e.ID != "a1" {
		t.Fatalf("expected agent alex, got %+v ok=%v", e, ok)
	}
	if _, ok := s.Player("steve"); ok {
		t.Fatalf("expected steve unresolved")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(nil)
	s.Update(State{Inventory: []Item{{ID: "BERRIES", Count: 3}}})
	snap := s.Snapshot()
	snap.Inventory[0].Count = 0
	if s.Snapshot().Inventory[0].Count != 3 {
		t.Fatalf("expected snapshot mutation not to leak into store")
	}
}

func TestStateFromObs(t *testing.T) {
	st := StateFromObs(protocol.ObsMsg{
		Tick:      7,
		AgentID:   "A1",
		Self:      protocol.SelfObs{Pos: [3]int{1, 2, 3}, HP: 18, Hunger: 12},
		Inventory: []protocol.ItemStack{{Item: "BREAD", Count: 2}},
		Equipment: protocol.EquipmentObs{MainHand: "NONE"},
		Entities:  []protocol.EntityObs{{ID: "p", Type: "AGENT", Name: "alex", Pos: [3]int{4, 5, 6}}},
	})
	if st.Tick != 7 || st.Pos != (Vec3{1, 2, 3}) || st.Hunger != 12 || st.Full() {
		t.Fatalf("unexpected state: %+v", st)
	}
	if len(st.Entities) != 1 || !st.Entities[0].IsPlayer() || st.Entities[0].Pos != (Vec3{4, 5, 6}) {
		t.Fatalf("unexpected entities: %+v", st.Entities)
	}
}

func TestFoods(t *testing.T) {
	f := NewFoods("berries")
	if n := f.AddDefs([]protocol.ItemDef{{ID: "BREAD", Kind: "FOOD", EdibleHP: 3}, {ID: "PLANK", Kind: "MATERIAL"}}); n != 1 {
		t.Fatalf("expected 1 edible def, got %d", n)
	}
	inv := []Item{{ID: "PLANK", Count: 20}, {ID: "BERRIES", Count: 0}, {ID: "BREAD", Count: 1}}
	it, ok := f.First(inv)
	if !ok || it.ID != "BREAD" {
		t.Fatalf("expected bread, got %+v ok=%v", it, ok)
	}
	if _, ok := f.First([]Item{{ID: "PLANK", Count: 1}}); ok {
		t.Fatalf("expected no food")
	}
}
