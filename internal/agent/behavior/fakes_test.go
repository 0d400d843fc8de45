package behavior

import (
	"context"
	"sync"
	"testing"
	"time"

	"voxelbot.ai/internal/agent/perception"
)

type fakeActions struct {
	mu      sync.Mutex
	said    []string
	equips  []string
	eats    []string
	consume func(ctx context.Context, item string) error
}

func (f *fakeActions) Say(_ context.Context, text string) error {
	f.mu.Lock()
	f.said = append(f.said, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeActions) Equip(_ context.Context, item string) error {
	f.mu.Lock()
	f.equips = append(f.equips, item)
	f.mu.Unlock()
	return nil
}

func (f *fakeActions) Consume(ctx context.Context, item string) error {
	f.mu.Lock()
	f.eats = append(f.eats, item)
	fn := f.consume
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, item)
	}
	return nil
}

func (f *fakeActions) Said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

func (f *fakeActions) Eats() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.eats)
}

func player(name string, x, z int) perception.Entity {
	return perception.Entity{ID: "ag-" + name, Type: "AGENT", Name: name, Pos: perception.FromBlock([3]int{x, 0, z})}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func lastSaid(a *fakeActions) string {
	s := a.Said()
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}
