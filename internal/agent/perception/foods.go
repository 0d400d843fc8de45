package perception

import (
	"strings"
	"sync"

	"voxelbot.ai/internal/protocol"
)

// Foods classifies inventory items as edible.
type Foods struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewFoods(ids ...string) *Foods {
	f := &Foods{ids: map[string]struct{}{}}
	f.Add(ids...)
	return f
}

func (f *Foods) Add(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id != "" {
			f.ids[id] = struct{}{}
		}
	}
}

// AddDefs adds every edible definition and returns how many were edible.
func (f *Foods) AddDefs(defs []protocol.ItemDef) int {
	n := 0
	for _, d := range defs {
		if d.IsFood() {
			f.Add(d.ID)
			n++
		}
	}
	return n
}

func (f *Foods) IsFood(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ids[strings.ToUpper(id)]
	return ok
}

// First returns the first edible stack with a positive count.
func (f *Foods) First(inv []Item) (Item, bool) {
	for _, it := range inv {
		if it.Count > 0 && f.IsFood(it.ID) {
			return it, true
		}
	}
	return Item{}, false
}
