// Package perception keeps the agent's latest observed state and fans out the
// entity-appeared and chat streams to behavior modules.
package perception

import (
	"log"
	"strings"
	"sync"
)

type Store struct {
	mu    sync.RWMutex
	state State
	seen  map[string]struct{}
	self  string

	entities *feed[Entity]
	chat     *feed[ChatMessage]
}

func NewStore(logger *log.Logger) *Store {
	return &Store{
		seen:     map[string]struct{}{},
		entities: newFeed[Entity]("entity", logger),
		chat:     newFeed[ChatMessage]("chat", logger),
	}
}

// SetSelf records the agent's own name so its chat lines are not fed back.
func (s *Store) SetSelf(name string) {
	s.mu.Lock()
	s.self = name
	s.mu.Unlock()
}

func (s *Store) Self() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.self
}

// Update replaces the state and publishes every entity not present in the previous update.
// It returns the newly appeared entities.
func (s *Store) Update(st State) []Entity {
	s.mu.Lock()
	next := make(map[string]struct{}, len(st.Entities))
	var appeared []Entity
	for _, e := range st.Entities {
		next[e.ID] = struct{}{}
		if _, ok := s.seen[e.ID]; !ok {
			appeared = append(appeared, e)
		}
	}
	s.seen = next
	s.state = st
	s.mu.Unlock()

	for _, e := range appeared {
		s.entities.publish(e)
	}
	return appeared
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Inventory = append([]Item(nil), s.state.Inventory...)
	st.Entities = append([]Entity(nil), s.state.Entities...)
	return st
}

// Player looks a named player up in the latest entity list.
func (s *Store) Player(name string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.state.Entities {
		if e.IsPlayer() && e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// PublishChat forwards a chat line unless the agent itself sent it.
func (s *Store) PublishChat(m ChatMessage) {
	self := s.Self()
	if self != "" && strings.EqualFold(m.From, self) {
		return
	}
	s.chat.publish(m)
}

func (s *Store) SubscribeEntities(buf int) *Subscription[Entity] { return s.entities.subscribe(buf) }

func (s *Store) SubscribeChat(buf int) *Subscription[ChatMessage] { return s.chat.subscribe(buf) }

// Subscribers reports how many subscriptions are attached to both streams.
func (s *Store) Subscribers() int { return s.entities.len() + s.chat.len() }

// Close detaches every subscriber.
func (s *Store) Close() {
	s.entities.closeAll()
	s.chat.closeAll()
}
