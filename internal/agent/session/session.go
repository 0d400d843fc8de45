// Package session is one connection epoch of the agent to the world: the
// handshake, OBS ingestion into perception, lifecycle events, action requests and
// the realization of the control surface into ACT messages.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelbot.ai/internal/agent/perception"
	"voxelbot.ai/internal/protocol"
)

type Config struct {
	URL       string
	AgentName string

	// AuthType is "offline" or "token"; Token is sent only for "token".
	AuthType string
	Token    string
	Version  string

	HandshakeTimeout time.Duration
	ActionTimeout    time.Duration
	ReadTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = protocol.Version
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	return c
}

type actionResult struct {
	ok      bool
	code    string
	message string
}

type Session struct {
	id    string
	cfg   Config
	log   *log.Logger
	store *perception.Store
	foods *perception.Foods

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.RWMutex
	agentID string
	tick    uint64
	lastHP  int
	pending map[string]chan actionResult

	seq     atomic.Uint64
	applied realizer
	ready   sync.Once
	closing atomic.Bool

	events    chan Event
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects, sends HELLO and starts reading. The returned session owns store
// updates until it ends.
func Dial(ctx context.Context, cfg Config, store *perception.Store, foods *perception.Foods, logger *log.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if foods == nil {
		foods = perception.NewFoods()
	}
	d := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, resp, err := d.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	hello := protocol.HelloMsg{
		Type:              protocol.TypeHello,
		ProtocolVersion:   cfg.Version,
		SupportedVersions: protocol.SupportedVersions,
		AgentName:         cfg.AgentName,
		Capabilities:      protocol.HelloCapabilities{MaxQueue: 8},
	}
	if strings.EqualFold(cfg.AuthType, "token") && cfg.Token != "" {
		hello.Auth = &protocol.HelloAuth{Type: "token", Token: cfg.Token}
	} else {
		hello.Auth = &protocol.HelloAuth{Type: "offline"}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	store.SetSelf(cfg.AgentName)
	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		log:     logger,
		store:   store,
		foods:   foods,
		conn:    conn,
		lastHP:  -1,
		pending: map[string]chan actionResult{},
		applied: realizer{inputs: map[string]bool{}},
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Events delivers lifecycle events; it is closed after Ended.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Perception() *perception.Store { return s.store }

func (s *Session) Foods() *perception.Foods { return s.foods }

func (s *Session) AgentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentID
}

// Close ends the session and waits for the reader to exit.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
}

func (s *Session) emit(ev Event) {
	if ev.Pos == (perception.Vec3{}) {
		ev.Pos = s.store.Snapshot().Pos
	}
	select {
	case s.events <- ev:
	default:
		s.log.Printf("event queue full, dropped %s", ev.Kind)
	}
}

func (s *Session) readLoop() {
	defer func() {
		s.abandonPending()
		s.emit(Event{Kind: Ended})
		close(s.events)
		close(s.done)
	}()

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			_ = s.conn.Close()
			s.readFailed(err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if !protocol.IsSupportedVersion(base.ProtocolVersion) {
			s.log.Printf("ignoring %s with protocol_version %q", base.Type, base.ProtocolVersion)
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				s.log.Printf("bad WELCOME: %v", err)
				continue
			}
			s.mu.Lock()
			s.agentID = w.AgentID
			s.mu.Unlock()
			s.ready.Do(func() {
				s.log.Printf("WELCOME agent_id=%s session_id=%s", w.AgentID, w.SessionID)
				s.emit(Event{Kind: Ready})
			})

		case protocol.TypeCatalog:
			s.handleCatalog(msg)

		case protocol.TypeObs:
			var o protocol.ObsMsg
			if err := json.Unmarshal(msg, &o); err != nil {
				s.log.Printf("bad OBS: %v", err)
				continue
			}
			s.handleObs(o)
		}
	}
}

func (s *Session) readFailed(err error) {
	if s.closing.Load() {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		reason := ce.Text
		if reason == "" {
			reason = fmt.Sprintf("close code %d", ce.Code)
		}
		s.emit(Event{Kind: Kicked, Reason: reason})
		return
	}
	s.emit(Event{Kind: Error, Reason: err.Error()})
}

type catalogHeader struct {
	Name string `json:"name"`
}

func (s *Session) handleCatalog(msg []byte) {
	var h catalogHeader
	if err := json.Unmarshal(msg, &h); err != nil {
		return
	}
	if strings.ToLower(strings.TrimSpace(h.Name)) != protocol.CatalogItemDefs {
		return
	}
	var c protocol.CatalogMsg
	if err := json.Unmarshal(msg, &c); err != nil {
		s.log.Printf("bad item_defs catalog: %v", err)
		return
	}
	n := s.foods.AddDefs(c.Data)
	s.log.Printf("item_defs: %d edible items", n)
}

func (s *Session) handleObs(o protocol.ObsMsg) {
	st := perception.StateFromObs(o)

	s.mu.Lock()
	s.tick = o.Tick
	if o.AgentID != "" {
		s.agentID = o.AgentID
	}
	prevHP := s.lastHP
	s.lastHP = o.Self.HP
	s.mu.Unlock()

	s.store.Update(st)

	died := false
	for _, ev := range o.Events {
		switch ev.Type() {
		case protocol.EventChat:
			s.store.PublishChat(perception.ChatMessage{From: ev.Str("from"), Text: ev.Str("text")})
		case protocol.EventActionResult:
			s.resolve(ev.Str("ref"), actionResult{ok: ev.Bool("ok"), code: ev.Str("code"), message: ev.Str("message")})
		case protocol.EventTaskDone:
			if s.applied.taskDone(ev.Str("task_id")) {
				s.emit(Event{Kind: GoalReached, Pos: st.Pos})
			}
		case protocol.EventTaskFail:
			s.taskFailed(ev.Str("task_id"), ev.Str("code"), ev.Str("message"))
		case protocol.EventDeath:
			died = true
		}
	}
	if !died && prevHP > 0 && o.Self.HP <= 0 {
		died = true
	}
	if died {
		s.emit(Event{Kind: Death, Pos: st.Pos})
	}
}

func (s *Session) taskFailed(id, code, message string) {
	if !s.applied.taskFailed(id) {
		return
	}
	if !protocol.IsKnownCode(code) {
		s.log.Printf("move %s failed with unknown code %q: %s", id, code, message)
		return
	}
	s.log.Printf("move %s failed: %s %s", id, code, message)
}

func (s *Session) nextID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, s.seq.Add(1))
}

func (s *Session) send(act protocol.ActMsg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.mu.RLock()
	act.Type = protocol.TypeAct
	act.ProtocolVersion = s.cfg.Version
	act.Tick = s.tick
	act.AgentID = s.agentID
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closing.Load() {
		return ErrClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := s.conn.WriteJSON(act); err != nil {
		return fmt.Errorf("send ACT: %w", err)
	}
	return nil
}

// Say sends a chat line. It does not wait for a result.
func (s *Session) Say(_ context.Context, text string) error {
	return s.send(protocol.ActMsg{Instants: []protocol.InstantReq{
		{ID: s.nextID("I"), Type: protocol.InstantSay, Channel: "LOCAL", Text: text},
	}})
}

// SendCommand sends a raw command line such as the respawn command.
func (s *Session) SendCommand(ctx context.Context, text string) error { return s.Say(ctx, text) }

func (s *Session) Equip(ctx context.Context, item string) error {
	return s.do(ctx, protocol.InstantReq{Type: protocol.InstantEquip, ItemID: item})
}

func (s *Session) Consume(ctx context.Context, item string) error {
	return s.do(ctx, protocol.InstantReq{Type: protocol.InstantEat, ItemID: item, Count: 1})
}

// do sends one instant and waits for its ACTION_RESULT.
func (s *Session) do(ctx context.Context, in protocol.InstantReq) error {
	in.ID = s.nextID("I")
	ch := make(chan actionResult, 1)
	s.mu.Lock()
	s.pending[in.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, in.ID)
		s.mu.Unlock()
	}()

	if err := s.send(protocol.ActMsg{Instants: []protocol.InstantReq{in}}); err != nil {
		return err
	}

	t := time.NewTimer(s.cfg.ActionTimeout)
	defer t.Stop()
	select {
	case r := <-ch:
		if !r.ok {
			return &ActionError{Code: r.code, Message: r.message}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return fmt.Errorf("%s %s: %w", in.Type, in.ItemID, ErrActionTimeout)
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) resolve(ref string, r actionResult) {
	if ref == "" {
		return
	}
	s.mu.RLock()
	ch, ok := s.pending[ref]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- r:
	default:
	}
}

func (s *Session) abandonPending() {
	s.mu.Lock()
	n := len(s.pending)
	s.mu.Unlock()
	if n > 0 {
		s.log.Printf("%d pending actions abandoned", n)
	}
}
