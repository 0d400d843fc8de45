// Package supervisor keeps the agent attached to the world: it runs one session
// epoch at a time, starts the behavior orchestrator when a session is ready,
// respawns after death and reconnects after the session ends.
package supervisor

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"voxelbot.ai/internal/agent/behavior"
	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/agent/perception"
	"voxelbot.ai/internal/agent/session"
	"voxelbot.ai/internal/config"
)

type State int

const (
	Idle State = iota
	Connecting
	Ready
	Running
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// DefaultRespawnDelay is the wait between a death and the respawn command.
const DefaultRespawnDelay = 2 * time.Second

// Conn is one session epoch as seen by the supervisor.
type Conn interface {
	behavior.Actions
	ID() string
	Events() <-chan session.Event
	Perception() *perception.Store
	Foods() *perception.Foods
	Realize(ctx context.Context, surface *control.Surface) error
	SendCommand(ctx context.Context, text string) error
	Close()
}

// Connector opens a new session for the given settings.
type Connector func(ctx context.Context, s config.Settings) (Conn, error)

// ConfigSource returns the current settings; it is called once per epoch.
type ConfigSource func() (config.Settings, error)

type Options struct {
	Config       ConfigSource
	Connect      Connector
	Journal      Journal
	Logger       *log.Logger
	Timings      behavior.Timings
	RespawnDelay time.Duration
}

type Supervisor struct {
	opts Options
	log  *log.Logger

	mu       sync.Mutex
	state    State
	epoch    int
	settings config.Settings
	haveCfg  bool
}

func New(opts Options) *Supervisor {
	if opts.RespawnDelay <= 0 {
		opts.RespawnDelay = DefaultRespawnDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Supervisor{opts: opts, log: logger}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epochs reports how many sessions have been started.
func (s *Supervisor) Epochs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// currentSettings re-reads the configuration, keeping the last good settings on failure.
func (s *Supervisor) currentSettings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Config == nil {
		if !s.haveCfg {
			s.settings, s.haveCfg = config.Defaults(), true
		}
		return s.settings
	}
	cfg, err := s.opts.Config()
	switch {
	case err == nil:
		s.settings, s.haveCfg = cfg, true
	case s.haveCfg:
		s.log.Printf("config reload failed, keeping previous settings: %v", err)
	default:
		s.log.Printf("config load failed, using returned settings: %v", err)
		s.settings, s.haveCfg = cfg, true
	}
	return s.settings
}

func (s *Supervisor) record(e JournalEntry) {
	if s.opts.Journal == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.Epoch == 0 {
		s.mu.Lock()
		e.Epoch = s.epoch
		s.mu.Unlock()
	}
	if err := s.opts.Journal.Record(e); err != nil {
		s.log.Printf("journal: %v", err)
	}
}

// Run supervises sessions until ctx is done, or until a session ends with
// auto-reconnect disabled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		cfg := s.currentSettings()
		s.runEpoch(ctx, cfg)
		if ctx.Err() != nil {
			return nil
		}
		if !cfg.Utils.AutoReconnect {
			s.log.Printf("session ended and auto-reconnect is disabled")
			s.record(JournalEntry{Kind: KindOffline})
			return nil
		}
		delay := cfg.Utils.ReconnectDelay()
		s.log.Printf("reconnecting in %s", delay)
		s.record(JournalEntry{Kind: KindReconnectScheduled, Detail: delay.String()})
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

type epoch struct {
	conn    Conn
	cancel  context.CancelFunc
	orch    *behavior.Orchestrator
	workers sync.WaitGroup
}

func (s *Supervisor) runEpoch(ctx context.Context, cfg config.Settings) {
	s.mu.Lock()
	s.epoch++
	n := s.epoch
	s.state = Connecting
	s.mu.Unlock()

	s.log.Printf("epoch %d: connecting to %s", n, cfg.WSURL())
	s.record(JournalEntry{Kind: KindConnecting, Detail: cfg.WSURL()})
	conn, err := s.opts.Connect(ctx, cfg)
	if err != nil {
		s.log.Printf("epoch %d: connect failed: %v", n, err)
		s.record(JournalEntry{Kind: KindError, Detail: err.Error()})
		s.setState(Ended)
		s.record(JournalEntry{Kind: KindEnded})
		return
	}

	ectx, cancel := context.WithCancel(ctx)
	ep := &epoch{conn: conn, cancel: cancel}
	defer s.teardown(ep)

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if s.handle(ectx, cfg, ep, ev) {
				return
			}
		}
	}
}

// handle reacts to one session event and reports whether the epoch is over.
func (s *Supervisor) handle(ctx context.Context, cfg config.Settings, ep *epoch, ev session.Event) bool {
	id := ep.conn.ID()
	switch ev.Kind {
	case session.Ready:
		if ep.orch != nil {
			return false
		}
		s.setState(Ready)
		s.record(JournalEntry{Session: id, Kind: KindReady})
		s.startBehaviors(ctx, cfg, ep)
		s.setState(Running)

	case session.GoalReached:
		s.log.Printf("Reached goal at %.0f %.0f %.0f", ev.Pos.X, ev.Pos.Y, ev.Pos.Z)
		s.record(JournalEntry{Session: id, Kind: KindGoalReached, Pos: posOf(ev.Pos)})

	case session.Death:
		s.record(JournalEntry{Session: id, Kind: KindDeath, Pos: posOf(ev.Pos)})
		if s.State() != Running {
			s.log.Printf("Bot died at %.0f %.0f %.0f before behaviors started", ev.Pos.X, ev.Pos.Y, ev.Pos.Z)
			return false
		}
		s.log.Printf("Bot died at %.0f %.0f %.0f, respawning", ev.Pos.X, ev.Pos.Y, ev.Pos.Z)
		s.scheduleRespawn(ctx, cfg, ep)

	case session.Kicked:
		s.log.Printf("Bot was kicked: %s", ev.Reason)
		s.record(JournalEntry{Session: id, Kind: KindKicked, Detail: ev.Reason})

	case session.Error:
		s.log.Printf("session error: %s", ev.Reason)
		s.record(JournalEntry{Session: id, Kind: KindError, Detail: ev.Reason})

	case session.Ended:
		return true
	}
	return false
}

func (s *Supervisor) startBehaviors(ctx context.Context, cfg config.Settings, ep *epoch) {
	ep.orch = behavior.NewOrchestrator(cfg.Utils, behavior.Deps{
		World:   ep.conn.Perception(),
		Actions: ep.conn,
		Foods:   ep.conn.Foods(),
		Logger:  s.opts.Logger,
		Timings: s.opts.Timings,
	})
	names, err := ep.orch.Start(ctx)
	if err != nil {
		s.log.Printf("start behaviors: %v", err)
		return
	}
	surface := ep.orch.Surface()
	ep.workers.Add(1)
	go func() {
		defer ep.workers.Done()
		if err := ep.conn.Realize(ctx, surface); err != nil && ctx.Err() == nil {
			s.log.Printf("realize: %v", err)
		}
	}()
	s.log.Printf("session %s running modules %v", ep.conn.ID(), names)
	s.record(JournalEntry{Session: ep.conn.ID(), Kind: KindRunning, Detail: strings.Join(names, ",")})
}

func (s *Supervisor) scheduleRespawn(ctx context.Context, cfg config.Settings, ep *epoch) {
	cmd := cfg.Utils.Respawn()
	delay := s.opts.RespawnDelay
	ep.workers.Add(1)
	go func() {
		defer ep.workers.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := ep.conn.SendCommand(ctx, cmd); err != nil {
			s.log.Printf("respawn: %v", err)
			return
		}
		s.record(JournalEntry{Session: ep.conn.ID(), Kind: KindRespawn, Detail: cmd})
	}()
}

// teardown releases the epoch: behaviors first, then the realizer and respawn
// timers, then the session itself.
func (s *Supervisor) teardown(ep *epoch) {
	if ep.orch != nil {
		ep.orch.Stop()
	}
	ep.cancel()
	ep.workers.Wait()
	ep.conn.Close()
	s.setState(Ended)
	s.log.Printf("session %s ended", ep.conn.ID())
	s.record(JournalEntry{Session: ep.conn.ID(), Kind: KindEnded})
}
