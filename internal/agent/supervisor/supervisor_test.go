package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voxelbot.ai/internal/agent/control"
	"voxelbot.ai/internal/agent/perception"
	"voxelbot.ai/internal/agent/session"
	"voxelbot.ai/internal/config"
)

type fakeConn struct {
	id     string
	events chan session.Event
	store  *perception.Store

	mu       sync.Mutex
	said     []string
	commands []string
	closed   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, events: make(chan session.Event, 8), store: perception.NewStore(nil)}
}

func (c *fakeConn) ID() string                            { return c.id }
func (c *fakeConn) Events() <-chan session.Event          { return c.events }
func (c *fakeConn) Perception() *perception.Store         { return c.store }
func (c *fakeConn) Foods() *perception.Foods              { return perception.NewFoods("BREAD") }
func (c *fakeConn) Equip(context.Context, string) error   { return nil }
func (c *fakeConn) Consume(context.Context, string) error { return nil }

func (c *fakeConn) Say(_ context.Context, text string) error {
	c.mu.Lock()
	c.said = append(c.said, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SendCommand(_ context.Context, text string) error {
	c.mu.Lock()
	c.commands = append(c.commands, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Realize(ctx context.Context, _ *control.Surface) error {
	<-ctx.Done()
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) snapshot() (said, commands []string, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.said...), append([]string(nil), c.commands...), c.closed
}

type memJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func (j *memJournal) Record(e JournalEntry) error {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
	return nil
}

func (j *memJournal) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

func (j *memJournal) has(kind string) bool {
	for _, k := range j.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func baseSettings(reconnect bool, delayMS int) config.Settings {
	cfg := config.Defaults()
	cfg.Utils.AutoReconnect = reconnect
	cfg.Utils.AutoReconnectDelay = delayMS
	cfg.Utils.AntiAFK.Enabled = false
	cfg.Utils.AutoEat.Enabled = false
	return cfg
}

type dialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	at    []time.Time
	fail  int
	ch    chan *fakeConn
}

func newDialer() *dialer { return &dialer{ch: make(chan *fakeConn, 8)} }

func (d *dialer) connect(context.Context, config.Settings) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.at = append(d.at, time.Now())
	if d.fail > 0 {
		d.fail--
		return nil, errors.New("connection refused")
	}
	c := newFakeConn("s" + string(rune('0'+len(d.conns))))
	d.conns = append(d.conns, c)
	d.ch <- c
	return c, nil
}

func (d *dialer) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a session")
		return nil
	}
}

func (d *dialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func TestReconnectStartsOneFreshEpoch(t *testing.T) {
	const delay = 60 * time.Millisecond
	var mu sync.Mutex
	reads := 0
	source := func() (config.Settings, error) {
		mu.Lock()
		defer mu.Unlock()
		reads++
		cfg := baseSettings(true, int(delay/time.Millisecond))
		if reads > 1 {
			cfg.Utils.ChatMessages = config.ChatMessages{Enabled: true, Messages: []string{"second epoch"}}
		}
		return cfg, nil
	}
	d := newDialer()
	j := &memJournal{}
	sup := New(Options{Config: source, Connect: d.connect, Journal: j})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	first := d.next(t)
	first.events <- session.Event{Kind: session.Ready}
	waitFor(t, "running", func() bool { return sup.State() == Running })

	ended := time.Now()
	first.events <- session.Event{Kind: session.Ended}
	second := d.next(t)
	if gap := time.Since(ended); gap < delay {
		t.Fatalf("reconnected after %s, expected at least %s", gap, delay)
	}
	if _, _, closed := first.snapshot(); !closed {
		t.Fatalf("first session must be closed before reconnecting")
	}

	second.events <- session.Event{Kind: session.Ready}
	waitFor(t, "second epoch chat", func() bool {
		said, _, _ := second.snapshot()
		return len(said) == 1 && said[0] == "second epoch"
	})
	if said, _, _ := first.snapshot(); len(said) != 0 {
		t.Fatalf("first epoch must run with the first configuration, said %v", said)
	}

	time.Sleep(2 * delay)
	if d.count() != 2 || sup.Epochs() != 2 {
		t.Fatalf("expected exactly two sessions, got %d", d.count())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, _, closed := second.snapshot(); !closed {
		t.Fatalf("second session must be closed on shutdown")
	}
	if !j.has(KindReconnectScheduled) {
		t.Fatalf("expected reconnect_scheduled in journal, got %v", j.kinds())
	}
}

func TestNoReconnectReturns(t *testing.T) {
	d := newDialer()
	j := &memJournal{}
	sup := New(Options{Config: func() (config.Settings, error) { return baseSettings(false, 0), nil }, Connect: d.connect, Journal: j})

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()
	c := d.next(t)
	c.events <- session.Event{Kind: session.Ready}
	c.events <- session.Event{Kind: session.Kicked, Reason: "afk"}
	c.events <- session.Event{Kind: session.Ended}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	if sup.State() != Ended || d.count() != 1 {
		t.Fatalf("expected one ended session, state %s count %d", sup.State(), d.count())
	}
	kinds := j.kinds()
	if kinds[len(kinds)-1] != KindOffline || !j.has(KindKicked) {
		t.Fatalf("unexpected journal %v", kinds)
	}
}

func TestDeathSendsRespawnCommand(t *testing.T) {
	d := newDialer()
	j := &memJournal{}
	cfg := baseSettings(false, 0)
	cfg.Utils.RespawnCommand = "/respawn"
	sup := New(Options{Config: func() (config.Settings, error) { return cfg, nil }, Connect: d.connect, Journal: j, RespawnDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sup.Run(ctx) }()
	c := d.next(t)
	c.events <- session.Event{Kind: session.Ready}
	c.events <- session.Event{Kind: session.Death, Pos: perception.Vec3{X: 1, Y: 2, Z: 3}}

	waitFor(t, "respawn", func() bool {
		_, cmds, _ := c.snapshot()
		return len(cmds) == 1 && cmds[0] == "/respawn"
	})
	waitFor(t, "respawn journaled", func() bool { return j.has(KindRespawn) })
	if sup.State() != Running {
		t.Fatalf("death must not change state, got %s", sup.State())
	}
}

func TestDeathBeforeReadyDoesNotRespawn(t *testing.T) {
	d := newDialer()
	j := &memJournal{}
	sup := New(Options{Config: func() (config.Settings, error) { return baseSettings(false, 0), nil }, Connect: d.connect, Journal: j, RespawnDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sup.Run(ctx) }()
	c := d.next(t)
	c.events <- session.Event{Kind: session.Death}
	waitFor(t, "death journaled", func() bool { return j.has(KindDeath) })
	c.events <- session.Event{Kind: session.Ready}
	waitFor(t, "running", func() bool { return sup.State() == Running })

	time.Sleep(20 * time.Millisecond)
	if _, cmds, _ := c.snapshot(); len(cmds) != 0 {
		t.Fatalf("death before ready must not respawn, got %v", cmds)
	}
	if j.has(KindRespawn) {
		t.Fatalf("unexpected respawn entry")
	}
}

func TestEndCancelsPendingRespawn(t *testing.T) {
	d := newDialer()
	sup := New(Options{Config: func() (config.Settings, error) { return baseSettings(false, 0), nil }, Connect: d.connect, RespawnDelay: time.Hour})

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()
	c := d.next(t)
	c.events <- session.Event{Kind: session.Ready}
	c.events <- session.Event{Kind: session.Death}
	c.events <- session.Event{Kind: session.Ended}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pending respawn blocked teardown")
	}
	if _, cmds, _ := c.snapshot(); len(cmds) != 0 {
		t.Fatalf("expected no respawn after end, got %v", cmds)
	}
}

func TestDialFailureCountsAsEnded(t *testing.T) {
	d := newDialer()
	d.fail = 1
	j := &memJournal{}
	sup := New(Options{Config: func() (config.Settings, error) { return baseSettings(true, 10), nil }, Connect: d.connect, Journal: j})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()
	c := d.next(t)
	if c.ID() != "s0" || sup.Epochs() != 2 {
		t.Fatalf("expected the second epoch to connect, epochs=%d", sup.Epochs())
	}
	cancel()
	<-done
	if !j.has(KindError) {
		t.Fatalf("expected the dial failure journaled, got %v", j.kinds())
	}
}

func TestConfigReloadKeepsLastGood(t *testing.T) {
	calls := 0
	sup := New(Options{Config: func() (config.Settings, error) {
		calls++
		if calls == 1 {
			cfg := baseSettings(true, 1234)
			return cfg, nil
		}
		return config.Settings{}, errors.New("yaml: broken")
	}})
	sup.currentSettings()
	got := sup.currentSettings()
	if got.Utils.AutoReconnectDelay != 1234 {
		t.Fatalf("expected previous settings kept, got %+v", got.Utils)
	}
}
