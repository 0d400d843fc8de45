package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the bot's settings file.
type Settings struct {
	Account Account `yaml:"bot-account"`
	Server  Server  `yaml:"server"`
	Status  Status  `yaml:"status"`
	Journal Journal `yaml:"journal"`
	Utils   Utils   `yaml:"utils"`
}

type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Type     string `yaml:"type"` // "offline" or "token"
}

type Server struct {
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
	Version string `yaml:"version"`
	Path    string `yaml:"path"`
}

type Status struct {
	Addr string `yaml:"addr"`
}

type Journal struct {
	Dir    string `yaml:"dir"`
	SQLite string `yaml:"sqlite"`
}

type Utils struct {
	AutoReconnect      bool   `yaml:"auto-reconnect"`
	AutoReconnectDelay int    `yaml:"auto-reconnect-delay"`
	LegacyReconnect    int    `yaml:"auto-recconect-delay"`
	RespawnCommand     string `yaml:"respawn-command"`

	ChatMessages ChatMessages `yaml:"chat-messages"`
	AntiAFK      AntiAFK      `yaml:"anti-afk"`
	AutoEat      AutoEat      `yaml:"auto-eat"`
	AvoidMobs    AvoidMobs    `yaml:"avoid-mobs"`
}

type ChatMessages struct {
	Enabled     bool     `yaml:"enabled"`
	Repeat      bool     `yaml:"repeat"`
	RepeatDelay float64  `yaml:"repeat-delay"` // seconds
	Messages    []string `yaml:"messages"`
}

type AntiAFK struct {
	Enabled bool `yaml:"enabled"`
	Sneak   bool `yaml:"sneak"`
}

type AutoEat struct {
	Enabled bool     `yaml:"enabled"`
	Foods   []string `yaml:"foods"`
}

type AvoidMobs struct {
	Enabled    bool     `yaml:"enabled"`
	Hostile    []string `yaml:"hostile"`
	FleeHoldMS int      `yaml:"flee-hold-ms"`
}

const (
	DefaultReconnectDelay = 5000 * time.Millisecond
	DefaultFleeHold       = 3 * time.Second
	DefaultRespawnCommand = "/spawn"
	DefaultWSPath         = "/v1/ws"
)

// DefaultFoods are the item ids eaten when the settings file lists none.
var DefaultFoods = []string{"BERRIES", "BREAD", "APPLE", "COOKED_MEAT", "RAW_MEAT"}

// DefaultHostile are the mob types the avoidance reactor flees from.
var DefaultHostile = []string{"zombie", "skeleton", "creeper", "spider", "enderman", "witch", "slime", "phantom"}

func Defaults() Settings {
	return Settings{
		Account: Account{Username: "bot", Type: "offline"},
		Server:  Server{IP: "localhost", Port: 8080, Version: "0.9", Path: DefaultWSPath},
		Status:  Status{Addr: ":8000"},
		Utils: Utils{
			AutoReconnect:  true,
			RespawnCommand: DefaultRespawnCommand,
			ChatMessages:   ChatMessages{RepeatDelay: 60},
			AntiAFK:        AntiAFK{Enabled: true},
			AutoEat:        AutoEat{Enabled: true},
			AvoidMobs:      AvoidMobs{Enabled: true},
		},
	}
}

// Load reads and validates a YAML settings file. Unset fields keep their Defaults values.
func Load(path string) (Settings, error) {
	s := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := validate(raw); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator only sees JSON-native types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("settings must be a mapping with string keys: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return settingsSchema().Validate(v)
}

// WSURL is the world websocket endpoint.
func (s Settings) WSURL() string {
	p := strings.TrimSpace(s.Server.Path)
	if p == "" {
		p = DefaultWSPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	host := strings.TrimSpace(s.Server.IP)
	if host == "" {
		host = "localhost"
	}
	if s.Server.Port > 0 {
		return fmt.Sprintf("ws://%s:%d%s", host, s.Server.Port, p)
	}
	return fmt.Sprintf("ws://%s%s", host, p)
}

// ReconnectDelay falls back to DefaultReconnectDelay when unset or invalid.
func (u Utils) ReconnectDelay() time.Duration {
	ms := u.AutoReconnectDelay
	if ms <= 0 {
		ms = u.LegacyReconnect
	}
	if ms <= 0 {
		return DefaultReconnectDelay
	}
	return time.Duration(ms) * time.Millisecond
}

func (u Utils) Respawn() string {
	if c := strings.TrimSpace(u.RespawnCommand); c != "" {
		return c
	}
	return DefaultRespawnCommand
}

func (c ChatMessages) Delay() time.Duration {
	return time.Duration(c.RepeatDelay * float64(time.Second))
}

func (e AutoEat) FoodList() []string {
	if len(e.Foods) == 0 {
		return DefaultFoods
	}
	return e.Foods
}

func (a AvoidMobs) HostileList() []string {
	if len(a.Hostile) == 0 {
		return DefaultHostile
	}
	return a.Hostile
}

func (a AvoidMobs) FleeHold() time.Duration {
	if a.FleeHoldMS <= 0 {
		return DefaultFleeHold
	}
	return time.Duration(a.FleeHoldMS) * time.Millisecond
}
