package protocol

type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	AgentID         string `json:"agent_id"`

	Self      SelfObs      `json:"self"`
	Inventory []ItemStack  `json:"inventory"`
	Equipment EquipmentObs `json:"equipment"`

	Entities []EntityObs `json:"entities"`
	Events   []Event     `json:"events"`
	Tasks    []TaskObs   `json:"tasks"`
}

type SelfObs struct {
	Pos     [3]int   `json:"pos"`
	Yaw     int      `json:"yaw"`
	HP      int      `json:"hp"`
	Hunger  int      `json:"hunger"`
	Stamina float64  `json:"stamina"`
	Status  []string `json:"status"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type EquipmentObs struct {
	MainHand string   `json:"main_hand"`
	Armor    []string `json:"armor"`
}

type EntityObs struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"` // "AGENT", "MOB", "ITEM", ...
	MobType string   `json:"mob_type,omitempty"`
	Name    string   `json:"name,omitempty"` // player name for AGENT entities
	Pos     [3]int   `json:"pos"`
	Tags    []string `json:"tags,omitempty"`
}

// Event is a loosely typed OBS event; see the Event* constants.
type Event map[string]interface{}

// Type returns the event type, or "" when missing.
func (e Event) Type() string { return e.Str("type") }

// Str returns a string field, or "" when missing or not a string.
func (e Event) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Bool returns a boolean field, or false when missing.
func (e Event) Bool(key string) bool {
	b, _ := e[key].(bool)
	return b
}

type TaskObs struct {
	TaskID   string  `json:"task_id"`
	Kind     string  `json:"kind"`
	Progress float64 `json:"progress"`
	Target   [3]int  `json:"target,omitempty"`
	EtaTicks int     `json:"eta_ticks,omitempty"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	AgentID         string       `json:"agent_id"`
	Instants        []InstantReq `json:"instants,omitempty"`
	Tasks           []TaskReq    `json:"tasks,omitempty"`
	Cancel          []string     `json:"cancel,omitempty"`
}

type InstantReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// SAY
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`

	// EQUIP / EAT
	ItemID string `json:"item_id,omitempty"`
	Count  int    `json:"count,omitempty"`

	// CONTROL
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

type TaskReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Target    [3]int  `json:"target,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty"`
}
