package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string            `json:"type"`
	ProtocolVersion   string            `json:"protocol_version"`
	SupportedVersions []string          `json:"supported_versions,omitempty"`
	AgentName         string            `json:"agent_name"`
	Capabilities      HelloCapabilities `json:"capabilities"`
	Auth              *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	DeltaVoxels bool `json:"delta_voxels,omitempty"`
	MaxQueue    int  `json:"max_queue,omitempty"`
}

type HelloAuth struct {
	Type  string `json:"type,omitempty"` // "offline" or "token"
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SelectedVersion string      `json:"selected_version,omitempty"`
	SessionID       string      `json:"session_id,omitempty"`
	AgentID         string      `json:"agent_id"`
	ResumeToken     string      `json:"resume_token,omitempty"`
	WorldParams     WorldParams `json:"world_params"`
	CurrentWorldID  string      `json:"current_world_id,omitempty"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	ObsRadius  int   `json:"obs_radius"`
	DayTicks   int   `json:"day_ticks"`
	Seed       int64 `json:"seed"`
}

// CATALOG (server -> client). Only the item_defs catalog is interpreted by the bot.
type CatalogMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Name            string    `json:"name"`
	Digest          string    `json:"digest"`
	Part            int       `json:"part"`
	TotalParts      int       `json:"total_parts"`
	Data            []ItemDef `json:"data"`
}

const CatalogItemDefs = "item_defs"

type ItemDef struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "BLOCK","TOOL","MATERIAL","FOOD","MECH"
	EdibleHP int    `json:"edible_hp,omitempty"`
}

// IsFood reports whether an item definition can be eaten.
func (d ItemDef) IsFood() bool {
	return d.Kind == "FOOD" && d.EdibleHP > 0
}
