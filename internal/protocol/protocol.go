package protocol

import (
	"encoding/json"
	"strings"
)

const Version = "0.9"

// SupportedVersions lists the protocol versions this client can speak.
var SupportedVersions = []string{"0.9", "1.0"}

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeCatalog = "CATALOG"
	TypeObs     = "OBS"
	TypeAct     = "ACT"
)

// Instant types sent by the agent.
const (
	InstantSay     = "SAY"
	InstantEquip   = "EQUIP"
	InstantEat     = "EAT"
	InstantControl = "CONTROL"
)

// Task types sent by the agent.
const (
	TaskMoveTo = "MOVE_TO"
)

// Event types read from OBS.
const (
	EventChat         = "CHAT"
	EventActionResult = "ACTION_RESULT"
	EventTaskDone     = "TASK_DONE"
	EventTaskFail     = "TASK_FAIL"
	EventDeath        = "DEATH"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsSupportedVersion(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}
