package config

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const settingsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "bot-account": {
      "type": "object",
      "properties": {
        "username": {"type": "string", "minLength": 1},
        "password": {"type": "string"},
        "type": {"enum": ["offline", "token"]}
      }
    },
    "server": {
      "type": "object",
      "properties": {
        "ip": {"type": "string"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "version": {"type": ["string", "number"]},
        "path": {"type": "string"}
      }
    },
    "status": {
      "type": "object",
      "properties": {"addr": {"type": "string"}}
    },
    "journal": {
      "type": "object",
      "properties": {
        "dir": {"type": "string"},
        "sqlite": {"type": "string"}
      }
    },
    "utils": {
      "type": "object",
      "properties": {
        "auto-reconnect": {"type": "boolean"},
        "auto-reconnect-delay": {"type": "number"},
        "auto-recconect-delay": {"type": "number"},
        "respawn-command": {"type": "string"},
        "chat-messages": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "repeat": {"type": "boolean"},
            "repeat-delay": {"type": "number", "exclusiveMinimum": 0},
            "messages": {"type": "array", "items": {"type": "string"}}
          }
        },
        "anti-afk": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "sneak": {"type": "boolean"}
          }
        },
        "auto-eat": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "foods": {"type": "array", "items": {"type": "string"}}
          }
        },
        "avoid-mobs": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "hostile": {"type": "array", "items": {"type": "string"}},
            "flee-hold-ms": {"type": "integer", "minimum": 0}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

func settingsSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		schema = jsonschema.MustCompileString("settings.schema.json", settingsSchemaJSON)
	})
	return schema
}
