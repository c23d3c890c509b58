package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaURL = "mem://gamesync/player_record.schema.json"

// recordSchema accepts partial records: missing fields are filled in by
// Normalize and a missing id by the caller, which knows whose record it asked
// for. Present fields must have the right shape.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "username": {"type": "string"},
    "house": {"type": "string"},
    "level": {"type": "integer", "minimum": 0},
    "experience": {"type": "integer", "minimum": 0},
    "gold": {"type": "integer"},
    "position": {
      "type": "object",
      "properties": {
        "x": {"type": "number"},
        "y": {"type": "number"},
        "z": {"type": "number"}
      }
    },
    "inventory": {"type": ["array", "null"]},
    "equipment": {"type": ["object", "null"]},
    "stats": {"type": ["object", "null"]},
    "knownSpells": {"type": ["array", "null"], "items": {"type": "string"}},
    "activeQuests": {"type": ["array", "null"], "items": {"type": "string"}},
    "completedQuests": {"type": ["array", "null"], "items": {"type": "string"}},
    "flags": {"type": ["object", "null"]}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func playerRecordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(recordSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// DecodePlayerRecord validates a fetched payload and decodes it into a
// normalized record. Payloads wrapped as {"player": {...}} are unwrapped.
func DecodePlayerRecord(data []byte) (*PlayerRecord, error) {
	var wrapper struct {
		Player json.RawMessage `json:"player"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Player) > 0 && wrapper.Player[0] == '{' {
		data = wrapper.Player
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}

	schema, err := playerRecordSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("validating record: %w", err)
	}

	var rec PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}
