package model

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Per-collection schemas checked before any payload is decoded into a
// typed record. The backend has no fixed contract for unknown fields, so
// the schemas pin down only what the client relies on.
var collectionSchemas = map[string]string{
	CollectionPrivateTodos: `{
		"type": "object",
		"required": ["id", "title", "user"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"completed": {"type": "boolean"},
			"user": {"type": "string", "minLength": 1}
		}
	}`,
	CollectionPublicTodos: `{
		"type": "object",
		"required": ["id", "title", "author"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"completed": {"type": "boolean"},
			"author": {"type": "string", "minLength": 1},
			"last_edited_at": {"type": "string"}
		}
	}`,
	CollectionGroupTodos: `{
		"type": "object",
		"required": ["id", "title", "author", "group"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"completed": {"type": "boolean"},
			"author": {"type": "string", "minLength": 1},
			"group": {"type": "string", "minLength": 1}
		}
	}`,
	CollectionGroups: `{
		"type": "object",
		"required": ["id", "name", "admin"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"admin": {"type": "string", "minLength": 1}
		}
	}`,
	CollectionGroupMembers: `{
		"type": "object",
		"required": ["id", "group", "user"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"group": {"type": "string", "minLength": 1},
			"user": {"type": "string", "minLength": 1}
		}
	}`,
	CollectionUsers: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"email": {"type": "string"},
			"name": {"type": "string"},
			"verified": {"type": "boolean"}
		}
	}`,
}

var compiledSchemas = compileSchemas()

func compileSchemas() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(collectionSchemas))
	for name, src := range collectionSchemas {
		c := jsonschema.NewCompiler()
		url := name + ".schema.json"
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("model: add schema %s: %v", name, err))
		}
		out[name] = c.MustCompile(url)
	}
	return out
}

// DecodeRecord validates raw against the collection's schema, then
// unmarshals it into v. A payload the schema rejects never reaches the
// typed structs.
func DecodeRecord(collection string, raw json.RawMessage, v any) error {
	sch, ok := compiledSchemas[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	var loose any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return fmt.Errorf("decode %s record: %w", collection, err)
	}
	if err := sch.Validate(loose); err != nil {
		return fmt.Errorf("invalid %s record: %w", collection, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s record: %w", collection, err)
	}
	return nil
}

// DecodeRecords applies DecodeRecord across a list payload. The failing
// index is named so the bad record can be found in the gateway response.
func DecodeRecords[T any](collection string, raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var rec T
		if err := DecodeRecord(collection, raw, &rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
