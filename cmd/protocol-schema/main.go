package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/Zibor233/Christmas-Multiplayer-Game/client"
)

// catalogue 每个字段对应一种消息类型的载荷，键即线上的 type
type catalogue struct {
	Hello       client.Hello           `json:"hello"`
	InputMove   client.InputMove       `json:"input.move"`
	Cosmetic    client.CosmeticUpdate  `json:"player.cosmetic"`
	TreePlace   client.TreePlace       `json:"tree.place"`
	ChatSend    client.ChatSend        `json:"chat.send"`
	ChatClear   client.ChatClear       `json:"chat.clear"`
	SetName     client.SetName         `json:"set_name"`
	Welcome     client.Welcome         `json:"welcome"`
	Snapshot    client.Snapshot        `json:"state.snapshot"`
	TreePlaced  client.DecorationState `json:"tree.placed"`
	ChatMessage client.ChatMessage     `json:"chat.message"`
	ChatHistory client.ChatHistory     `json:"chat.history"`
	ChatCleared struct{}               `json:"chat.cleared"`
	Error       client.ServerError     `json:"event.error"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(catalogue))
	schema.Title = "Christmas tree room wire protocol"
	schema.Description = "Payloads carried in {type, payload} websocket frames, keyed by type"
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
