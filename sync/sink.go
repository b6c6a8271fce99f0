package sync

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Sink accepts the normalized output of a sync run. Implementations own
// durable emission; the syncers only decide what to emit and when.
type Sink interface {
	WriteSchema(stream StreamID, schema []byte, keyProperties []string) error
	WriteRecords(stream StreamID, records []Record) error
	WriteState(state []byte) error
}

// MessageWriter emits the sync output as JSON lines (SCHEMA / RECORD /
// STATE messages) on a writer, one message per line.
type MessageWriter struct {
	Out io.Writer
}

func NewMessageWriter(out io.Writer) *MessageWriter {
	return &MessageWriter{Out: out}
}

func (w *MessageWriter) WriteSchema(stream StreamID, schema []byte, keyProperties []string) error {
	line := []byte(`{"type":"SCHEMA"}`)
	line, _ = sjson.SetBytes(line, "stream", string(stream))
	// Embedded schema files are indented; compact so the message stays on
	// one line.
	line, err := sjson.SetRawBytes(line, "schema", pretty.Ugly(schema))
	if err != nil {
		return fmt.Errorf("failed to build schema message for %s %w", stream, err)
	}
	line, _ = sjson.SetBytes(line, "key_properties", keyProperties)
	return w.writeLine(line)
}

func (w *MessageWriter) WriteRecords(stream StreamID, records []Record) error {
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record %w", stream, err)
		}
		line := []byte(`{"type":"RECORD"}`)
		line, _ = sjson.SetBytes(line, "stream", string(stream))
		line, err = sjson.SetRawBytes(line, "record", raw)
		if err != nil {
			return fmt.Errorf("failed to build record message for %s %w", stream, err)
		}
		if err := w.writeLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (w *MessageWriter) WriteState(state []byte) error {
	line := []byte(`{"type":"STATE"}`)
	line, err := sjson.SetRawBytes(line, "value", state)
	if err != nil {
		return fmt.Errorf("failed to build state message %w", err)
	}
	return w.writeLine(line)
}

func (w *MessageWriter) writeLine(line []byte) error {
	if _, err := w.Out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write output line %w", err)
	}
	return nil
}
