package sync

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tidwall/gjson"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

type EmbeddedFS interface {
	Open(name string) (fs.File, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

// EmbeddedSchemas serves the JSON schema for each stream from an embedded
// filesystem, one <stream id>.json file per stream.
type EmbeddedSchemas struct {
	Root  string
	Files EmbeddedFS
}

// Schemas is the catalog of stream schemas compiled into the binary.
var Schemas = EmbeddedSchemas{Root: "schemas", Files: schemaFiles}

func (es EmbeddedSchemas) MustFindStreamSchema(id StreamID) ([]byte, error) {
	name := path.Join(es.Root, fmt.Sprintf("%s.json", id))
	schema, err := es.Files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema for stream %s %w", id, err)
	}
	if !gjson.ValidBytes(schema) {
		return nil, fmt.Errorf("schema for stream %s is not valid json", id)
	}
	return schema, nil
}

// StreamIDs lists the streams the embedded schema files cover.
func (es EmbeddedSchemas) StreamIDs() ([]StreamID, error) {
	entries, err := es.Files.ReadDir(es.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema dir %s %w", es.Root, err)
	}
	var result []StreamID
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			result = append(result, StreamID(strings.TrimSuffix(name, ".json")))
		}
	}
	return result, nil
}
