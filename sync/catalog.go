package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/sjson"
)

// CatalogEntry describes one stream for discovery output.
type CatalogEntry struct {
	Stream        StreamID
	DisplayName   string
	Schema        []byte
	KeyProperties []string
	BookmarkField string
}

// BuildCatalog assembles the discovery catalog from the embedded schemas
// and the stream registry.
func BuildCatalog(schemas EmbeddedSchemas) ([]CatalogEntry, error) {
	var result []CatalogEntry
	for _, id := range AllStreams {
		schema, err := schemas.MustFindStreamSchema(id)
		if err != nil {
			return nil, err
		}
		result = append(result, CatalogEntry{
			Stream:        id,
			DisplayName:   strcase.ToCamel(string(id)),
			Schema:        schema,
			KeyProperties: KeyProperties[id],
			BookmarkField: bookmarkField(id),
		})
	}
	return result, nil
}

func bookmarkField(id StreamID) string {
	switch id {
	case Messages:
		return BookMessages.Field
	case MessageSends:
		return BookMessageSends.Field
	case SubscribedContacts:
		return BookSubscribedContacts.Field
	}
	for _, sub := range messageSubStreams {
		if sub.ID == id {
			return sub.Book.Field
		}
	}
	return ""
}

// FormatCatalogJSON renders the catalog as a single JSON document, the shape a
// downstream loader consumes to select streams.
func FormatCatalogJSON(entries []CatalogEntry) ([]byte, error) {
	out := []byte(`{"streams":[]}`)
	for i, e := range entries {
		prefix := fmt.Sprintf("streams.%d.", i)
		out, _ = sjson.SetBytes(out, prefix+"tap_stream_id", string(e.Stream))
		out, _ = sjson.SetBytes(out, prefix+"stream", string(e.Stream))
		var err error
		out, err = sjson.SetRawBytes(out, prefix+"schema", e.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog entry for %s %w", e.Stream, err)
		}
		out, _ = sjson.SetBytes(out, prefix+"key_properties", e.KeyProperties)
		if e.BookmarkField != "" {
			out, _ = sjson.SetBytes(out, prefix+"replication_key", e.BookmarkField)
		}
	}
	return out, nil
}

// FormatCatalogCSV renders a human-readable stream summary.
func FormatCatalogCSV(entries []CatalogEntry) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"Stream", "Display Name", "Key Properties", "Bookmark Field"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		keys := ""
		for i, k := range e.KeyProperties {
			if i > 0 {
				keys += "+"
			}
			keys += k
		}
		if err := writer.Write([]string{string(e.Stream), e.DisplayName, keys, e.BookmarkField}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
