package sync

import (
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LoadState restores bookmarks from a persisted state snapshot. The shape is
// {"bookmarks": {<stream>: {<field>: <timestamp>}}}; timestamps are either
// canonical (TimeFormat) or RFC3339. Empty input is a valid fresh state.
func (c *SyncContext) LoadState(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid state json")
	}
	var err error
	gjson.GetBytes(data, "bookmarks").ForEach(func(stream, fields gjson.Result) bool {
		fields.ForEach(func(field, value gjson.Result) bool {
			var t time.Time
			t, err = ParseTime(value.String())
			if err != nil {
				err = fmt.Errorf("failed to parse bookmark %s.%s %w", stream.String(), field.String(), err)
				return false
			}
			c.bookmarks[Bookmark{StreamID(stream.String()), field.String()}] = t
			return true
		})
		return err == nil
	})
	return err
}

// StateJSON renders the current bookmark map as a snapshot suitable for
// persistence and for emission through the sink. Keys are sorted so repeated
// snapshots of the same state are byte-identical.
func (c *SyncContext) StateJSON() []byte {
	keys := make([]Bookmark, 0, len(c.bookmarks))
	for b := range c.bookmarks {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Stream != keys[j].Stream {
			return keys[i].Stream < keys[j].Stream
		}
		return keys[i].Field < keys[j].Field
	})
	out := []byte(`{"bookmarks":{}}`)
	for _, b := range keys {
		path := fmt.Sprintf("bookmarks.%s.%s", b.Stream, b.Field)
		out, _ = sjson.SetBytes(out, path, c.bookmarks[b].UTC().Format(TimeFormat))
	}
	return out
}
