package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Client calls a named remote operation with keyword parameters and returns
// the decoded result node. Authentication, retries and wire encoding are the
// client's concern; an error from Call aborts the current sweep.
type Client interface {
	Call(ctx context.Context, op string, params map[string]interface{}) (interface{}, error)
}

// Syncer executes one run: lists first, then the selected streams fanned out
// from them. It borrows bookmark access from the embedded SyncContext and
// never holds watermark state of its own.
type Syncer struct {
	*SyncContext
	Client Client
	Sink   Sink
}

// Run performs a full sync sweep. Bookmarks advance only when the sweep for
// a stream completes; a run that fails part-way leaves them untouched, so a
// restart re-extracts the incomplete window (at-least-once).
func (s Syncer) Run(ctx context.Context) error {
	run := uuid.NewString()
	log.Printf("sync start run=%s now=%s", run, s.Now.Format(TimeFormat))
	if err := s.writeSchemas(); err != nil {
		return err
	}
	if err := s.syncLists(ctx); err != nil {
		return err
	}
	log.Printf("sync complete run=%s", run)
	return nil
}

// writeSchemas emits the schema for lists and every selected stream before
// any records flow.
func (s Syncer) writeSchemas() error {
	for _, id := range AllStreams {
		if id != Lists && !s.Selected(id) {
			continue
		}
		schema, err := Schemas.MustFindStreamSchema(id)
		if err != nil {
			return err
		}
		if err := s.Sink.WriteSchema(id, schema, KeyProperties[id]); err != nil {
			return fmt.Errorf("failed to write schema for %s %w", id, err)
		}
	}
	return nil
}

// syncLists retrieves every contact list in one unpaginated call and then
// drives the dependent streams. Lists carry no bookmark.
func (s Syncer) syncLists(ctx context.Context) error {
	result, err := s.Client.Call(ctx, OpGetContactListCollection, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch lists %w", err)
	}
	lists, err := resultRecords(result, "WSList")
	if err != nil {
		return fmt.Errorf("malformed lists response %w", err)
	}
	if err := s.writeRecords(Lists, lists); err != nil {
		return err
	}
	if s.Selected(Messages) {
		if err := s.syncMessages(ctx, lists); err != nil {
			return err
		}
	}
	if s.Selected(SubscribedContacts) {
		if err := s.syncSubscribedContacts(ctx, lists); err != nil {
			return err
		}
	}
	return nil
}

// writeRecords hands a normalized batch to the sink and logs the count.
func (s Syncer) writeRecords(id StreamID, records []Record) error {
	if err := s.Sink.WriteRecords(id, records); err != nil {
		return fmt.Errorf("failed to write %s records %w", id, err)
	}
	log.Printf("wrote %d %s records", len(records), id)
	return nil
}

// writeState emits the bookmark snapshot, once per completed sweep.
func (s Syncer) writeState() error {
	if err := s.Sink.WriteState(s.StateJSON()); err != nil {
		return fmt.Errorf("failed to write state %w", err)
	}
	return nil
}

// resultRecords extracts the row elements named by element from a decoded
// result node and normalizes every timestamp in them. A nil result or a
// missing element is an empty batch, which signals pagination termination
// or a window with no activity. Any other shape is malformed and fatal.
func resultRecords(result interface{}, element string) ([]Record, error) {
	if result == nil {
		return nil, nil
	}
	node, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result shape %T", result)
	}
	wrapped, ok := node[element]
	if !ok {
		return nil, nil
	}
	var rows []interface{}
	switch v := wrapped.(type) {
	case []interface{}:
		rows = v
	case map[string]interface{}:
		rows = []interface{}{v}
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected %s shape %T", element, wrapped)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		m, ok := NormalizeTimes(row).(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected %s row shape %T", element, row)
		}
		records = append(records, m)
	}
	return records, nil
}
