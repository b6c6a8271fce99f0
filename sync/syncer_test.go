package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeCall struct {
	Op     string
	Params map[string]interface{}
}

type fakeClient struct {
	calls   []fakeCall
	respond func(op string, params map[string]interface{}) (interface{}, error)
}

func (f *fakeClient) Call(ctx context.Context, op string, params map[string]interface{}) (interface{}, error) {
	f.calls = append(f.calls, fakeCall{op, params})
	return f.respond(op, params)
}

func (f *fakeClient) callsFor(op string) []fakeCall {
	var result []fakeCall
	for _, c := range f.calls {
		if c.Op == op {
			result = append(result, c)
		}
	}
	return result
}

type collectSink struct {
	schemas []StreamID
	records map[StreamID][]Record
	states  [][]byte
}

func newCollectSink() *collectSink {
	return &collectSink{records: make(map[StreamID][]Record)}
}

func (s *collectSink) WriteSchema(stream StreamID, schema []byte, keyProperties []string) error {
	s.schemas = append(s.schemas, stream)
	return nil
}

func (s *collectSink) WriteRecords(stream StreamID, records []Record) error {
	s.records[stream] = append(s.records[stream], records...)
	return nil
}

func (s *collectSink) WriteState(state []byte) error {
	s.states = append(s.states, state)
	return nil
}

func newTestSyncer(t *testing.T, streams []string, intervalDays int, respond func(op string, params map[string]interface{}) (interface{}, error)) (Syncer, *fakeClient, *collectSink) {
	t.Helper()
	config := Config{
		StartDate:    "2021-01-01T00:00:00Z",
		IntervalDays: intervalDays,
		Streams:      streams,
	}
	client := &fakeClient{respond: respond}
	sink := newCollectSink()
	ctx := NewSyncContext(config, mustTime(t, "2021-04-01T00:00:00Z"))
	return Syncer{SyncContext: ctx, Client: client, Sink: sink}, client, sink
}

func listsResult(ids ...int64) interface{} {
	rows := make([]interface{}, len(ids))
	for i, id := range ids {
		rows[i] = map[string]interface{}{"ListID": id, "ListName": fmt.Sprintf("List %d", id)}
	}
	return map[string]interface{}{"WSList": rows}
}

func messagesResult(msgs ...map[string]interface{}) interface{} {
	rows := make([]interface{}, len(msgs))
	for i, m := range msgs {
		rows[i] = m
	}
	return map[string]interface{}{"WSMessageActivity": rows}
}

func TestMessagesSweep_WindowsPerListAndBookmark(t *testing.T) {
	syncer, client, sink := newTestSyncer(t, []string{"messages"}, 60,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(1, 2), nil
			case OpReportListMessageActivity:
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	windows := client.callsFor(OpReportListMessageActivity)
	if len(windows) != 4 {
		t.Fatalf("expected 4 windowed calls (2 lists x 2 windows), have %d", len(windows))
	}
	boundary := mustTime(t, "2021-03-02T00:00:00Z")
	first := windows[0].Params
	if !first["StartDate"].(time.Time).Equal(mustTime(t, "2021-01-01T00:00:00Z")) ||
		!first["EndDate"].(time.Time).Equal(boundary) {
		t.Errorf("unexpected first window: %v .. %v", first["StartDate"], first["EndDate"])
	}
	second := windows[1].Params
	if !second["StartDate"].(time.Time).Equal(boundary) ||
		!second["EndDate"].(time.Time).Equal(syncer.Now) {
		t.Errorf("unexpected second window: %v .. %v", second["StartDate"], second["EndDate"])
	}
	if have := first["IncludeTestMessages"]; have != true {
		t.Errorf("IncludeTestMessages not sent: %v", have)
	}

	if have, ok := syncer.Bookmark(BookMessages); !ok || !have.Equal(syncer.Now) {
		t.Errorf("messages bookmark is %v, want %v", have, syncer.Now)
	}
	if len(sink.states) != 1 {
		t.Errorf("expected exactly one state write, have %d", len(sink.states))
	}
	if len(sink.records[Lists]) != 2 {
		t.Errorf("expected 2 list records, have %d", len(sink.records[Lists]))
	}
}

func TestSubscribedContacts_PaginatesAndEnriches(t *testing.T) {
	syncer, client, sink := newTestSyncer(t, []string{"subscribed_contacts"}, 60,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(7), nil
			case OpReportRangeSubscribedContacts:
				if params["Page"].(int) == 1 {
					return map[string]interface{}{"WSContact": []interface{}{
						map[string]interface{}{"ContactID": int64(1), "EmailAddress": "a@example.com"},
						map[string]interface{}{"ContactID": int64(2), "EmailAddress": "b@example.com"},
						map[string]interface{}{"ContactID": int64(3), "EmailAddress": "c@example.com"},
					}}, nil
				}
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	pages := client.callsFor(OpReportRangeSubscribedContacts)
	if len(pages) != 2 {
		t.Fatalf("expected 2 page fetches, have %d", len(pages))
	}
	if pages[0].Params["Page"] != 1 || pages[1].Params["Page"] != 2 {
		t.Errorf("unexpected page sequence: %v, %v", pages[0].Params["Page"], pages[1].Params["Page"])
	}
	contacts := sink.records[SubscribedContacts]
	if len(contacts) != 3 {
		t.Fatalf("expected 3 contact records, have %d", len(contacts))
	}
	for i, record := range contacts {
		if record["ListID"] != int64(7) {
			t.Errorf("record %d missing ListID enrichment: %v", i, record)
		}
	}
	if have, ok := syncer.Bookmark(BookSubscribedContacts); !ok || !have.Equal(syncer.Now) {
		t.Errorf("contacts bookmark is %v, want %v", have, syncer.Now)
	}
	if len(sink.states) != 1 {
		t.Errorf("expected exactly one state write, have %d", len(sink.states))
	}
}

func TestSubStreamFailure_EmitsEarlierRecordsButNoCommit(t *testing.T) {
	boom := errors.New("service unavailable")
	sendDate := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	syncer, _, sink := newTestSyncer(t, []string{"messages", "message_clicks"}, 365,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(1), nil
			case OpReportListMessageActivity:
				return messagesResult(
					map[string]interface{}{"MsgID": int64(1), "SendDate": sendDate},
					map[string]interface{}{"MsgID": int64(2), "SendDate": sendDate},
					map[string]interface{}{"MsgID": int64(3), "SendDate": sendDate},
				), nil
			case OpReportRangeMessageContactClick:
				switch params["MsgID"] {
				case int64(1):
					if params["Page"].(int) == 1 {
						return map[string]interface{}{"WSMessageClick": []interface{}{
							map[string]interface{}{"EmailAddress": "a@example.com", "ClickDate": sendDate},
						}}, nil
					}
					return nil, nil
				case int64(2):
					return nil, boom
				}
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})

	err := syncer.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected the remote failure to propagate, have %v", err)
	}
	if len(sink.states) != 0 {
		t.Errorf("expected no state writes after a failed sweep, have %d", len(sink.states))
	}
	if len(sink.records[MessageClicks]) != 1 {
		t.Errorf("expected message 1's click to be emitted before the failure, have %d records", len(sink.records[MessageClicks]))
	}
	if have, _ := syncer.Bookmark(BookMessageClicks); have.Equal(syncer.Now) {
		t.Error("clicks bookmark advanced to now despite the failed sweep")
	}
}

func TestMessageSends_FiltersByMessageSendDate(t *testing.T) {
	oldSend := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	newSend := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)
	syncer, client, _ := newTestSyncer(t, []string{"messages", "message_sends"}, 365,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(1), nil
			case OpReportListMessageActivity:
				return messagesResult(
					map[string]interface{}{"MsgID": int64(10), "SendDate": oldSend},
					map[string]interface{}{"MsgID": int64(11), "SendDate": newSend},
				), nil
			case OpReportMessageContactSent:
				if params["Page"].(int) == 1 {
					return map[string]interface{}{"WSMessageRecipient": []interface{}{
						map[string]interface{}{"EmailAddress": "a@example.com", "SendDate": newSend},
					}}, nil
				}
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	syncer.SetBookmark(BookMessageSends, mustTime(t, "2021-03-01T00:00:00Z"))

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	sent := client.callsFor(OpReportMessageContactSent)
	for _, c := range sent {
		if c.Params["MsgID"] != int64(11) {
			t.Errorf("fetched sends for filtered-out message %v", c.Params["MsgID"])
		}
	}
	if len(sent) != 2 {
		t.Errorf("expected 2 page fetches for the recent message, have %d", len(sent))
	}
	// The sends bookmark is the maximum observed SendDate, not now.
	if have, ok := syncer.Bookmark(BookMessageSends); !ok || !have.Equal(newSend) {
		t.Errorf("sends bookmark is %v, want %v", have, newSend)
	}
}

func TestUnknownSelectedStreamIsInert(t *testing.T) {
	syncer, client, _ := newTestSyncer(t, []string{"messages", "message_telegrams"}, 60,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(1), nil
			case OpReportListMessageActivity:
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, c := range client.calls {
		if c.Op != OpGetContactListCollection && c.Op != OpReportListMessageActivity {
			t.Errorf("unexpected operation %s for unknown stream", c.Op)
		}
	}
}

func TestBouncesBookmarkKeyedUnderBounces(t *testing.T) {
	syncer, _, _ := newTestSyncer(t, []string{"messages", "message_bounces"}, 60,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(1), nil
			case OpReportListMessageActivity:
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if have, ok := syncer.Bookmark(BookMessageBounces); !ok || !have.Equal(syncer.Now) {
		t.Errorf("bounces bookmark is %v, want %v", have, syncer.Now)
	}
	if _, ok := syncer.Bookmark(Bookmark{MessageUnsubs, "BounceDate"}); ok {
		t.Error("bounce bookmark leaked under the unsubs stream")
	}
}

func TestSchemasWrittenForSelectedStreamsOnly(t *testing.T) {
	syncer, _, sink := newTestSyncer(t, []string{"messages"}, 60,
		func(op string, params map[string]interface{}) (interface{}, error) {
			switch op {
			case OpGetContactListCollection:
				return listsResult(), nil
			case OpReportListMessageActivity:
				return nil, nil
			}
			return nil, fmt.Errorf("unexpected op %s", op)
		})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []StreamID{Lists, Messages}
	if len(sink.schemas) != len(want) {
		t.Fatalf("expected schemas %v, have %v", want, sink.schemas)
	}
	for i := range want {
		if sink.schemas[i] != want[i] {
			t.Errorf("schema %d is %s, want %s", i, sink.schemas[i], want[i])
		}
	}
}
