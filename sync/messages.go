package sync

import (
	"context"
	"fmt"
	"time"
)

// syncMessages sweeps message activity for every list, windowed so no single
// request spans more than IntervalDays. Each window's batch fans out to the
// selected sub-streams before the next window is fetched. All bookmarks
// touched by the sweep advance together at the end, then state is written
// once: a failure anywhere leaves every watermark where the sweep started.
func (s Syncer) syncMessages(ctx context.Context, lists []Record) error {
	start, err := s.BookmarkOrStart(BookMessages)
	if err != nil {
		return err
	}
	var maxSend time.Time
	for _, lst := range lists {
		gen := GenIntervals(start, s.Now, s.Config.IntervalDays)
		for {
			window, ok := gen.Next()
			if !ok {
				break
			}
			result, err := s.Client.Call(ctx, OpReportListMessageActivity, map[string]interface{}{
				"ListID":              lst["ListID"],
				"StartDate":           window.Begin,
				"EndDate":             window.End,
				"IncludeTestMessages": true,
			})
			if err != nil {
				return fmt.Errorf("failed to fetch messages %w", err)
			}
			messages, err := resultRecords(result, "WSMessageActivity")
			if err != nil {
				return fmt.Errorf("malformed messages response %w", err)
			}
			// An empty window is skipped, not a terminator: message
			// activity is windowed, never paginated.
			if len(messages) == 0 {
				continue
			}
			if err := s.writeRecords(Messages, messages); err != nil {
				return err
			}
			maxSend, err = maxSendDate(messages, maxSend)
			if err != nil {
				return err
			}
			if err := s.syncSubStreams(ctx, messages); err != nil {
				return err
			}
			if err := s.syncMessageSendsIfSelected(ctx, messages); err != nil {
				return err
			}
		}
	}
	s.SetBookmark(BookMessages, s.Now)
	s.updateSubStreamBookmarks()
	s.updateMessageSendsBookmark(maxSend)
	return s.writeState()
}

// syncSubStreams fans one window's message batch out to every selected
// per-message activity stream.
func (s Syncer) syncSubStreams(ctx context.Context, messages []Record) error {
	for _, sub := range messageSubStreams {
		if !s.Selected(sub.ID) {
			continue
		}
		if err := s.syncMessageSubStream(ctx, messages, sub); err != nil {
			return err
		}
	}
	return nil
}

// syncMessageSubStream paginates one activity stream for each message over
// the single range [bookmark, now). The bookmark is not advanced here: that
// happens once, after the whole message sweep completes.
func (s Syncer) syncMessageSubStream(ctx context.Context, messages []Record, sub subStream) error {
	start, err := s.BookmarkOrStart(sub.Book)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		msgID, ok := msg["MsgID"]
		if !ok {
			return fmt.Errorf("message record is missing expected field MsgID")
		}
		pages := GenPages()
		for {
			result, err := s.Client.Call(ctx, sub.Endpoint, map[string]interface{}{
				"MsgID":     msgID,
				"StartDate": start,
				"EndDate":   s.Now,
				"Page":      pages.Next(),
			})
			if err != nil {
				return fmt.Errorf("failed to fetch %s %w", sub.ID, err)
			}
			records, err := resultRecords(result, sub.RowElement)
			if err != nil {
				return fmt.Errorf("malformed %s response %w", sub.ID, err)
			}
			if len(records) == 0 {
				break
			}
			if err := s.writeRecords(sub.ID, AddMsgID(msg, records)); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncMessageSendsIfSelected paginates recipients per message. The service
// offers no date window for sends, so messages whose SendDate predates the
// bookmark are skipped wholesale. The filter is message-level, matching the
// server's granularity: a message on the boundary re-fetches all its pages.
func (s Syncer) syncMessageSendsIfSelected(ctx context.Context, messages []Record) error {
	if !s.Selected(MessageSends) {
		return nil
	}
	start, err := s.BookmarkOrStart(BookMessageSends)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		sendDate, err := recordTime(msg, "SendDate")
		if err != nil {
			return err
		}
		if sendDate.Before(start) {
			continue
		}
		msgID := msg["MsgID"]
		pages := GenPages()
		for {
			result, err := s.Client.Call(ctx, OpReportMessageContactSent, map[string]interface{}{
				"MsgID": msgID,
				"Page":  pages.Next(),
			})
			if err != nil {
				return fmt.Errorf("failed to fetch %s %w", MessageSends, err)
			}
			records, err := resultRecords(result, "WSMessageRecipient")
			if err != nil {
				return fmt.Errorf("malformed %s response %w", MessageSends, err)
			}
			if len(records) == 0 {
				break
			}
			if err := s.writeRecords(MessageSends, AddMsgID(msg, records)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Syncer) updateSubStreamBookmarks() {
	for _, sub := range messageSubStreams {
		if s.Selected(sub.ID) {
			s.SetBookmark(sub.Book, s.Now)
		}
	}
}

// updateMessageSendsBookmark commits the maximum SendDate observed across
// the whole sweep. Nothing moves when the sweep saw no messages.
func (s Syncer) updateMessageSendsBookmark(maxSend time.Time) {
	if s.Selected(MessageSends) && !maxSend.IsZero() {
		s.SetBookmark(BookMessageSends, maxSend)
	}
}

// maxSendDate folds one batch's SendDate values into the running maximum.
// A message without a SendDate is malformed and fatal to the sweep.
func maxSendDate(messages []Record, old time.Time) (time.Time, error) {
	result := old
	for _, msg := range messages {
		t, err := recordTime(msg, "SendDate")
		if err != nil {
			return time.Time{}, err
		}
		if t.After(result) {
			result = t
		}
	}
	return result, nil
}
