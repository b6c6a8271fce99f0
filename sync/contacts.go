package sync

import (
	"context"
	"fmt"
)

// syncSubscribedContacts paginates the subscribed-contact report for each
// list over the single range [bookmark, now); the range is not windowed
// further. The AdditionDate bookmark advances only after every list has been
// drained, then state is written once.
func (s Syncer) syncSubscribedContacts(ctx context.Context, lists []Record) error {
	start, err := s.BookmarkOrStart(BookSubscribedContacts)
	if err != nil {
		return err
	}
	for _, lst := range lists {
		listID, ok := lst["ListID"]
		if !ok {
			return fmt.Errorf("list record is missing expected field ListID")
		}
		pages := GenPages()
		for {
			result, err := s.Client.Call(ctx, OpReportRangeSubscribedContacts, map[string]interface{}{
				"ListID":    listID,
				"StartDate": start,
				"EndDate":   s.Now,
				"Page":      pages.Next(),
			})
			if err != nil {
				return fmt.Errorf("failed to fetch %s %w", SubscribedContacts, err)
			}
			contacts, err := resultRecords(result, "WSContact")
			if err != nil {
				return fmt.Errorf("malformed %s response %w", SubscribedContacts, err)
			}
			if len(contacts) == 0 {
				break
			}
			if err := s.writeRecords(SubscribedContacts, AddListID(lst, contacts)); err != nil {
				return err
			}
		}
	}
	s.SetBookmark(BookSubscribedContacts, s.Now)
	return s.writeState()
}
