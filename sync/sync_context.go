package sync

import (
	"fmt"
	"time"
)

// SyncContext holds shared sync configuration and the run's progress state.
// Now is captured once at construction and never changes mid-run — every
// window is measured against this single value so the sweep terminates.
// The bookmark map is owned exclusively by the context; syncers read and
// update it through the accessor methods only.
type SyncContext struct {
	Config Config
	Now    time.Time

	selected  map[StreamID]bool
	bookmarks map[Bookmark]time.Time
}

// NewSyncContext captures "now" and the selected-stream set for one run.
// Stream ids in the config that match no known stream are carried inertly:
// they select nothing and fail nothing.
func NewSyncContext(config Config, now time.Time) *SyncContext {
	selected := make(map[StreamID]bool, len(config.Streams))
	for _, id := range config.Streams {
		selected[StreamID(id)] = true
	}
	return &SyncContext{
		Config:    config,
		Now:       now.UTC(),
		selected:  selected,
		bookmarks: make(map[Bookmark]time.Time),
	}
}

// Selected reports whether the stream was selected for this run.
func (c *SyncContext) Selected(id StreamID) bool {
	return c.selected[id]
}

// Bookmark returns the watermark for the given key, if one is set.
func (c *SyncContext) Bookmark(b Bookmark) (time.Time, bool) {
	t, ok := c.bookmarks[b]
	return t, ok
}

// SetBookmark advances the watermark for the given key. Bookmarks are
// monotonic: a value earlier than the current one is ignored.
func (c *SyncContext) SetBookmark(b Bookmark, t time.Time) {
	if existing, ok := c.bookmarks[b]; ok && t.Before(existing) {
		return
	}
	c.bookmarks[b] = t.UTC()
}

// BookmarkOrStart returns the watermark for the given key, seeding it with
// the configured start date when no bookmark exists yet.
func (c *SyncContext) BookmarkOrStart(b Bookmark) (time.Time, error) {
	if t, ok := c.bookmarks[b]; ok {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, c.Config.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse startDate %q %w", c.Config.StartDate, err)
	}
	t = t.UTC()
	c.bookmarks[b] = t
	return t, nil
}
