package unifeed

import (
	"slices"
	"time"
)

// Tracker derives unseen-notification state from the post collection and
// the acknowledgement watermark. It holds no state of its own.
type Tracker struct {
	store *Store
	now   func() time.Time
}

func NewTracker(store *Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// SetClock replaces the tracker's time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// UnseenCount counts posts dated strictly after the watermark. A post dated
// exactly at the watermark has been seen. When no watermark exists every
// post counts, including ones whose date would not parse.
func (t *Tracker) UnseenCount() int {
	posts := t.store.LoadPosts()
	watermark, ok := t.store.LoadWatermark()
	if !ok {
		return len(posts)
	}

	count := 0
	for _, post := range posts {
		at, err := post.ScheduledAt()
		if err != nil {
			continue
		}
		if at.After(watermark) {
			count++
		}
	}
	return count
}

// ListUnseen returns unseen posts newest-first, truncated to limit. Posts
// with unparsable dates are excluded from this date-ordered view.
func (t *Tracker) ListUnseen(limit int) []*Post {
	posts := t.store.LoadPosts()
	watermark, hasWatermark := t.store.LoadWatermark()

	type dated struct {
		post *Post
		at   time.Time
	}

	unseen := make([]dated, 0, len(posts))
	for _, post := range posts {
		at, err := post.ScheduledAt()
		if err != nil {
			continue
		}
		if hasWatermark && !at.After(watermark) {
			continue
		}
		unseen = append(unseen, dated{post: post, at: at})
	}

	slices.SortStableFunc(unseen, func(a, b dated) int {
		return b.at.Compare(a.at)
	})

	if limit > 0 && len(unseen) > limit {
		unseen = unseen[:limit]
	}

	out := make([]*Post, 0, len(unseen))
	for _, entry := range unseen {
		out = append(out, entry.post)
	}
	return out
}

// Acknowledge moves the watermark to now. Posts dated at or before this
// moment stop counting as unseen.
func (t *Tracker) Acknowledge() {
	t.store.SaveWatermark(t.now())
}
