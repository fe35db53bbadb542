package unifeed

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Board is the per-context entry point: one instance per open execution
// context, torn down when the context closes. It wires the Store, the
// Notification Tracker, the View Builder and the archive index together
// behind the render contract the shell consumes.
type Board struct {
	store   *Store
	tracker *Tracker
	index   *ArchiveIndex
	logger  *slog.Logger
	now     func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// Option configures a Board at construction time.
type Option func(*boardConfig)

type boardConfig struct {
	bus      Bus
	logger   *slog.Logger
	now      func() time.Time
	seedTags []string
}

// WithBus sets the sync transport. Defaults to the marker watcher over the
// board's own medium.
func WithBus(bus Bus) Option {
	return func(cfg *boardConfig) { cfg.bus = bus }
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) { cfg.logger = logger }
}

// WithClock replaces the board's time source.
func WithClock(now func() time.Time) Option {
	return func(cfg *boardConfig) { cfg.now = now }
}

// WithSeedTags pre-populates the tag registry on construction.
func WithSeedTags(tags ...string) Option {
	return func(cfg *boardConfig) { cfg.seedTags = tags }
}

func NewBoard(kv KeyValue, opts ...Option) *Board {
	cfg := &boardConfig{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bus == nil {
		cfg.bus = PreferredBus(nil, kv, time.Second, cfg.logger)
	}

	store := NewStore(kv, cfg.bus, cfg.logger)
	store.SetClock(cfg.now)

	tracker := NewTracker(store)
	tracker.SetClock(cfg.now)

	board := &Board{
		store:   store,
		tracker: tracker,
		index:   NewArchiveIndex(cfg.logger),
		logger:  cfg.logger,
		now:     cfg.now,
	}

	if len(cfg.seedTags) > 0 {
		store.AddTags(cfg.seedTags)
	}

	return board
}

// Store exposes the board's persistent state layer.
func (b *Board) Store() *Store {
	return b.store
}

// Publish validates the raw form input and, if it passes, constructs the
// post, persists the grown collection, merges new tags into the registry
// and indexes the post for archive search. A validation failure mutates
// nothing. Persistence trouble past validation is absorbed by the store's
// fail-open policy and never aborts the publish.
func (b *Board) Publish(input PublishInput) (*Post, error) {
	input = input.trimmed()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	at, err := input.scheduledAt()
	if err != nil {
		return nil, err
	}

	post := buildPost(b.nextID(), input, at)

	posts := b.store.LoadPosts()
	posts = append([]*Post{post}, posts...)
	b.store.SavePosts(posts)
	b.store.AddTags(post.Tags)

	if err := b.index.Index(post); err != nil {
		b.logger.Warn("failed to index post for archive search",
			slog.Int64("id", post.ID),
			slog.String("error", err.Error()))
	}

	return post, nil
}

// RenderableFeed derives the displayable post list: time-gated, sorted
// newest-first, filtered. This is the only post list the shell may render.
func (b *Board) RenderableFeed(filter *Filter) []*Post {
	return BuildFeed(b.store.LoadPosts(), filter, b.now())
}

// FollowedFeed is RenderableFeed filtered to the followed tags, or the
// unfiltered feed when every known tag is followed.
func (b *Board) FollowedFeed() []*Post {
	var followed []string
	allFollowed := true
	for _, tf := range b.TagFollowState() {
		if tf.Followed {
			followed = append(followed, tf.Tag)
		} else {
			allFollowed = false
		}
	}
	if allFollowed || len(followed) == 0 {
		return b.RenderableFeed(nil)
	}
	return b.RenderableFeed(FilterTags(followed...))
}

// UnseenCount reports how many posts are newer than the watermark.
func (b *Board) UnseenCount() int {
	return b.tracker.UnseenCount()
}

// ListUnseen returns up to limit unseen posts, newest first.
func (b *Board) ListUnseen(limit int) []*Post {
	return b.tracker.ListUnseen(limit)
}

// Acknowledge marks all current notifications as seen.
func (b *Board) Acknowledge() {
	b.tracker.Acknowledge()
}

// ToggleFollow records an explicit follow choice for a tag.
func (b *Board) ToggleFollow(tag string, followed bool) {
	normalized := NormalizeTag(tag)
	if normalized == "" || normalized == "#" {
		return
	}
	follow := b.store.LoadFollow()
	follow[normalized] = followed
	b.store.SaveFollow(follow)
}

// TagFollowState returns the render rows for the follow list: every
// registered tag with its resolved follow state and current post count,
// sorted alphabetically without regard to case.
func (b *Board) TagFollowState() []TagFollow {
	tags := b.store.LoadTags()
	follow := b.store.LoadFollow()
	counts := TagCounts(b.store.LoadPosts())

	rows := make([]TagFollow, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, TagFollow{
			Tag:      tag,
			Followed: follow.Followed(tag),
			Count:    counts[tag],
		})
	}

	slices.SortStableFunc(rows, func(a, b TagFollow) int {
		return strings.Compare(strings.ToLower(a.Tag), strings.ToLower(b.Tag))
	})
	return rows
}

// OnChange registers a handler for changes made by other contexts. The
// local context does not hear its own writes and re-renders synchronously
// after them; that remains the caller's responsibility.
func (b *Board) OnChange(handler Handler) (cancel func()) {
	return b.store.Bus().Subscribe(handler)
}

// Reindex rebuilds the archive search index from persisted state. Called
// after external changes arrive; local publishes index incrementally.
func (b *Board) Reindex() error {
	return b.index.Rebuild(b.store.LoadPosts())
}

// SearchArchive runs a full-text query over the entire archive, including
// posts still gated out of the feed. Results are newest-first.
func (b *Board) SearchArchive(query string, limit int) ([]*Post, error) {
	return b.index.Search(b.store.LoadPosts(), query, limit)
}

// Close tears down the board's per-context resources. The storage medium
// stays open; it belongs to whoever opened it and may be shared with other
// boards.
func (b *Board) Close() error {
	if err := b.store.Bus().Close(); err != nil {
		return err
	}
	return b.index.Close()
}

// nextID derives a creation-time integer identifier, bumped past the last
// issued one so rapid publishes within a millisecond stay unique and
// monotonic.
func (b *Board) nextID() int64 {
	b.idMu.Lock()
	defer b.idMu.Unlock()

	id := b.now().UnixMilli()
	if id <= b.lastID {
		id = b.lastID + 1
	}
	b.lastID = id
	return id
}
