package unifeed

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Store owns the four persisted collections (posts, tag registry, follow
// map, watermark) plus the shared last-modified marker. It is the only
// component that touches the KeyValue medium.
//
// The store is deliberately fail-open: a write to an unavailable medium is
// a logged no-op, a collection that no longer parses is reset to empty, and
// neither interrupts the caller. State is always persisted whole, never as
// a diff, so a context that missed a notification reconstructs correct
// state on its next load.
type Store struct {
	kv     KeyValue
	bus    Bus
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(kv KeyValue, bus Bus, logger *slog.Logger) *Store {
	if bus == nil {
		bus = NopBus{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the store's time source. Tests use this to pin "now".
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Bus returns the sync bus the store publishes on.
func (s *Store) Bus() Bus {
	return s.bus
}

// LoadPosts returns the full post collection, newest-first as persisted.
// Missing, unreadable or corrupt data yields an empty collection.
func (s *Store) LoadPosts() []*Post {
	var posts []*Post
	if !s.load(KeyPosts, &posts) {
		return nil
	}
	return posts
}

// SavePosts replaces the whole post collection.
func (s *Store) SavePosts(posts []*Post) {
	if posts == nil {
		posts = []*Post{}
	}
	s.save(KeyPosts, CollectionPosts, posts)
}

// LoadTags returns the tag registry in insertion order.
func (s *Store) LoadTags() []string {
	var tags []string
	if !s.load(KeyTags, &tags) {
		return nil
	}
	return tags
}

// AddTags merges new tags into the registry. Each tag is normalized before
// a case-insensitive dedup against the existing set; first-seen casing
// wins. The merge is a read-modify-write over the whole collection and is
// not atomic across contexts: two contexts merging concurrently race, and
// the last writer's registry wins.
func (s *Store) AddTags(tags []string) {
	if len(tags) == 0 {
		return
	}

	existing := s.LoadTags()
	seen := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		seen[strings.ToLower(tag)] = struct{}{}
	}

	added := false
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" || normalized == "#" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, normalized)
		added = true
	}

	if !added {
		return
	}
	if existing == nil {
		existing = []string{}
	}
	s.save(KeyTags, CollectionTags, existing)
}

// LoadFollow returns the persisted follow map. Only explicit choices are
// stored; see FollowMap.Resolve for the default-followed semantics.
func (s *Store) LoadFollow() FollowMap {
	follow := make(FollowMap)
	if !s.load(KeyFollow, &follow) {
		return make(FollowMap)
	}
	if follow == nil {
		follow = make(FollowMap)
	}
	return follow
}

// SaveFollow replaces the follow map.
func (s *Store) SaveFollow(follow FollowMap) {
	if follow == nil {
		follow = make(FollowMap)
	}
	s.save(KeyFollow, CollectionFollow, follow)
}

// LoadWatermark returns the last-acknowledged timestamp. The second return
// is false when nothing has ever been acknowledged.
func (s *Store) LoadWatermark() (time.Time, bool) {
	var raw string
	if !s.load(KeyLastSeen, &raw) || raw == "" {
		return time.Time{}, false
	}

	watermark, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("discarding unparsable watermark",
			slog.String("value", raw),
			slog.String("error", err.Error()))
		return time.Time{}, false
	}
	return watermark, true
}

// SaveWatermark persists the last-acknowledged timestamp.
func (s *Store) SaveWatermark(watermark time.Time) {
	s.save(KeyLastSeen, CollectionWatermark, watermark.Format(time.RFC3339))
}

// LastModified returns the shared marker's value, zero when never written.
func (s *Store) LastModified() (time.Time, bool) {
	value, err := s.kv.Get(KeyLastModified)
	if err != nil {
		return time.Time{}, false
	}

	millis, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// load reads and unmarshals one collection. It returns false when the
// caller should fall back to an empty default: key missing, medium
// unavailable, or stored bytes corrupt. Corrupt data is discarded so the
// next write starts clean.
func (s *Store) load(key string, out any) bool {
	value, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("storage read failed, serving empty state",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return false
	}

	if err := json.Unmarshal(value, out); err != nil {
		s.logger.Warn("discarding corrupt collection",
			slog.String("key", key),
			slog.String("error", err.Error()))
		if err := s.kv.Delete(key); err != nil {
			s.logger.Warn("failed to clear corrupt collection",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return false
	}
	return true
}

// save marshals and writes one collection, touches the shared marker, and
// announces the change. Persistence failures are absorbed.
func (s *Store) save(key string, collection Collection, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to marshal collection",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	if err := s.kv.Put(key, data); err != nil {
		s.logger.Warn("storage write failed, continuing ephemeral",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	s.touchMarker()
	s.bus.Publish(collection)
}

func (s *Store) touchMarker() {
	marker := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.kv.Put(KeyLastModified, []byte(marker)); err != nil {
		s.logger.Warn("failed to touch last-modified marker",
			slog.String("error", err.Error()))
	}
}
