package unifeed

import (
	"slices"
	"strings"
	"time"
)

// Filter selects which visible posts make it into the rendered feed. The
// two modes are mutually exclusive: a tag set (the follow list) or a free
// text query. A nil *Filter passes every visible post.
type Filter struct {
	tags  []string
	query string
}

// FilterTags builds a tag-follow filter: a post passes if any of its tags
// matches any of the given tags, case-insensitively.
func FilterTags(tags ...string) *Filter {
	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" || normalized == "#" {
			continue
		}
		lowered = append(lowered, strings.ToLower(normalized))
	}
	return &Filter{tags: lowered}
}

// FilterQuery builds a free-text filter. A query starting with "#" matches
// only posts carrying that exact tag; anything else is a case-insensitive
// substring search over title, body, author and the joined tag list.
func FilterQuery(query string) *Filter {
	return &Filter{query: strings.TrimSpace(query)}
}

func (f *Filter) empty() bool {
	return f == nil || (len(f.tags) == 0 && f.query == "")
}

func (f *Filter) matches(post *Post) bool {
	if f.empty() {
		return true
	}

	if len(f.tags) > 0 {
		for _, tag := range post.Tags {
			if slices.Contains(f.tags, strings.ToLower(tag)) {
				return true
			}
		}
		return false
	}

	q := strings.ToLower(f.query)
	if strings.HasPrefix(q, "#") {
		for _, tag := range post.Tags {
			if strings.ToLower(tag) == q {
				return true
			}
		}
		return false
	}

	if strings.Contains(strings.ToLower(post.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(post.Body), q) {
		return true
	}
	if strings.Contains(strings.ToLower(post.Author), q) {
		return true
	}
	return strings.Contains(strings.ToLower(post.JoinedTags()), q)
}

// BuildFeed derives the displayable post list from the raw collection:
// posts scheduled in the future or with unparsable dates are gated out,
// the rest are sorted newest-first (stable, so equal dates keep their
// stored order) and run through the filter. The shell renders the result
// as-is and does no filtering or sorting of its own.
func BuildFeed(posts []*Post, filter *Filter, now time.Time) []*Post {
	type scheduled struct {
		post *Post
		at   time.Time
	}

	visible := make([]scheduled, 0, len(posts))
	for _, post := range posts {
		at, err := post.ScheduledAt()
		if err != nil || at.After(now) {
			continue
		}
		visible = append(visible, scheduled{post: post, at: at})
	}

	slices.SortStableFunc(visible, func(a, b scheduled) int {
		return b.at.Compare(a.at)
	})

	feed := make([]*Post, 0, len(visible))
	for _, entry := range visible {
		if filter.matches(entry.post) {
			feed = append(feed, entry.post)
		}
	}
	return feed
}
