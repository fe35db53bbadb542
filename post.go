package unifeed

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Post represents a single announcement on the board.
type Post struct {
	ID       int64    `json:"id"`       // ID is a monotonic, creation-time-derived identifier
	Author   string   `json:"author"`   // Author is the display name of the poster
	Title    string   `json:"title"`    // Title is the headline of the announcement
	Body     string   `json:"body"`     // Body is the announcement text (may be empty for imported stubs)
	Slug     string   `json:"slug"`     // Slug is the URL-friendly version of the title
	Tags     []string `json:"tags"`     // Tags is the ordered list of normalized #-prefixed tags
	Date     string   `json:"date"`     // Date is the scheduled visible time, RFC3339
	Priority string   `json:"priority"` // Priority is a free-form label, defaults to "general"
}

// DefaultPriority is used when the publisher does not pick a priority label.
const DefaultPriority = "general"

// ScheduledAt parses the post's scheduled time. The date is stored as text
// so that posts with unparsable dates (corrupted or hand-edited storage)
// remain representable; such posts are excluded from date-ordered views.
func (p *Post) ScheduledAt() (time.Time, error) {
	return time.Parse(time.RFC3339, p.Date)
}

// HasTags returns true if the post carries at least one tag.
func (p *Post) HasTags() bool {
	return len(p.Tags) > 0
}

// HasTag reports whether the post carries the given tag. Tags compare
// case-insensitively; the argument is normalized before comparison.
func (p *Post) HasTag(tag string) bool {
	want := strings.ToLower(NormalizeTag(tag))
	for _, t := range p.Tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

// JoinedTags returns the post's tags as a single space-separated string.
func (p *Post) JoinedTags() string {
	return strings.Join(p.Tags, " ")
}

// Serialize serializes the post to a byte slice.
func (p *Post) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

// Deserialize deserializes the byte slice to a post.
func Deserialize(data []byte) (*Post, error) {
	var post Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// NormalizeTag trims a raw tag and ensures the leading # prefix. Casing is
// preserved; comparisons elsewhere are case-insensitive.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

var tagSplitPattern = regexp.MustCompile(`[,\s]+`)

// ParseTagInput splits free-form tag input on commas and whitespace,
// normalizes each part, and drops case-insensitive duplicates while keeping
// the first-seen casing.
func ParseTagInput(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, part := range tagSplitPattern.Split(raw, -1) {
		tag := NormalizeTag(part)
		if tag == "" || tag == "#" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
