package unifeed

import "strings"

// FollowStatus is the resolved follow state for a tag. Absence of an entry
// in the persisted map means "followed by default", which is distinct from
// an explicit choice either way.
type FollowStatus int

const (
	FollowedDefault FollowStatus = iota
	FollowedExplicit
	UnfollowedExplicit
)

// Followed reports whether a tag with this status is included in the
// follow-filtered view.
func (s FollowStatus) Followed() bool {
	return s != UnfollowedExplicit
}

// FollowMap is the persisted tag -> followed mapping. Only explicit choices
// are stored; a missing key defaults to followed.
type FollowMap map[string]bool

// Resolve returns the tri-state follow status for a tag. Lookup is
// case-insensitive against the stored keys.
func (m FollowMap) Resolve(tag string) FollowStatus {
	want := strings.ToLower(NormalizeTag(tag))
	for k, v := range m {
		if strings.ToLower(k) != want {
			continue
		}
		if v {
			return FollowedExplicit
		}
		return UnfollowedExplicit
	}
	return FollowedDefault
}

// Followed is a convenience wrapper over Resolve.
func (m FollowMap) Followed(tag string) bool {
	return m.Resolve(tag).Followed()
}

// TagFollow is one row of the follow list handed to the shell: the tag, its
// resolved follow state, and how many posts currently carry it.
type TagFollow struct {
	Tag      string `json:"tag"`
	Followed bool   `json:"followed"`
	Count    int    `json:"count"`
}

// TagCounts tallies how many posts carry each tag, keyed case-insensitively
// with the first-seen casing retained.
func TagCounts(posts []*Post) map[string]int {
	counts := make(map[string]int)
	casing := make(map[string]string)
	for _, post := range posts {
		for _, tag := range post.Tags {
			key := strings.ToLower(tag)
			if _, ok := casing[key]; !ok {
				casing[key] = tag
			}
			counts[casing[key]]++
		}
	}
	return counts
}
