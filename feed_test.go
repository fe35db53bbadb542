package unifeed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifeed/unifeed"
)

var feedNow = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

func datedPost(id int64, title string, at time.Time, tags ...string) *unifeed.Post {
	return &unifeed.Post{
		ID:     id,
		Author: "author",
		Title:  title,
		Body:   "body of " + title,
		Tags:   tags,
		Date:   at.Format(time.RFC3339),
	}
}

func TestBuildFeedVisibilityGate(t *testing.T) {
	posts := []*unifeed.Post{
		datedPost(1, "past", feedNow.Add(-time.Hour)),
		datedPost(2, "future", feedNow.Add(time.Hour)),
		datedPost(3, "exactly now", feedNow),
		{ID: 4, Title: "broken", Date: "not-a-date"},
	}

	feed := unifeed.BuildFeed(posts, nil, feedNow)
	require.Len(t, feed, 2)
	assert.Equal(t, "exactly now", feed[0].Title)
	assert.Equal(t, "past", feed[1].Title)

	// The future post appears once now advances past its date.
	later := unifeed.BuildFeed(posts, nil, feedNow.Add(2*time.Hour))
	require.Len(t, later, 3)
	assert.Equal(t, "future", later[0].Title)
}

func TestBuildFeedSortStable(t *testing.T) {
	at := feedNow.Add(-time.Hour)
	posts := []*unifeed.Post{
		datedPost(1, "first stored", at),
		datedPost(2, "second stored", at),
		datedPost(3, "older", at.Add(-time.Minute)),
	}

	feed := unifeed.BuildFeed(posts, nil, feedNow)
	require.Len(t, feed, 3)
	// Equal dates keep their stored order.
	assert.Equal(t, "first stored", feed[0].Title)
	assert.Equal(t, "second stored", feed[1].Title)
	assert.Equal(t, "older", feed[2].Title)
}

func TestBuildFeedTagFollowMode(t *testing.T) {
	posts := []*unifeed.Post{
		datedPost(1, "math post", feedNow.Add(-time.Hour), "#Math"),
		datedPost(2, "news post", feedNow.Add(-2*time.Hour), "#news"),
		datedPost(3, "untagged", feedNow.Add(-3*time.Hour)),
	}

	feed := unifeed.BuildFeed(posts, unifeed.FilterTags("#math", "#missing"), feedNow)
	require.Len(t, feed, 1)
	assert.Equal(t, "math post", feed[0].Title)
}

func TestBuildFeedQueryMode(t *testing.T) {
	posts := []*unifeed.Post{
		datedPost(1, "Final Exam Schedule", feedNow.Add(-time.Hour), "#math"),
		datedPost(2, "Cafeteria menu", feedNow.Add(-2*time.Hour), "#Mathematics"),
		datedPost(3, "Library hours", feedNow.Add(-3*time.Hour), "#news"),
	}

	tests := []struct {
		name     string
		query    string
		expected []int64
	}{
		// A #-query matches the exact tag only, not tags it prefixes.
		{name: "ExactTag", query: "#math", expected: []int64{1}},
		{name: "ExactTagCaseInsensitive", query: "#MATH", expected: []int64{1}},
		{name: "SubstringTitle", query: "exam", expected: []int64{1}},
		{name: "SubstringAuthor", query: "author", expected: []int64{1, 2, 3}},
		{name: "SubstringTagList", query: "mathemat", expected: []int64{2}},
		{name: "NoMatch", query: "zzz", expected: nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			feed := unifeed.BuildFeed(posts, unifeed.FilterQuery(test.query), feedNow)
			var ids []int64
			for _, post := range feed {
				ids = append(ids, post.ID)
			}
			assert.Equal(t, test.expected, ids)
		})
	}
}

func TestBuildFeedNoFilterPassesAllVisible(t *testing.T) {
	posts := []*unifeed.Post{
		datedPost(1, "one", feedNow.Add(-time.Hour), "#a"),
		datedPost(2, "two", feedNow.Add(-2*time.Hour)),
	}

	assert.Len(t, unifeed.BuildFeed(posts, nil, feedNow), 2)
	assert.Len(t, unifeed.BuildFeed(posts, unifeed.FilterQuery("  "), feedNow), 2)
}
