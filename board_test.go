package unifeed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifeed/unifeed"
)

func newTestBoard(t *testing.T, now time.Time) (*unifeed.Board, *unifeed.MemoryKV) {
	t.Helper()
	kv := unifeed.NewMemoryKV()
	board := unifeed.NewBoard(kv,
		unifeed.WithBus(unifeed.NopBus{}),
		unifeed.WithLogger(quietLogger()),
		unifeed.WithClock(func() time.Time { return now }),
	)
	t.Cleanup(func() { _ = board.Close() })
	return board, kv
}

func TestPublishScenario(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, _ := newTestBoard(t, now)

	post, err := board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "T1",
		Body:          "B1",
		TagsRaw:       "math, #Exam",
		ScheduledDate: "2024-01-01",
		ScheduledTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"#math", "#Exam"}, post.Tags)
	assert.Equal(t, "t1", post.Slug)
	assert.Equal(t, unifeed.DefaultPriority, post.Priority)

	feed := board.RenderableFeed(nil)
	require.Len(t, feed, 1)
	assert.Equal(t, "T1", feed[0].Title)
	assert.Equal(t, []string{"#math", "#Exam"}, feed[0].Tags)

	tags := board.Store().LoadTags()
	assert.Contains(t, tags, "#math")
	assert.Contains(t, tags, "#Exam")
}

func TestPublishValidation(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)

	valid := unifeed.PublishInput{
		Author:        "A",
		Title:         "T",
		Body:          "B",
		ScheduledDate: "2024-01-01",
	}

	tests := []struct {
		name     string
		mutate   func(*unifeed.PublishInput)
		expected error
	}{
		{name: "MissingAuthor", mutate: func(in *unifeed.PublishInput) { in.Author = "   " }, expected: unifeed.ErrInvalidInput},
		{name: "MissingTitle", mutate: func(in *unifeed.PublishInput) { in.Title = "" }, expected: unifeed.ErrInvalidInput},
		{name: "MissingBody", mutate: func(in *unifeed.PublishInput) { in.Body = "" }, expected: unifeed.ErrInvalidInput},
		{name: "MissingDate", mutate: func(in *unifeed.PublishInput) { in.ScheduledDate = "" }, expected: unifeed.ErrMissingSchedule},
		{name: "MalformedDate", mutate: func(in *unifeed.PublishInput) { in.ScheduledDate = "01/02/2024" }, expected: unifeed.ErrInvalidInput},
		{name: "MalformedTime", mutate: func(in *unifeed.PublishInput) { in.ScheduledTime = "9:00" }, expected: unifeed.ErrInvalidTime},
		{name: "HourOutOfRange", mutate: func(in *unifeed.PublishInput) { in.ScheduledTime = "25:00" }, expected: unifeed.ErrInvalidTime},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			board, _ := newTestBoard(t, now)

			input := valid
			test.mutate(&input)

			_, err := board.Publish(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, test.expected)

			// A rejected publish mutates no state.
			assert.Empty(t, board.Store().LoadPosts())
			assert.Empty(t, board.Store().LoadTags())
		})
	}
}

func TestPublishTimeDefaultsToMidnight(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, _ := newTestBoard(t, now)

	post, err := board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "T",
		Body:          "B",
		ScheduledDate: "2024-01-01",
	})
	require.NoError(t, err)

	at, err := post.ScheduledAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), at)
}

func TestPublishIDsMonotonic(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, _ := newTestBoard(t, now)

	input := unifeed.PublishInput{Author: "A", Title: "T", Body: "B", ScheduledDate: "2024-01-01"}

	first, err := board.Publish(input)
	require.NoError(t, err)
	second, err := board.Publish(input)
	require.NoError(t, err)

	// The clock is frozen, so the second ID is bumped past the first.
	assert.Greater(t, second.ID, first.ID)
}

func TestPublishVisibilityGate(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, kv := newTestBoard(t, now)

	_, err := board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "scheduled ahead",
		Body:          "B",
		ScheduledDate: "2024-01-03",
		ScheduledTime: "09:00",
	})
	require.NoError(t, err)

	assert.Empty(t, board.RenderableFeed(nil))

	// The same stored state becomes visible once now passes the schedule.
	later := unifeed.NewBoard(kv,
		unifeed.WithBus(unifeed.NopBus{}),
		unifeed.WithLogger(quietLogger()),
		unifeed.WithClock(func() time.Time { return now.Add(48 * time.Hour) }),
	)
	t.Cleanup(func() { _ = later.Close() })
	assert.Len(t, later.RenderableFeed(nil), 1)
}

func TestTagFollowState(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, _ := newTestBoard(t, now)

	_, err := board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "T",
		Body:          "B",
		TagsRaw:       "math, news",
		ScheduledDate: "2024-01-01",
	})
	require.NoError(t, err)
	_, err = board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "T2",
		Body:          "B2",
		TagsRaw:       "math",
		ScheduledDate: "2024-01-01",
	})
	require.NoError(t, err)

	board.ToggleFollow("#news", false)

	rows := board.TagFollowState()
	require.Len(t, rows, 2)

	// Alphabetical, default-followed unless explicitly unfollowed.
	assert.Equal(t, unifeed.TagFollow{Tag: "#math", Followed: true, Count: 2}, rows[0])
	assert.Equal(t, unifeed.TagFollow{Tag: "#news", Followed: false, Count: 1}, rows[1])
}

func TestFollowedFeed(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	board, _ := newTestBoard(t, now)

	for _, in := range []unifeed.PublishInput{
		{Author: "A", Title: "math post", Body: "B", TagsRaw: "math", ScheduledDate: "2024-01-01"},
		{Author: "A", Title: "news post", Body: "B", TagsRaw: "news", ScheduledDate: "2024-01-01"},
	} {
		_, err := board.Publish(in)
		require.NoError(t, err)
	}

	// Everything followed by default: unfiltered feed.
	assert.Len(t, board.FollowedFeed(), 2)

	board.ToggleFollow("#news", false)
	feed := board.FollowedFeed()
	require.Len(t, feed, 1)
	assert.Equal(t, "math post", feed[0].Title)
}

func TestBoardSeedTags(t *testing.T) {
	kv := unifeed.NewMemoryKV()
	board := unifeed.NewBoard(kv,
		unifeed.WithBus(unifeed.NopBus{}),
		unifeed.WithLogger(quietLogger()),
		unifeed.WithSeedTags("general", "#events"),
	)
	t.Cleanup(func() { _ = board.Close() })

	assert.Equal(t, []string{"#general", "#events"}, board.Store().LoadTags())
}

func TestBoardPublishSurvivesBrokenMedium(t *testing.T) {
	board := unifeed.NewBoard(brokenKV{},
		unifeed.WithBus(unifeed.NopBus{}),
		unifeed.WithLogger(quietLogger()),
	)
	t.Cleanup(func() { _ = board.Close() })

	post, err := board.Publish(unifeed.PublishInput{
		Author:        "A",
		Title:         "T",
		Body:          "B",
		ScheduledDate: "2024-01-01",
	})
	require.NoError(t, err)
	assert.NotNil(t, post)

	// Degraded ephemeral mode: nothing persisted, nothing fatal.
	assert.Empty(t, board.RenderableFeed(nil))
}
