package activity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeedRecordAndRecent(t *testing.T) {
	feed := NewFeed(4)

	feed.Record(EventLogin, 1, "signed in")
	feed.Record(EventDashboard, 2, "other user")
	feed.Record(EventDashboard, 1, "refreshed")

	recent := feed.Recent(1, 10)
	require.Len(t, recent, 2)
	require.Equal(t, EventDashboard, recent[0].Type, "newest first")
	require.Equal(t, EventLogin, recent[1].Type)
}

func TestFeedCapacity(t *testing.T) {
	feed := NewFeed(2)

	feed.Record(EventLogin, 1, "a")
	feed.Record(EventLogout, 1, "b")
	feed.Record(EventLogin, 1, "c")

	recent := feed.Recent(1, 10)
	require.Len(t, recent, 2, "oldest events fall off the ring")
	require.Equal(t, "c", recent[0].Message)
}

func TestFeedSubscribe(t *testing.T) {
	feed := NewFeed(8)

	events, cancel := feed.Subscribe()
	defer cancel()

	sent := feed.Record(EventLogin, 1, "signed in")

	received := <-events
	require.Equal(t, sent.ID, received.ID)

	cancel()
	_, open := <-events
	require.False(t, open, "cancel closes the channel")
}
