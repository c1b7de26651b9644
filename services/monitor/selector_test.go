package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hungwahenry/instagram-auto-poster/lib/instagram"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
)

func media(id, code string, takenAt int64, mediaType instagram.MediaType) instagram.Media {
	return instagram.Media{ID: id, Code: code, TakenAt: takenAt, Type: mediaType}
}

func TestAllowedTypes(t *testing.T) {
	allowed := AllowedTypes([]string{"photo", "reel", "hologram"})
	require.True(t, allowed[instagram.MediaPhoto])
	require.True(t, allowed[instagram.MediaReel])
	require.False(t, allowed[instagram.MediaVideo])
	require.False(t, allowed[instagram.MediaAlbum])
}

func TestSelectFirstRun(t *testing.T) {
	allowed := AllowedTypes([]string{"photo", "video", "reel", "album"})
	feed := []instagram.Media{
		media("3", "P3", 3000, instagram.MediaPhoto),
		media("2", "P2", 2000, instagram.MediaVideo),
		media("1", "P1", 1000, instagram.MediaPhoto),
	}

	{
		// cold start touches only the newest post
		selected := SelectNewPosts(ledger.Record{}, feed, allowed)
		require.Len(t, selected, 1)
		require.Equal(t, "3", selected[0].ID)
	}
	{
		// when the newest post's type is excluded, the newest allowed
		// one is taken instead
		photosOnly := AllowedTypes([]string{"video"})
		selected := SelectNewPosts(ledger.Record{}, feed, photosOnly)
		require.Len(t, selected, 1)
		require.Equal(t, "2", selected[0].ID)
	}
	{
		// nothing allowed, nothing selected
		selected := SelectNewPosts(ledger.Record{}, feed, AllowedTypes([]string{"igtv"}))
		require.Empty(t, selected)
	}
	{
		selected := SelectNewPosts(ledger.Record{}, nil, allowed)
		require.Empty(t, selected)
	}
}

func TestSelectSteadyState(t *testing.T) {
	allowed := AllowedTypes([]string{"photo", "video", "reel", "album"})
	record := ledger.Record{
		LastCommentID:        "3",
		LastCommentTimestamp: 3000,
		RecentIDs:            []string{"1", "2", "3"},
	}

	{
		// two new posts, returned newest first like the feed
		feed := []instagram.Media{
			media("5", "P5", 5000, instagram.MediaPhoto),
			media("4", "P4", 4000, instagram.MediaReel),
			media("3", "P3", 3000, instagram.MediaPhoto),
		}
		selected := SelectNewPosts(record, feed, allowed)
		require.Len(t, selected, 2)
		require.Equal(t, "5", selected[0].ID)
		require.Equal(t, "4", selected[1].ID)
	}
	{
		// a post already commented on is skipped even if its timestamp
		// is newer than the threshold
		feed := []instagram.Media{
			media("5", "P5", 5000, instagram.MediaPhoto),
			media("4", "P4", 4000, instagram.MediaPhoto),
		}
		seen := record
		seen.RecentIDs = append([]string{"5"}, seen.RecentIDs...)
		selected := SelectNewPosts(seen, feed, allowed)
		require.Len(t, selected, 1)
		require.Equal(t, "4", selected[0].ID)
	}
	{
		// excluded media types never qualify
		feed := []instagram.Media{
			media("5", "P5", 5000, instagram.MediaIGTV),
			media("4", "P4", 4000, instagram.MediaIGTV),
		}
		selected := SelectNewPosts(record, feed, allowed)
		require.Empty(t, selected)
	}
	{
		// posts at or before the last commented timestamp are stale,
		// even when their ids rotated out of the recent window
		feed := []instagram.Media{
			media("old-a", "PA", 3000, instagram.MediaPhoto),
			media("old-b", "PB", 2500, instagram.MediaPhoto),
		}
		selected := SelectNewPosts(record, feed, allowed)
		require.Empty(t, selected)
	}
}
