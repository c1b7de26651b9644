package monitor

import (
	"log/slog"

	"github.com/hungwahenry/instagram-auto-poster/lib/instagram"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
)

// AllowedTypes parses the configured media type names into a lookup
// set. Unknown names are logged and skipped rather than failing the
// whole cycle.
func AllowedTypes(names []string) map[instagram.MediaType]bool {
	allowed := make(map[instagram.MediaType]bool, len(names))
	for _, name := range names {
		mediaType, ok := instagram.ParseMediaType(name)
		if !ok {
			slog.Warn("ignoring unknown media type in config", "name", name)
			continue
		}
		allowed[mediaType] = true
	}
	return allowed
}

// SelectNewPosts decides which of the fetched posts should receive
// comments, given the account's ledger record. Fetched posts arrive
// newest first and the returned slice preserves that order.
//
// On the very first run for an account (no comment recorded yet) at
// most one post is returned: the newest one whose media type is
// allowed. Everything older is left alone so a fresh deployment does
// not flood an account's back catalog.
//
// On subsequent runs a post qualifies when it has not been commented
// on before, its media type is allowed, and it is strictly newer than
// the last post we commented on.
func SelectNewPosts(record ledger.Record, fetched []instagram.Media, allowed map[instagram.MediaType]bool) []instagram.Media {
	if len(fetched) == 0 {
		return nil
	}

	if record.FirstRun() {
		for _, post := range fetched {
			if !allowed[post.Type] {
				slog.Info("first run: skipping post with excluded media type",
					"post", post.Code, "media_type", post.Type.String())
				continue
			}
			slog.Info("first run: commenting on latest post only",
				"post", post.Code, "media_type", post.Type.String())
			return []instagram.Media{post}
		}
		slog.Info("first run: no posts with allowed media types")
		return nil
	}

	var selected []instagram.Media
	for _, post := range fetched {
		if record.Seen(post.ID) {
			continue
		}
		if !allowed[post.Type] {
			slog.Info("skipping post with excluded media type",
				"post", post.Code, "media_type", post.Type.String())
			continue
		}
		if post.TakenAt <= record.LastCommentTimestamp {
			continue
		}
		selected = append(selected, post)
	}
	return selected
}
