package monitor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/instagram"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	"github.com/hungwahenry/instagram-auto-poster/services/notifier"
)

type dispatchResult struct {
	Successes int
	Failures  int
	// Marked reports whether the ledger was advanced for this post,
	// in which case Record carries the updated state.
	Marked bool
	Record ledger.Record
}

// dispatchComments places up to MaxCommentsPerPost comments on a single
// post, each from a distinct randomly chosen sub account, waiting a
// random delay inside CommentDelayRange before every attempt. The
// ledger is advanced exactly once, and only if at least one comment
// succeeded, so a fully failed post is retried on a later cycle.
func (s *Service) dispatchComments(
	ctx context.Context,
	config appconfig.Config,
	mainUsername string,
	post instagram.Media,
	record ledger.Record,
) dispatchResult {
	ctx, span := tracer.Start(ctx, "dispatchComments")
	defer span.End()
	span.SetAttributes(
		attribute.String("main_account", mainUsername),
		attribute.String("post", post.Code),
	)

	result := dispatchResult{Record: record}

	candidates := s.enabledClients(config)
	if len(candidates) == 0 {
		slog.Warn("no enabled sub accounts are logged in, skipping post",
			"main_account", mainUsername, "post", post.Code)
		return result
	}
	if len(config.PredefinedComments) == 0 {
		slog.Warn("no predefined comments configured, skipping post",
			"main_account", mainUsername, "post", post.Code)
		return result
	}

	count := config.MaxCommentsPerPost
	if count > len(candidates) {
		count = len(candidates)
	}
	selected := s.sampleAccounts(candidates, count)

	for _, subUsername := range selected {
		delay := s.randInt(config.CommentDelayRange[0], config.CommentDelayRange[1])
		slog.Info("waiting before comment",
			"sub_account", subUsername, "post", post.Code, "delay_seconds", delay)
		s.sleep(ctx, time.Duration(delay)*time.Second)

		comment := config.PredefinedComments[s.randInt(0, len(config.PredefinedComments)-1)]
		event := notifier.CommentEvent{
			MainAccount: mainUsername,
			PostCode:    post.Code,
			MediaType:   post.Type.String(),
			Comment:     comment,
			SubAccount:  subUsername,
		}

		err := s.clients[subUsername].PostComment(ctx, post.ID, comment)
		if err != nil {
			slog.Error("failed to post comment",
				"sub_account", subUsername, "post", post.Code, "error", err)
			event.Error = err.Error()
			s.notifier.SendCommentFailure(ctx, event)
			result.Failures++
			continue
		}

		slog.Info("posted comment",
			"sub_account", subUsername, "post", post.Code, "comment", comment)
		s.notifier.SendCommentSuccess(ctx, event)
		result.Successes++
	}

	if result.Successes == 0 {
		return result
	}

	updated, err := s.ledger.MarkCommented(ctx, mainUsername, post.ID, post.TakenAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record comment in ledger")
		slog.Error("failed to record comment in ledger",
			"main_account", mainUsername, "post", post.Code, "error", err)
		return result
	}
	result.Marked = true
	result.Record = updated
	return result
}

// enabledClients returns the logged-in sub accounts that are still
// enabled in config, in a stable order so sampling is the only source
// of randomness.
func (s *Service) enabledClients(config appconfig.Config) []string {
	var candidates []string
	for _, account := range config.SubAccounts {
		if !account.Enabled {
			continue
		}
		if _, ok := s.clients[account.Username]; !ok {
			continue
		}
		candidates = append(candidates, account.Username)
	}
	return candidates
}

// sampleAccounts picks count distinct entries via a partial
// Fisher-Yates shuffle. count must not exceed len(candidates).
func (s *Service) sampleAccounts(candidates []string, count int) []string {
	pool := make([]string, len(candidates))
	copy(pool, candidates)
	for i := 0; i < count; i++ {
		j := s.randInt(i, len(pool)-1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}
