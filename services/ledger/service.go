package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/hungwahenry/instagram-auto-poster/services/ledger/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/ledger")

// RecentIDCap bounds the per-account dedup window. oldest ids fall
// off first once the cap is reached.
const RecentIDCap = 100

// Record is the durable commenting progress for one monitored
// account. the zero value is the "never commented" state.
type Record struct {
	LastCommentID        string
	LastCommentTimestamp int64
	RecentIDs            []string
}

// FirstRun reports whether this account has never had a comment
// issued, which switches the selector into its first-run policy.
func (r Record) FirstRun() bool {
	return r.LastCommentID == ""
}

func (r Record) Seen(postID string) bool {
	for _, id := range r.RecentIDs {
		if id == postID {
			return true
		}
	}
	return false
}

type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// Load returns the persisted record for an account. a missing or
// unreadable row degrades to the empty record, never an error: one
// corrupt row must not stop the account's cycle.
func (s Service) Load(ctx context.Context, username string) Record {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	row, err := s.qry.GetLedger(ctx, username)
	if err == sql.ErrNoRows {
		return Record{}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read ledger row")
		slog.ErrorContext(
			ctx, "failed to load ledger record, starting from empty",
			"username", username,
			"err", err,
		)
		return Record{}
	}

	var recentIds []string
	err = json.Unmarshal([]byte(row.RecentIds), &recentIds)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "corrupt recent_ids in ledger record, dropping them",
			"username", username,
			"err", err,
		)
		recentIds = nil
	}

	return Record{
		LastCommentID:        row.LastCommentID,
		LastCommentTimestamp: row.LastCommentTs,
		RecentIDs:            recentIds,
	}
}

func (s Service) Save(ctx context.Context, username string, record Record) error {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	recentIds, err := json.Marshal(record.RecentIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode recent ids")
		return err
	}
	err = s.qry.UpsertLedger(ctx, db.UpsertLedgerParams{
		Username:      username,
		LastCommentID: record.LastCommentID,
		LastCommentTs: record.LastCommentTimestamp,
		RecentIds:     string(recentIds),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write ledger row")
		return err
	}
	return nil
}

// MarkCommented records that a post received at least one successful
// comment. the returned record reflects the update so a caller can
// keep using it for later posts in the same cycle without re-reading.
func (s Service) MarkCommented(ctx context.Context, username, postID string, postTimestamp int64) (Record, error) {
	ctx, span := tracer.Start(ctx, "MarkCommented")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", username),
		attribute.String("post_id", postID),
	)

	record := s.Load(ctx, username)
	record.LastCommentID = postID
	// a cycle processes newest-first, so a later post in the same
	// batch carries an older timestamp; the threshold must not move
	// backwards
	if postTimestamp > record.LastCommentTimestamp {
		record.LastCommentTimestamp = postTimestamp
	}
	if !record.Seen(postID) {
		record.RecentIDs = append(record.RecentIDs, postID)
	}
	if len(record.RecentIDs) > RecentIDCap {
		record.RecentIDs = record.RecentIDs[len(record.RecentIDs)-RecentIDCap:]
	}

	err := s.Save(ctx, username, record)
	if err != nil {
		return record, err
	}

	slog.InfoContext(
		ctx, "marked post as commented",
		"username", username,
		"post_id", postID,
	)
	return record, nil
}

// List returns every persisted record keyed by account name, used by
// the status surfaces.
func (s Service) List(ctx context.Context) (map[string]Record, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	rows, err := s.qry.ListLedgers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list ledger rows")
		return nil, err
	}

	out := make(map[string]Record, len(rows))
	for _, row := range rows {
		var recentIds []string
		if err := json.Unmarshal([]byte(row.RecentIds), &recentIds); err != nil {
			recentIds = nil
		}
		out[row.Username] = Record{
			LastCommentID:        row.LastCommentID,
			LastCommentTimestamp: row.LastCommentTs,
			RecentIDs:            recentIds,
		}
	}
	return out, nil
}
