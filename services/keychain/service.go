package keychain

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hungwahenry/instagram-auto-poster/services/keychain/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/keychain")

// Service stores opaque platform session blobs, one row per acting
// account. it lives in its own database so a broken session store
// never blocks the ledger and vice versa.
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

// GetSession returns the stored blob for an account, nil when there
// is none. read failures degrade to nil: the caller falls back to a
// fresh login, which is always safe.
func (s Service) GetSession(ctx context.Context, username string) []byte {
	ctx, span := tracer.Start(ctx, "GetSession")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	row, err := s.qry.GetSession(ctx, username)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read session row")
		slog.ErrorContext(
			ctx, "failed to load session, will login fresh",
			"username", username,
			"err", err,
		)
		return nil
	}
	return row.Blob
}

func (s Service) SetSession(ctx context.Context, username string, blob []byte) error {
	ctx, span := tracer.Start(ctx, "SetSession")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	err := s.qry.SetSession(ctx, db.SetSessionParams{
		Username:  username,
		Blob:      blob,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write session row")
		return err
	}
	return nil
}

// DeleteSession discards a stored session, used when restoration
// failed validation and the blob is known stale.
func (s Service) DeleteSession(ctx context.Context, username string) error {
	ctx, span := tracer.Start(ctx, "DeleteSession")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	err := s.qry.DeleteSession(ctx, username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete session row")
		return err
	}
	return nil
}
