package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type feedItem struct {
	PK          json.Number `json:"pk"`
	ID          string      `json:"id"`
	Code        string      `json:"code"`
	TakenAt     int64       `json:"taken_at"`
	MediaType   int         `json:"media_type"`
	ProductType string      `json:"product_type"`
}

type feedResponse struct {
	Items  []feedItem `json:"items"`
	Status string     `json:"status"`
}

// FetchRecent returns the newest `count` posts of a user, newest
// first, exactly in the order the feed endpoint returned them.
func (c *Client) FetchRecent(ctx context.Context, userID string, count int) ([]Media, error) {
	ctx, span := tracer.Start(ctx, "client:FetchRecent")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("count", strconv.Itoa(count)).
		Get(fmt.Sprintf("/api/v1/feed/user/%s/", userID))
	if err != nil {
		span.SetStatus(codes.Error, "feed request failed")
		return nil, &FetchError{UserID: userID, Err: err}
	}

	var body feedResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse feed response")
		return nil, &FetchError{UserID: userID, Err: err}
	}
	if body.Status != "" && body.Status != "ok" {
		err := fmt.Errorf("feed returned status %q http %d", body.Status, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed rejected")
		return nil, &FetchError{UserID: userID, Err: err}
	}

	medias := make([]Media, 0, len(body.Items))
	for _, item := range body.Items {
		id := item.PK.String()
		if id == "" {
			id = item.ID
		}
		medias = append(medias, Media{
			ID:      id,
			Code:    item.Code,
			TakenAt: item.TakenAt,
			Type:    classifyMedia(item.MediaType, item.ProductType),
		})
	}
	return medias, nil
}
