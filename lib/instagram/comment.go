package instagram

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type commentResponse struct {
	Status string `json:"status"`
}

// PostComment places one comment on a post using the logged-in
// session of this client.
func (c *Client) PostComment(ctx context.Context, mediaID, text string) error {
	ctx, span := tracer.Start(ctx, "client:PostComment")
	defer span.End()

	span.SetAttributes(attribute.String("media_id", mediaID))

	token := c.csrfToken()
	if token == "" {
		err := fmt.Errorf("client is not logged in")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing csrf cookie")
		return &PostError{MediaID: mediaID, Err: err}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("x-csrftoken", token).
		SetFormData(map[string]string{
			"comment_text": text,
		}).
		Post(fmt.Sprintf("/api/v1/web/comments/%s/add/", mediaID))
	if err != nil {
		span.SetStatus(codes.Error, "comment request failed")
		return &PostError{MediaID: mediaID, Err: err}
	}

	var body commentResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse comment response")
		return &PostError{MediaID: mediaID, Err: err}
	}
	if body.Status != "ok" {
		err := fmt.Errorf("comment returned status %q http %d", body.Status, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "comment rejected")
		return &PostError{MediaID: mediaID, Err: err}
	}

	return nil
}
