package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

type webProfileResponse struct {
	Data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// ResolveUserID turns a username into the numeric user id. the json
// endpoint is tried first; when it is blocked or reshaped the profile
// html is scraped as a fallback.
func (c *Client) ResolveUserID(ctx context.Context, username string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:ResolveUserID")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("username", username).
		Get("/api/v1/users/web_profile_info/")
	if err != nil {
		span.SetStatus(codes.Error, "web_profile_info request failed")
		return "", &ResolutionError{Username: username, Err: err}
	}

	var body webProfileResponse
	err = json.Unmarshal(res.Body(), &body)
	if err == nil && body.Data.User.ID != "" {
		return body.Data.User.ID, nil
	}

	id, htmlErr := c.resolveFromProfileHtml(ctx, username)
	if htmlErr != nil {
		span.RecordError(htmlErr)
		span.SetStatus(codes.Error, "both json and html resolution failed")
		return "", &ResolutionError{Username: username, Err: htmlErr}
	}
	return id, nil
}

var profileIdRegex = regexp.MustCompile(`"profile_id"\s*:\s*"?(\d+)"?`)
var profilePageRegex = regexp.MustCompile(`profilePage_(\d+)`)

func (c *Client) resolveFromProfileHtml(ctx context.Context, username string) (string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%s/", username))
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", err
	}

	var id string
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, "profile_id") && !strings.Contains(text, "profilePage_") {
			return true
		}
		if groups := profileIdRegex.FindStringSubmatch(text); len(groups) >= 2 {
			id = groups[1]
			return false
		}
		if groups := profilePageRegex.FindStringSubmatch(text); len(groups) >= 2 {
			id = groups[1]
			return false
		}
		return true
	})
	if id == "" {
		return "", fmt.Errorf("no profile id found in page html (http %d)", res.StatusCode())
	}
	return id, nil
}
