package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
)

type loginResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
}

// Login performs a fresh username/password login. the csrf cookie is
// bootstrapped with a plain page load first, the way the web client
// does it.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return &AuthError{Username: c.Username, Err: err}
	}

	token := c.csrfToken()
	if token == "" {
		err := fmt.Errorf("no csrf cookie issued, status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing csrf cookie")
		return &AuthError{Username: c.Username, Err: err}
	}

	// the "0" key version makes the server accept a plaintext password
	// inside the envelope, same as a browser without the encryption keys
	encPassword := fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), c.password)

	res, err = c.Http.R().
		SetContext(ctx).
		SetHeader("x-csrftoken", token).
		SetFormData(map[string]string{
			"username":        c.Username,
			"enc_password":    encPassword,
			"queryParams":     "{}",
			"optIntoOneTap":   "false",
			"trustedDeviceId": c.deviceID,
		}).
		Post("/api/v1/web/accounts/login/ajax/")
	if err != nil {
		span.SetStatus(codes.Error, "login request failed")
		return &AuthError{Username: c.Username, Err: err}
	}

	var body loginResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login response")
		return &AuthError{Username: c.Username, Err: err}
	}
	if !body.Authenticated {
		err := fmt.Errorf("not authenticated, status %q http %d", body.Status, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected credentials")
		return &AuthError{Username: c.Username, Err: err}
	}

	return nil
}

// ValidateSession makes a cheap authenticated call to check whether
// the current cookies still represent a live session.
func (c *Client) ValidateSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:ValidateSession")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("edit", "true").
		Get("/api/v1/accounts/current_user/")
	if err != nil {
		span.SetStatus(codes.Error, "current_user request failed")
		return &AuthError{Username: c.Username, Err: err}
	}
	if res.StatusCode() != 200 {
		err := fmt.Errorf("session check returned http %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "stale session")
		return &AuthError{Username: c.Username, Err: err}
	}

	return nil
}
