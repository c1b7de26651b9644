package instagram

import "fmt"

// AuthError means an acting account could not be logged in. the
// account is excluded from the current run, never fatal.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed for %q: %s", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ResolutionError means a monitored account's numeric user id could
// not be determined. the account is skipped for the cycle.
type ResolutionError struct {
	Username string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve user id for %q: %s", e.Username, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FetchError means the recent-posts feed could not be read, treated
// as zero posts found for the cycle.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch posts for user id %s: %s", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PostError means a single comment attempt failed. counted as a
// failed action, does not block other attempts.
type PostError struct {
	MediaID string
	Err     error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("failed to comment on media %s: %s", e.MediaID, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }
