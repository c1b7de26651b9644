package instagram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sessionState is the opaque session blob persisted between runs. the
// device id is kept across fresh logins on purpose, reusing it makes
// re-logins look like the same browser.
type sessionState struct {
	Username  string          `json:"username"`
	DeviceID  string          `json:"device_id"`
	UserAgent string          `json:"user_agent"`
	SavedAt   int64           `json:"saved_at"`
	Cookies   []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Expires int64  `json:"expires,omitempty"`
}

func (c *Client) ExportSession() ([]byte, error) {
	state := sessionState{
		Username:  c.Username,
		DeviceID:  c.deviceID,
		UserAgent: userAgent,
		SavedAt:   time.Now().Unix(),
	}
	for _, cookie := range c.jar.Cookies(c.BaseUrl) {
		state.Cookies = append(state.Cookies, sessionCookie{
			Name:  cookie.Name,
			Value: cookie.Value,
		})
	}
	return json.Marshal(state)
}

// ImportSession loads a previously exported blob into the client. it
// does not talk to the network; call ValidateSession afterwards to
// find out whether the restored session is still alive.
func (c *Client) ImportSession(blob []byte) error {
	var state sessionState
	err := json.Unmarshal(blob, &state)
	if err != nil {
		return fmt.Errorf("unreadable session blob: %w", err)
	}
	if state.Username != "" && state.Username != c.Username {
		return fmt.Errorf("session blob belongs to %q, not %q", state.Username, c.Username)
	}

	if state.DeviceID != "" {
		c.deviceID = state.DeviceID
	}
	cookies := make([]*http.Cookie, len(state.Cookies))
	for i, sc := range state.Cookies {
		cookies[i] = &http.Cookie{
			Name:   sc.Name,
			Value:  sc.Value,
			Path:   "/",
			Domain: c.BaseUrl.Hostname(),
		}
	}
	c.jar.SetCookies(c.BaseUrl, cookies)
	return nil
}
