package instagram

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/hungwahenry/instagram-auto-poster/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("instagram")

const defaultBaseUrl = "https://www.instagram.com"

// app id the instagram web client sends on every api request
const webAppID = "936619743392459"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

// Client talks to the instagram web api on behalf of one account.
// all state (cookies, device id) lives on the client; Export/Import
// round-trip it through an opaque session blob.
type Client struct {
	BaseUrl  *url.URL
	Http     *resty.Client
	Username string

	password string
	deviceID string
	jar      *cookiejar.Jar
}

type ClientOptions struct {
	// defaults to the public instagram endpoint when empty
	BaseUrl  string
	Username string
	Password string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	client.SetHeader("x-ig-app-id", webAppID)
	client.SetHeader("x-requested-with", "XMLHttpRequest")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		Username: opts.Username,
		password: opts.Password,
		deviceID: newDeviceID(),
		jar:      jar,
	}
	return c, nil
}

func newDeviceID() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// csrfToken returns the current csrftoken cookie, empty when the
// client has never talked to the server.
func (c *Client) csrfToken() string {
	for _, cookie := range c.jar.Cookies(c.BaseUrl) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}
