package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/restyutil"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	"github.com/hungwahenry/instagram-auto-poster/services/monitor"
)

var tracer = otel.Tracer("services/controller")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

const defaultBaseUrl = "https://api.telegram.org"

// telegram long poll window, seconds
const pollTimeout = 30

// Service is the remote control surface: it long polls the telegram
// bot api for messages from authorized chats and executes them as
// commands against the live config and ledger.
type Service struct {
	client     *resty.Client
	token      string
	authorized map[string]bool
	config     *appconfig.Manager
	ledger     ledger.Service
	status     func() monitor.StatusReport

	offset int64
}

type Options struct {
	// defaults to the public telegram api when empty
	BaseUrl           string
	BotToken          string
	AuthorizedChatIDs []string
	Config            *appconfig.Manager
	Ledger            ledger.Service
	// reports the monitor's current state, wired from the daemon
	Status func() monitor.StatusReport
}

func NewService(opts Options) *Service {
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	// must sit above the long poll window or every poll times out
	client.SetTimeout(time.Second * (pollTimeout + 10))

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	authorized := make(map[string]bool, len(opts.AuthorizedChatIDs))
	for _, chatID := range opts.AuthorizedChatIDs {
		authorized[chatID] = true
	}

	return &Service{
		client:     client,
		token:      opts.BotToken,
		authorized: authorized,
		config:     opts.Config,
		ledger:     opts.Ledger,
		status:     opts.Status,
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	Ok     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Run polls for commands until ctx is cancelled. Poll failures are
// retried with a short backoff, the controller should survive telegram
// outages.
func (s *Service) Run(ctx context.Context) error {
	if s.token == "" {
		return errors.New("controller requires a bot token")
	}
	slog.Info("controller listening for commands", "authorized_chats", len(s.authorized))

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := s.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("failed to poll telegram for updates", "error", err)
			timer := time.NewTimer(time.Second * 5)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}

		for _, u := range updates {
			s.offset = u.UpdateID + 1
			if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
				continue
			}
			chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
			if !s.authorized[chatID] {
				slog.Warn("ignoring command from unauthorized chat", "chat_id", chatID)
				s.reply(ctx, chatID, "⛔ This chat is not authorized to control the bot.")
				continue
			}

			slog.Info("handling command", "chat_id", chatID, "text", u.Message.Text)
			if reply := s.handleCommand(ctx, u.Message.Text); reply != "" {
				s.reply(ctx, chatID, reply)
			}
		}
	}
}

func (s *Service) poll(ctx context.Context) ([]update, error) {
	ctx, span := tracer.Start(ctx, "poll")
	defer span.End()

	var body updatesResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":  strconv.FormatInt(s.offset, 10),
			"timeout": strconv.Itoa(pollTimeout),
		}).
		SetResult(&body).
		Get(fmt.Sprintf("/bot%s/getUpdates", s.token))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("getUpdates returned status %d: %s", res.StatusCode(), res.String())
	}
	if !body.Ok {
		return nil, fmt.Errorf("getUpdates returned ok=false: %s", res.String())
	}
	return body.Result, nil
}

func (s *Service) reply(ctx context.Context, chatID, text string) {
	ctx, span := tracer.Start(ctx, "reply")
	defer span.End()

	res, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", s.token))
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to send reply", "chat_id", chatID, "err", err)
		return
	}
	if res.StatusCode() != 200 {
		slog.WarnContext(
			ctx, "telegram api rejected reply",
			"status", res.StatusCode(),
			"body", res.String(),
		)
	}
}
