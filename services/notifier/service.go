package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/hungwahenry/instagram-auto-poster/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/notifier")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}

const defaultBaseUrl = "https://api.telegram.org"

// Service pushes operational events to a telegram chat. every send is
// fire-and-forget: failures are logged and swallowed, a broken
// notification channel must never affect the posting loop.
type Service struct {
	client  *resty.Client
	token   string
	chatID  string
	enabled bool
}

type Options struct {
	// defaults to the public telegram api when empty
	BaseUrl  string
	BotToken string
	ChatID   string
	Enabled  bool
}

func NewService(opts Options) Service {
	if opts.BaseUrl == "" {
		opts.BaseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 10)

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return Service{
		client:  client,
		token:   opts.BotToken,
		chatID:  opts.ChatID,
		enabled: opts.Enabled,
	}
}

func (s Service) send(ctx context.Context, message string) {
	if !s.enabled || s.token == "" || s.chatID == "" {
		return
	}

	ctx, span := tracer.Start(ctx, "send")
	defer span.End()

	res, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    s.chatID,
			"text":       message,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", s.token))
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to send telegram notification", "err", err)
		return
	}
	if res.StatusCode() != 200 {
		slog.WarnContext(
			ctx, "telegram api rejected notification",
			"status", res.StatusCode(),
			"body", res.String(),
		)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func (s Service) SendStartup(ctx context.Context, subAccounts, mainAccounts int) {
	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
🤖 <b>Instagram AutoPoster Started</b>

📊 <b>Configuration:</b>
• Sub accounts logged in: %d
• Main accounts monitored: %d
• Started at: %s

✅ Bot is now monitoring for new posts...`,
		subAccounts,
		mainAccounts,
		time.Now().Format("2006-01-02 15:04:05"),
	)))
}

// CommentEvent describes a single comment attempt, successful or not.
type CommentEvent struct {
	MainAccount string
	PostCode    string
	MediaType   string
	Comment     string
	SubAccount  string
	Error       string
}

func (s Service) SendCommentSuccess(ctx context.Context, event CommentEvent) {
	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
✅ <b>Comment Posted Successfully</b>

📱 <b>Account:</b> @%s
🎯 <b>Post:</b> %s (%s)
💬 <b>Comment:</b> "%s"
👤 <b>By:</b> @%s
⏰ <b>Time:</b> %s`,
		event.MainAccount,
		event.PostCode,
		event.MediaType,
		html.EscapeString(truncate(event.Comment, 100)),
		event.SubAccount,
		time.Now().Format("15:04:05"),
	)))
}

func (s Service) SendCommentFailure(ctx context.Context, event CommentEvent) {
	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
❌ <b>Comment Failed</b>

📱 <b>Account:</b> @%s
🎯 <b>Post:</b> %s (%s)
👤 <b>Sub Account:</b> @%s
⚠️ <b>Error:</b> %s
⏰ <b>Time:</b> %s`,
		event.MainAccount,
		event.PostCode,
		event.MediaType,
		event.SubAccount,
		html.EscapeString(truncate(event.Error, 200)),
		time.Now().Format("15:04:05"),
	)))
}

func (s Service) SendLoginIssues(ctx context.Context, failedAccounts []string) {
	if len(failedAccounts) == 0 {
		return
	}

	var list strings.Builder
	for _, account := range failedAccounts {
		fmt.Fprintf(&list, "• @%s\n", account)
	}

	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
🔐 <b>Login Issues Detected</b>

❌ <b>Failed to login:</b>
%s
⚠️ These accounts won't be able to comment until login issues are resolved.`,
		list.String(),
	)))
}

// SendCycleSummary reports one monitoring pass. cycles where nothing
// happened are suppressed entirely to avoid noise.
func (s Service) SendCycleSummary(ctx context.Context, accountsChecked, newPosts, successes, failures int) {
	if newPosts == 0 && successes == 0 && failures == 0 {
		return
	}

	statusEmoji := "✅"
	if failures > 0 {
		statusEmoji = "⚠️"
	}

	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
%s <b>Monitoring Cycle Complete</b>

📊 <b>Statistics:</b>
• Accounts checked: %d
• New posts found: %d
• Comments posted: %d
• Failed comments: %d
• Cycle time: %s`,
		statusEmoji,
		accountsChecked,
		newPosts,
		successes,
		failures,
		time.Now().Format("15:04:05"),
	)))
}

func (s Service) SendError(ctx context.Context, errorType, errorMessage, errorContext string) {
	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
🚨 <b>AutoPoster Error</b>

⚠️ <b>Type:</b> %s
💥 <b>Error:</b> %s
📍 <b>Context:</b> %s
⏰ <b>Time:</b> %s

Please check the logs for more details.`,
		errorType,
		html.EscapeString(truncate(errorMessage, 300)),
		errorContext,
		time.Now().Format("2006-01-02 15:04:05"),
	)))
}

func (s Service) SendShutdown(ctx context.Context, reason string) {
	s.send(ctx, strings.TrimSpace(fmt.Sprintf(`
🛑 <b>Instagram AutoPoster Stopped</b>

📝 <b>Reason:</b> %s
⏰ <b>Time:</b> %s

Bot has been shut down.`,
		html.EscapeString(reason),
		time.Now().Format("2006-01-02 15:04:05"),
	)))
}

// TestConnection sends a throwaway message so setup flows can verify
// the token and chat id.
func (s Service) TestConnection(ctx context.Context) {
	s.send(ctx, fmt.Sprintf(
		"🔧 Telegram connection test - %s",
		time.Now().Format("2006-01-02 15:04:05"),
	))
}
