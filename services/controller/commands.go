package controller

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
)

var commandNames = []string{
	"/start", "/help", "/status", "/config", "/stats",
	"/add_main", "/add_sub", "/add_comment", "/set_interval",
	"/enable", "/disable",
}

// handleCommand executes one chat message and returns the reply text,
// or "" when the message deserves no answer. Authorization has already
// happened by the time we get here.
func (s *Service) handleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	command := fields[0]
	// group chats address commands as /status@SomeBot
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	args := fields[1:]

	switch command {
	case "/start", "/help":
		return helpText()
	case "/status":
		return s.statusText()
	case "/config":
		return s.configText()
	case "/stats":
		return s.statsText(ctx)
	case "/add_main":
		return s.addMainAccount(args)
	case "/add_sub":
		return s.addSubAccount(args)
	case "/add_comment":
		return s.addComment(args)
	case "/set_interval":
		return s.setInterval(args)
	case "/enable":
		return s.setAccountEnabled(args, true)
	case "/disable":
		return s.setAccountEnabled(args, false)
	}

	if !strings.HasPrefix(command, "/") {
		// plain chatter, not a command
		return ""
	}
	return unknownCommand(command)
}

func unknownCommand(command string) string {
	best := ""
	bestDistance := 3
	for _, name := range commandNames {
		if d := matchr.Levenshtein(command, name); d < bestDistance {
			best = name
			bestDistance = d
		}
	}
	if best == "" {
		return fmt.Sprintf("Unknown command %s. Send /help for the command list.",
			html.EscapeString(command))
	}
	return fmt.Sprintf("Unknown command %s. Did you mean %s?",
		html.EscapeString(command), best)
}

func helpText() string {
	return strings.TrimSpace(`
🤖 <b>AutoPoster Control</b>

/status - monitor state and last cycle
/config - current configuration
/stats - per-account comment history

/add_main &lt;username&gt; - monitor a new account
/add_sub &lt;username&gt; &lt;password&gt; - add a commenting account
/add_comment &lt;text&gt; - add to the comment pool
/set_interval &lt;seconds&gt; - change the check interval
/enable &lt;username&gt; - re-enable an account
/disable &lt;username&gt; - pause an account`)
}

func (s *Service) statusText() string {
	config, err := s.config.Snapshot()
	if err != nil {
		return "⚠️ Failed to read config: " + html.EscapeString(err.Error())
	}

	report := s.status()
	lastCycle := "never"
	if !report.LastCycleAt.IsZero() {
		lastCycle = report.LastCycleAt.Format("2006-01-02 15:04:05")
	}

	return strings.TrimSpace(fmt.Sprintf(`
📊 <b>Status</b>

🔄 State: %s
⏰ Last cycle: %s
• Accounts checked: %d
• New posts found: %d
• Comments posted: %d
• Comments failed: %d

⏱ Check interval: %ds`,
		report.State,
		lastCycle,
		report.LastCycle.AccountsChecked,
		report.LastCycle.NewPostsFound,
		report.LastCycle.SuccessfulComments,
		report.LastCycle.FailedComments,
		config.CheckInterval,
	))
}

func (s *Service) configText() string {
	config, err := s.config.Snapshot()
	if err != nil {
		return "⚠️ Failed to read config: " + html.EscapeString(err.Error())
	}

	var b strings.Builder
	b.WriteString("⚙️ <b>Configuration</b>\n\n<b>Monitored accounts:</b>\n")
	for _, account := range config.MainAccounts {
		b.WriteString(fmt.Sprintf("%s @%s\n", enabledMark(account.Enabled),
			html.EscapeString(account.Username)))
	}
	if len(config.MainAccounts) == 0 {
		b.WriteString("(none)\n")
	}

	// passwords never leave the config file
	b.WriteString("\n<b>Commenting accounts:</b>\n")
	for _, account := range config.SubAccounts {
		b.WriteString(fmt.Sprintf("%s @%s\n", enabledMark(account.Enabled),
			html.EscapeString(account.Username)))
	}
	if len(config.SubAccounts) == 0 {
		b.WriteString("(none)\n")
	}

	b.WriteString(fmt.Sprintf(`
💬 Comment pool: %d
⏱ Check interval: %ds
⏳ Comment delay: %d-%ds
🔢 Max comments per post: %d
🎞 Media types: %s`,
		len(config.PredefinedComments),
		config.CheckInterval,
		config.CommentDelayRange[0], config.CommentDelayRange[1],
		config.MaxCommentsPerPost,
		strings.Join(config.AllowedMediaTypes, ", "),
	))
	return strings.TrimSpace(b.String())
}

func enabledMark(enabled bool) string {
	if enabled {
		return "✅"
	}
	return "⏸"
}

func (s *Service) statsText(ctx context.Context) string {
	records, err := s.ledger.List(ctx)
	if err != nil {
		return "⚠️ Failed to read ledger: " + html.EscapeString(err.Error())
	}
	if len(records) == 0 {
		return "📈 No comment activity recorded yet."
	}

	usernames := make([]string, 0, len(records))
	for username := range records {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	var b strings.Builder
	b.WriteString("📈 <b>Comment History</b>\n")
	for _, username := range usernames {
		record := records[username]
		last := "never"
		if record.LastCommentTimestamp > 0 {
			last = time.Unix(record.LastCommentTimestamp, 0).Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("\n@%s\n• Last comment: %s\n• Posts tracked: %d\n",
			html.EscapeString(username), last, len(record.RecentIDs)))
	}
	return strings.TrimSpace(b.String())
}

func (s *Service) addMainAccount(args []string) string {
	if len(args) != 1 {
		return "Usage: /add_main &lt;username&gt;"
	}
	username := strings.TrimPrefix(args[0], "@")

	err := s.config.Update(func(config *appconfig.Config) error {
		for _, account := range config.MainAccounts {
			if account.Username == username {
				return fmt.Errorf("@%s is already monitored", username)
			}
		}
		config.MainAccounts = append(config.MainAccounts, appconfig.MainAccount{
			Username: username,
			Enabled:  true,
		})
		return nil
	})
	if err != nil {
		return "⚠️ " + html.EscapeString(err.Error())
	}
	return fmt.Sprintf("✅ Now monitoring @%s. It takes effect next cycle.",
		html.EscapeString(username))
}

func (s *Service) addSubAccount(args []string) string {
	if len(args) != 2 {
		return "Usage: /add_sub &lt;username&gt; &lt;password&gt;"
	}
	username := strings.TrimPrefix(args[0], "@")

	err := s.config.Update(func(config *appconfig.Config) error {
		for _, account := range config.SubAccounts {
			if account.Username == username {
				return fmt.Errorf("@%s is already configured", username)
			}
		}
		config.SubAccounts = append(config.SubAccounts, appconfig.SubAccount{
			Username: username,
			Password: args[1],
			Enabled:  true,
		})
		return nil
	})
	if err != nil {
		return "⚠️ " + html.EscapeString(err.Error())
	}
	// logins happen once at startup
	return fmt.Sprintf("✅ Added @%s. It will start commenting after the next restart.",
		html.EscapeString(username))
}

func (s *Service) addComment(args []string) string {
	comment := strings.TrimSpace(strings.Join(args, " "))
	if comment == "" {
		return "Usage: /add_comment &lt;text&gt;"
	}

	total := 0
	err := s.config.Update(func(config *appconfig.Config) error {
		config.PredefinedComments = append(config.PredefinedComments, comment)
		total = len(config.PredefinedComments)
		return nil
	})
	if err != nil {
		return "⚠️ " + html.EscapeString(err.Error())
	}
	return fmt.Sprintf("✅ Added to the comment pool (%d total).", total)
}

const minCheckInterval = 30

func (s *Service) setInterval(args []string) string {
	if len(args) != 1 {
		return "Usage: /set_interval &lt;seconds&gt;"
	}
	seconds, err := strconv.Atoi(args[0])
	if err != nil || seconds < minCheckInterval {
		return fmt.Sprintf("Interval must be a number of at least %d seconds.", minCheckInterval)
	}

	err = s.config.Update(func(config *appconfig.Config) error {
		config.CheckInterval = seconds
		return nil
	})
	if err != nil {
		return "⚠️ " + html.EscapeString(err.Error())
	}
	return fmt.Sprintf("✅ Check interval set to %ds. It takes effect next cycle.", seconds)
}

func (s *Service) setAccountEnabled(args []string, enabled bool) string {
	verb := "enable"
	if !enabled {
		verb = "disable"
	}
	if len(args) != 1 {
		return fmt.Sprintf("Usage: /%s &lt;username&gt;", verb)
	}
	username := strings.TrimPrefix(args[0], "@")

	found := false
	err := s.config.Update(func(config *appconfig.Config) error {
		for i := range config.MainAccounts {
			if config.MainAccounts[i].Username == username {
				config.MainAccounts[i].Enabled = enabled
				found = true
			}
		}
		for i := range config.SubAccounts {
			if config.SubAccounts[i].Username == username {
				config.SubAccounts[i].Enabled = enabled
				found = true
			}
		}
		if !found {
			return fmt.Errorf("no account named @%s", username)
		}
		return nil
	})
	if err != nil {
		return "⚠️ " + html.EscapeString(err.Error())
	}
	if enabled {
		return fmt.Sprintf("✅ Enabled @%s.", html.EscapeString(username))
	}
	return fmt.Sprintf("⏸ Disabled @%s.", html.EscapeString(username))
}
