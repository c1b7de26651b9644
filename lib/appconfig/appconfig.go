package appconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/hungwahenry/instagram-auto-poster/lib/configutil"
	configlibsql "github.com/hungwahenry/instagram-auto-poster/lib/configutil/libsql"
)

// MainAccount is an account whose post stream is watched.
type MainAccount struct {
	Username string `json:"username"`
	// numeric platform id, resolved lazily and written back here
	UserID  string `json:"user_id"`
	Enabled bool   `json:"enabled"`
}

// SubAccount is an account used to place comments.
type SubAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Enabled  bool   `json:"enabled"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
	Enabled  bool   `json:"enabled"`
	// chats allowed to issue controller commands
	AuthorizedChatIDs []string `json:"authorized_chat_ids"`
}

type Config struct {
	MainAccounts       []MainAccount  `json:"main_accounts"`
	SubAccounts        []SubAccount   `json:"sub_accounts"`
	PredefinedComments []string       `json:"predefined_comments"`
	CheckInterval      int            `json:"check_interval"`
	CommentDelayRange  [2]int         `json:"comment_delay_range"`
	MaxCommentsPerPost int            `json:"max_comments_per_post"`
	AllowedMediaTypes  []string       `json:"allowed_media_types"`
	FetchCount         int            `json:"fetch_count"`
	Telegram           TelegramConfig `json:"telegram"`

	LedgerDatabase  configlibsql.Struct `json:"ledger_database"`
	SessionDatabase configlibsql.Struct `json:"session_database"`
	StatusPort      int                 `json:"status_port"`
}

// applyDefaults fills in zero fields so a sparse config file still
// yields a runnable setup.
func (c *Config) applyDefaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 300
	}
	if c.CommentDelayRange == [2]int{} {
		c.CommentDelayRange = [2]int{30, 120}
	}
	if c.MaxCommentsPerPost <= 0 {
		c.MaxCommentsPerPost = 2
	}
	if len(c.AllowedMediaTypes) == 0 {
		c.AllowedMediaTypes = []string{"photo", "video", "reel", "album"}
	}
	if c.FetchCount <= 0 {
		c.FetchCount = 5
	}
	if c.LedgerDatabase.File == "" && c.LedgerDatabase.Url == "" {
		c.LedgerDatabase.File = "ledger.db"
	}
	if c.SessionDatabase.File == "" && c.SessionDatabase.Url == "" {
		c.SessionDatabase.File = "sessions.db"
	}
	if c.StatusPort == 0 {
		c.StatusPort = 8400
	}
}

func (c Config) Validate() error {
	if c.CommentDelayRange[0] > c.CommentDelayRange[1] {
		return fmt.Errorf(
			"comment_delay_range is inverted: [%d, %d]",
			c.CommentDelayRange[0], c.CommentDelayRange[1],
		)
	}
	if c.CommentDelayRange[0] < 0 {
		return fmt.Errorf("comment_delay_range cannot be negative")
	}
	return nil
}

// Manager reads and writes the config file. Snapshot gives one
// consistent view per call; a cycle reads exactly one snapshot so
// edits made by the controller are only picked up between cycles.
type Manager struct {
	path string
	mu   sync.Mutex
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) Snapshot() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read()
}

func (m *Manager) read() (Config, error) {
	config, err := configutil.ReadConfig[Config](m.path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (m *Manager) Save(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return configutil.WriteConfig(m.path, config)
}

// Update applies `fn` to the current config under the manager lock
// and persists the result, used for small mutations like writing back
// a freshly resolved user id or a controller edit.
func (m *Manager) Update(fn func(*Config) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.read()
	if err != nil {
		return err
	}
	err = fn(&config)
	if err != nil {
		return err
	}
	return configutil.WriteConfig(m.path, config)
}
