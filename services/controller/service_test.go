package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/testutil"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	ledgerdb "github.com/hungwahenry/instagram-auto-poster/services/ledger/db"
	"github.com/hungwahenry/instagram-auto-poster/services/monitor"
)

func setupController(t *testing.T, name, baseUrl string) (*Service, *appconfig.Manager, ledger.Service) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     fmt.Sprintf("services/controller/%s", name),
		DbSchema: ledgerdb.Schema,
	})
	t.Cleanup(cleanup)

	manager := appconfig.NewManager(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, manager.Save(appconfig.Config{
		MainAccounts:       []appconfig.MainAccount{{Username: "acme", UserID: "111", Enabled: true}},
		SubAccounts:        []appconfig.SubAccount{{Username: "sub1", Password: "pw", Enabled: true}},
		PredefinedComments: []string{"nice!"},
	}))

	ledgerService := ledger.NewService(setup.DB)
	service := NewService(Options{
		BaseUrl:           baseUrl,
		BotToken:          "test-token",
		AuthorizedChatIDs: []string{"555"},
		Config:            manager,
		Ledger:            ledgerService,
		Status: func() monitor.StatusReport {
			return monitor.StatusReport{
				State: "monitoring",
				LastCycle: monitor.CycleStats{
					AccountsChecked:    1,
					NewPostsFound:      2,
					SuccessfulComments: 2,
				},
				LastCycleAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}
		},
	})
	return service, manager, ledgerService
}

func TestCommands(t *testing.T) {
	service, manager, ledgerService := setupController(t, "commands", "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		reply := service.handleCommand(ctx, "/help")
		require.Contains(t, reply, "/add_main")
		require.Contains(t, reply, "/set_interval")
		require.Equal(t, reply, service.handleCommand(ctx, "/start"))
	}
	{
		reply := service.handleCommand(ctx, "/status")
		require.Contains(t, reply, "monitoring")
		require.Contains(t, reply, "New posts found: 2")
		require.Contains(t, reply, "2025-06-01 12:00:00")
	}
	{
		reply := service.handleCommand(ctx, "/config")
		require.Contains(t, reply, "@acme")
		require.Contains(t, reply, "@sub1")
		require.NotContains(t, reply, "pw")
		require.Contains(t, reply, "Comment pool: 1")
	}
	{
		// stats reflects the ledger
		reply := service.handleCommand(ctx, "/stats")
		require.Contains(t, reply, "No comment activity")

		_, err := ledgerService.MarkCommented(ctx, "acme", "post-1", 1700000000)
		require.NoError(t, err)
		reply = service.handleCommand(ctx, "/stats")
		require.Contains(t, reply, "@acme")
		require.Contains(t, reply, "Posts tracked: 1")
	}
	{
		reply := service.handleCommand(ctx, "/add_main @newbrand")
		require.Contains(t, reply, "Now monitoring @newbrand")

		config, err := manager.Snapshot()
		require.NoError(t, err)
		require.Len(t, config.MainAccounts, 2)
		require.Equal(t, "newbrand", config.MainAccounts[1].Username)
		require.True(t, config.MainAccounts[1].Enabled)

		// duplicates are rejected
		reply = service.handleCommand(ctx, "/add_main newbrand")
		require.Contains(t, reply, "already monitored")
	}
	{
		reply := service.handleCommand(ctx, "/add_sub helper2 secret")
		require.Contains(t, reply, "Added @helper2")

		config, err := manager.Snapshot()
		require.NoError(t, err)
		require.Len(t, config.SubAccounts, 2)
		require.Equal(t, "secret", config.SubAccounts[1].Password)
	}
	{
		reply := service.handleCommand(ctx, "/add_comment so good 🔥")
		require.Contains(t, reply, "2 total")

		config, err := manager.Snapshot()
		require.NoError(t, err)
		require.Equal(t, "so good 🔥", config.PredefinedComments[1])
	}
	{
		reply := service.handleCommand(ctx, "/set_interval 600")
		require.Contains(t, reply, "600")

		config, err := manager.Snapshot()
		require.NoError(t, err)
		require.Equal(t, 600, config.CheckInterval)

		require.Contains(t, service.handleCommand(ctx, "/set_interval 5"), "at least 30")
		require.Contains(t, service.handleCommand(ctx, "/set_interval soon"), "at least 30")
	}
	{
		reply := service.handleCommand(ctx, "/disable acme")
		require.Contains(t, reply, "Disabled @acme")
		config, err := manager.Snapshot()
		require.NoError(t, err)
		require.False(t, config.MainAccounts[0].Enabled)

		reply = service.handleCommand(ctx, "/enable acme")
		require.Contains(t, reply, "Enabled @acme")
		config, err = manager.Snapshot()
		require.NoError(t, err)
		require.True(t, config.MainAccounts[0].Enabled)

		require.Contains(t, service.handleCommand(ctx, "/disable nobody"), "no account named")
	}
	{
		// near misses get a suggestion, plain chatter gets silence
		require.Contains(t, service.handleCommand(ctx, "/statu"), "Did you mean /status?")
		require.Contains(t, service.handleCommand(ctx, "/addmain x"), "Did you mean /add_main?")
		require.Contains(t, service.handleCommand(ctx, "/frobnicate"), "/help")
		require.Empty(t, service.handleCommand(ctx, "hello there"))
		require.Empty(t, service.handleCommand(ctx, "   "))
	}
	{
		// bot-addressed form works too
		require.Contains(t, service.handleCommand(ctx, "/status@AutoPosterBot"), "monitoring")
	}
}

func TestRunHandlesUpdates(t *testing.T) {
	var mu sync.Mutex
	var replies []sentMessage
	polls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/bottest-token/getUpdates":
			mu.Lock()
			polls++
			first := polls == 1
			mu.Unlock()
			if first {
				// one authorized /help and one message from a stranger
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":"/help","chat":{"id":555}}},
					{"update_id":8,"message":{"text":"/status","chat":{"id":666}}}
				]}`))
				return
			}
			require.Equal(t, "9", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/bottest-token/sendMessage":
			var msg sentMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
			mu.Lock()
			replies = append(replies, msg)
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	service, _, _ := setupController(t, "run", server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 2 && polls >= 2
	}, time.Second*5, time.Millisecond*10)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "555", replies[0].ChatID)
	require.Contains(t, replies[0].Text, "/add_main")
	require.Equal(t, "666", replies[1].ChatID)
	require.Contains(t, replies[1].Text, "not authorized")
}

type sentMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}
