package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/serviceutil"
	"github.com/hungwahenry/instagram-auto-poster/lib/sqliteutil"
	"github.com/hungwahenry/instagram-auto-poster/lib/telemetry"
	"github.com/hungwahenry/instagram-auto-poster/services/controller"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	ledgerdb "github.com/hungwahenry/instagram-auto-poster/services/ledger/db"
	"github.com/hungwahenry/instagram-auto-poster/services/monitor"
)

// Standalone variant of the chat controller, for deployments that run
// it separately from the posting daemon. It shares the config file and
// ledger database and reads the monitor state over the daemon's status
// endpoint.
func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(os.Getenv("VERBOSE") != "")

	manager := appconfig.NewManager("config.json5")
	config, err := manager.Snapshot()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	// telemetry.json5 is optional, without it only slog is active
	t, err := telemetry.SetupFromEnv(ctx, "controller")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer t.Shutdown(context.Background())
	}

	db, err := config.LedgerDatabase.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open ledger database", err)
	}
	err = sqliteutil.ApplySchema(db, ledgerdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to apply ledger schema", err)
	}

	statusUrl := fmt.Sprintf("http://localhost:%d/status", config.StatusPort)
	statusClient := resty.New().SetTimeout(time.Second * 5)

	service := controller.NewService(controller.Options{
		BotToken:          config.Telegram.BotToken,
		AuthorizedChatIDs: config.Telegram.AuthorizedChatIDs,
		Config:            manager,
		Ledger:            ledger.NewService(db),
		Status: func() monitor.StatusReport {
			var report monitor.StatusReport
			res, err := statusClient.R().SetResult(&report).Get(statusUrl)
			if err != nil || res.StatusCode() != 200 {
				return monitor.StatusReport{State: "unreachable"}
			}
			return report
		},
	})

	err = service.Run(ctx)
	if err != nil {
		serviceutil.Fatal("controller exited", err)
	}
}
