package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
	"github.com/hungwahenry/instagram-auto-poster/lib/serviceutil"
	"github.com/hungwahenry/instagram-auto-poster/lib/sqliteutil"
	"github.com/hungwahenry/instagram-auto-poster/lib/telemetry"
	"github.com/hungwahenry/instagram-auto-poster/services/controller"
	"github.com/hungwahenry/instagram-auto-poster/services/keychain"
	keychaindb "github.com/hungwahenry/instagram-auto-poster/services/keychain/db"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	ledgerdb "github.com/hungwahenry/instagram-auto-poster/services/ledger/db"
	"github.com/hungwahenry/instagram-auto-poster/services/monitor"
	"github.com/hungwahenry/instagram-auto-poster/services/notifier"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(os.Getenv("VERBOSE") != "")

	manager := appconfig.NewManager("config.json5")
	config, err := manager.Snapshot()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	// telemetry.json5 is optional, without it only slog is active
	t, err := telemetry.SetupFromEnv(ctx, "autoposter")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	ledgerDB, err := config.LedgerDatabase.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open ledger database", err)
	}
	err = sqliteutil.ApplySchema(ledgerDB, ledgerdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to apply ledger schema", err)
	}
	sessionDB, err := config.SessionDatabase.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open session database", err)
	}
	err = sqliteutil.ApplySchema(sessionDB, keychaindb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to apply session schema", err)
	}

	ledgerService := ledger.NewService(ledgerDB)
	notifierService := notifier.NewService(notifier.Options{
		BotToken: config.Telegram.BotToken,
		ChatID:   config.Telegram.ChatID,
		Enabled:  config.Telegram.Enabled,
	})
	monitorService := monitor.NewService(monitor.Options{
		Config:   manager,
		Ledger:   ledgerService,
		Keychain: keychain.NewService(sessionDB),
		Notifier: notifierService,
	})

	if config.Telegram.Enabled && len(config.Telegram.AuthorizedChatIDs) > 0 {
		controllerService := controller.NewService(controller.Options{
			BotToken:          config.Telegram.BotToken,
			AuthorizedChatIDs: config.Telegram.AuthorizedChatIDs,
			Config:            manager,
			Ledger:            ledgerService,
			Status:            monitorService.Status,
		})
		go func() {
			err := controllerService.Run(ctx)
			if err != nil {
				slog.Error("controller exited", "err", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(monitorService.Status())
	})
	go serviceutil.StartHttpServer(config.StatusPort, mux)

	err = monitorService.Run(ctx)
	if err != nil {
		serviceutil.Fatal("monitor exited", err)
	}
}
