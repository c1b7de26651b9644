package main

import (
	"context"

	"github.com/hungwahenry/instagram-auto-poster/cmd/autoposter-cli/commands"
	"github.com/hungwahenry/instagram-auto-poster/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "autoposter-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
