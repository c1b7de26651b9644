package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hungwahenry/instagram-auto-poster/lib/appconfig"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "autoposter-cli",
	Short: "autoposter-cli inspects and exercises a local autoposter deployment.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "config.json5",
		"path to the autoposter config file",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() appconfig.Config {
	config, err := appconfig.NewManager(configPath).Snapshot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	return config
}
