package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hungwahenry/instagram-auto-poster/services/notifier"
)

func init() {
	rootCmd.AddCommand(testNotifyCmd)
}

var testNotifyCmd = &cobra.Command{
	Use:   "test-notify",
	Short: "Sends a test message through the configured telegram channel.",
	Run: func(cmd *cobra.Command, args []string) {
		config := readConfig()
		if !config.Telegram.Enabled {
			fmt.Fprintln(os.Stderr, "telegram notifications are disabled in config")
			os.Exit(1)
		}

		service := notifier.NewService(notifier.Options{
			BotToken: config.Telegram.BotToken,
			ChatID:   config.Telegram.ChatID,
			Enabled:  true,
		})
		service.TestConnection(cmd.Context())
		fmt.Println("test notification sent, check the chat")
	},
}
