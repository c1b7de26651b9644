package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Prints the configured monitored and commenting accounts.",
	Run: func(cmd *cobra.Command, args []string) {
		config := readConfig()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Username", "Role", "Enabled", "User ID"})

		for _, account := range config.MainAccounts {
			t.AppendRow(table.Row{account.Username, "monitored", account.Enabled, account.UserID})
		}
		for _, account := range config.SubAccounts {
			t.AppendRow(table.Row{account.Username, "commenter", account.Enabled, ""})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
