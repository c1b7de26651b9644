package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(commentsCmd)
}

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Prints the comment pool.",
	Run: func(cmd *cobra.Command, args []string) {
		config := readConfig()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Comment"})

		for i, comment := range config.PredefinedComments {
			t.AppendRow(table.Row{i + 1, comment})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
