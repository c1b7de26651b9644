package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hungwahenry/instagram-auto-poster/lib/sqliteutil"
	"github.com/hungwahenry/instagram-auto-poster/services/ledger"
	ledgerdb "github.com/hungwahenry/instagram-auto-poster/services/ledger/db"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints per-account comment history from the ledger.",
	Run: func(cmd *cobra.Command, args []string) {
		config := readConfig()

		db, err := config.LedgerDatabase.OpenDB()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		err = sqliteutil.ApplySchema(db, ledgerdb.Schema)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		records, err := ledger.NewService(db).List(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		usernames := make([]string, 0, len(records))
		for username := range records {
			usernames = append(usernames, username)
		}
		sort.Strings(usernames)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Account", "Last Comment", "Posts Tracked"})

		for _, username := range usernames {
			record := records[username]
			last := "never"
			if record.LastCommentTimestamp > 0 {
				last = time.Unix(record.LastCommentTimestamp, 0).Format(time.RFC3339)
			}
			t.AppendRow(table.Row{username, last, len(record.RecentIDs)})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
