package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hungwahenry/instagram-auto-poster/services/monitor"
)

var statusAddr string

func init() {
	statusCmd.Flags().StringVar(
		&statusAddr, "addr", "",
		"base url of the running daemon (defaults to localhost on the configured status port)",
	)
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the state of the running daemon.",
	Run: func(cmd *cobra.Command, args []string) {
		addr := statusAddr
		if addr == "" {
			config := readConfig()
			addr = fmt.Sprintf("http://localhost:%d", config.StatusPort)
		}

		var report monitor.StatusReport
		res, err := resty.New().
			SetTimeout(time.Second * 5).
			R().
			SetContext(cmd.Context()).
			SetResult(&report).
			Get(addr + "/status")
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if res.StatusCode() != 200 {
			fmt.Fprintf(os.Stderr, "daemon returned status %d\n", res.StatusCode())
			os.Exit(1)
		}

		lastCycle := "never"
		if !report.LastCycleAt.IsZero() {
			lastCycle = report.LastCycleAt.Format(time.RFC3339)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRows([]table.Row{
			{"State", report.State},
			{"Last cycle", lastCycle},
			{"Accounts checked", strconv.Itoa(report.LastCycle.AccountsChecked)},
			{"New posts found", strconv.Itoa(report.LastCycle.NewPostsFound)},
			{"Comments posted", strconv.Itoa(report.LastCycle.SuccessfulComments)},
			{"Comments failed", strconv.Itoa(report.LastCycle.FailedComments)},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
