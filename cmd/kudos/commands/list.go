package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
	"github.com/dyluth/kudos/pkg/board"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the board's latest kudos and pending verifications",
	Long: `Show the board's current state: the latest kudos (newest first), the
number of monitored YouTube videos, and any screenshots waiting for an
approve/reject decision.

Use --json for machine-readable output.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var state board.State
	err := newAPIClient().getJSON(fmt.Sprintf("/api/boards/%s/state", boardName), &state)
	if err != nil {
		return printer.Error("Failed to fetch board state", err.Error(), nil)
	}

	if listJSON {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(state.Latest) == 0 {
		printer.Println("No kudos yet.")
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Hearts", "Author", "Kudo", "Link"})
		table.SetAutoWrapText(false)
		for _, k := range state.Latest {
			link := ""
			if k.URL != "" {
				link = fmt.Sprintf("%s (%s)", k.URLTitle, k.URL)
			}
			table.Append([]string{
				strconv.FormatInt(k.ID, 10),
				strconv.Itoa(k.Hearted),
				k.Author,
				truncate(k.Text, 60),
				link,
			})
		}
		table.Render()
	}

	printer.Printf("\nMonitored YouTube videos: %d\n", state.YouTubeWatchCount)

	if len(state.Verifications) > 0 {
		printer.Warning("%d screenshot(s) waiting for a decision:\n", len(state.Verifications))
		for _, v := range state.Verifications {
			printer.Printf("  %s  %q from %s (screenshot %s)\n", v.WorkflowID, v.Compliment, v.Complimenter, v.Screenshot)
		}
		printer.Printf("\nDecide with: kudos approve <id> or kudos reject <id>\n")
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
