package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
)

var watchCmd = &cobra.Command{
	Use:   "watch <youtube-url>",
	Short: "Register a YouTube video for comment monitoring",
	Long: `Register a YouTube video on the board. The service ingests the video's
existing comments once, then checks for new ones every hour. Comments the
classifier recognizes as compliments are added to the board as kudos.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	err := newAPIClient().postJSON(fmt.Sprintf("/api/boards/%s/videos", boardName), map[string]string{
		"url": args[0],
	}, nil)
	if err != nil {
		return printer.Error("Failed to register video", err.Error(), []string{
			"Check the URL is a YouTube video link (youtube.com/watch?v=... or youtu.be/...)",
		})
	}

	printer.Success("Watching %s on board %q\n", args[0], boardName)
	return nil
}
