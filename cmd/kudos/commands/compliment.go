package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
)

var complimentAudioPath string

var complimentCmd = &cobra.Command{
	Use:   "compliment",
	Short: "Ask the board for a fresh compliment",
	Long: `Ask the board to synthesize a fresh compliment in the spirit of its
existing kudos. With --audio, fetches the spoken version instead and
writes it to the given file.`,
	RunE: runCompliment,
}

func init() {
	complimentCmd.Flags().StringVar(&complimentAudioPath, "audio", "", "Write the spoken compliment to this file instead")
	rootCmd.AddCommand(complimentCmd)
}

func runCompliment(cmd *cobra.Command, args []string) error {
	client := newAPIClient()

	if complimentAudioPath != "" {
		audio, err := client.getBytes(fmt.Sprintf("/api/boards/%s/compliment/audio", boardName))
		if err != nil {
			return printer.Error("Failed to fetch spoken compliment", err.Error(), nil)
		}
		if err := os.WriteFile(complimentAudioPath, audio, 0644); err != nil {
			return printer.Error("Failed to write audio file", err.Error(), nil)
		}
		printer.Success("Wrote spoken compliment to %s\n", complimentAudioPath)
		return nil
	}

	var resp struct {
		Compliment string `json:"compliment"`
	}
	if err := client.getJSON(fmt.Sprintf("/api/boards/%s/compliment", boardName), &resp); err != nil {
		return printer.Error("Failed to fetch compliment", err.Error(), nil)
	}

	printer.Compliment(resp.Compliment)
	return nil
}
