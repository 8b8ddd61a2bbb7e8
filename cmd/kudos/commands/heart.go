package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
)

var heartCmd = &cobra.Command{
	Use:   "heart <kudo-id>",
	Short: "Heart a kudo",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeart,
}

func init() {
	rootCmd.AddCommand(heartCmd)
}

func runHeart(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return printer.Error("Invalid kudo id", fmt.Sprintf("%q is not an integer", args[0]), nil)
	}

	var resp struct {
		Hearted int `json:"hearted"`
	}
	err = newAPIClient().postJSON(fmt.Sprintf("/api/kudos/%s/%d/heart", boardName, id), nil, &resp)
	if err != nil {
		return printer.Error("Failed to heart kudo", err.Error(), nil)
	}

	printer.Success("Kudo %d now has %d hearts\n", id, resp.Hearted)
	return nil
}
