package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
)

var approveCmd = &cobra.Command{
	Use:   "approve <verification-id>",
	Short: "Approve a pending screenshot verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideVerification(args[0], true)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <verification-id>",
	Short: "Reject a pending screenshot verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decideVerification(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
}

func decideVerification(id string, approved bool) error {
	err := newAPIClient().postJSON(fmt.Sprintf("/api/boards/%s/verifications/%s", boardName, id), map[string]bool{
		"approved": approved,
	}, nil)
	if err != nil {
		return printer.Error("Failed to decide verification", err.Error(), []string{
			"Run 'kudos list' to see the pending verification ids",
			"The verification may have timed out already",
		})
	}

	if approved {
		printer.Success("Approved verification %s\n", id)
	} else {
		printer.Success("Rejected verification %s\n", id)
	}
	return nil
}
