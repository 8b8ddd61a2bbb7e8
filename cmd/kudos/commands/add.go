package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kudos/internal/printer"
	"github.com/dyluth/kudos/pkg/board"
)

var (
	addAuthor   string
	addURL      string
	addURLTitle string
)

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a kudo to the board",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addAuthor, "author", "", "Who the kudo is from (required)")
	addCmd.Flags().StringVar(&addURL, "url", "", "Optional link to attach")
	addCmd.Flags().StringVar(&addURLTitle, "url-title", "", "Label for the link (required with --url)")
	addCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	var kudo board.Kudo
	err := newAPIClient().postJSON(fmt.Sprintf("/api/boards/%s/kudos", boardName), map[string]string{
		"text":     args[0],
		"author":   addAuthor,
		"url":      addURL,
		"urlTitle": addURLTitle,
	}, &kudo)
	if err != nil {
		return printer.Error("Failed to add kudo", err.Error(), nil)
	}

	printer.Success("Added kudo %d to board %q\n", kudo.ID, boardName)
	return nil
}
