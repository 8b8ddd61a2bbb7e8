package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	serverURL string
	boardName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kudos",
	Short: "Kudos - operator CLI for the kudos board service",
	Long: `Kudos is the operator CLI for the kudos board service.

It talks to a running kudosd over its HTTP API: add and heart kudos,
register YouTube videos for monitoring, decide pending screenshot
verifications, and ask the board for a compliment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the kudosd HTTP API")
	rootCmd.PersistentFlags().StringVarP(&boardName, "board", "b", "main", "Board to operate on")
}
