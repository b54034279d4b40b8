package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floramind",
	Short: "Plant-care companion backend",
	Long:  "FloraMind keeps plant records, computes care reminders, and enriches them with weather and AI-generated messages. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
