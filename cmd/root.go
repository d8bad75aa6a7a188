package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fdms",
	Short: "Faculty dashboard backend",
	Long: `Faculty dashboard backend: faculty profiles with document uploads,
dashboard accounts, the contact form and the chat assistant.`,
}

// Execute runs the command line. It is called once from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
