package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "durian",
	Short: "Durian-AI web front end",
	Long: `durian serves the Durian-AI sign-in, sign-up and dashboard pages.

Authentication is delegated to an auth gateway selected with AUTH_GATEWAY.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
