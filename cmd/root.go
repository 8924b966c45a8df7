// Package cmd implements the leadscout command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmddiscover "github.com/jonesrussell/leadscout/cmd/discover"
	cmdhttpd "github.com/jonesrussell/leadscout/cmd/httpd"
	cmdscheduler "github.com/jonesrussell/leadscout/cmd/scheduler"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "leadscout",
		Short: "Buyer-intent signal discovery",
		Long:  `Discovers buyer-intent signals across marketplaces and forums, ranks them, and runs saved search agents on a schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment overrides reach viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("leadscout version %s\n", Version)
		},
	})

	rootCmd.AddCommand(cmddiscover.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdscheduler.Command(&cfgFile, &debug))
	rootCmd.AddCommand(cmdhttpd.Command(&cfgFile, &debug))
}
