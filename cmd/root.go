package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitemapctl",
	Short: "Admin console client for the sitemap-generation service",
	Long: `sitemapctl talks to a sitemap-generation service's admin backend:
log in, fetch and edit the XML settings document, inspect runtime
statistics, and save changes with conflict detection against the
server's copy.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".sitemapctl.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
