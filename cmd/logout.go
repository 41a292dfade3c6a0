package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current admin session",
	Long: `Tells the backend to drop the session. The locally cached session id
is cleared even if the backend call fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}
		if err := client.Logout(context.Background()); err != nil {
			// The local state is already cleared; report but don't
			// fail the command outright.
			fmt.Printf("Logged out locally (backend call failed: %v)\n", err)
			return nil
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
