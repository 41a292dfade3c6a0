package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the admin backend",
	Long: `Prompts for the admin password and establishes a session. The session
id is persisted so later commands reuse it until logout or expiry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}

		pwPrompt := promptui.Prompt{
			Label: fmt.Sprintf("Password for %s", cfg.Username),
			Mask:  '*',
		}
		password, err := pwPrompt.Run()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		// Held in memory only for the duration of the attempt.
		client.Session().SetPassword(password)
		defer client.Session().SetPassword("")

		if err := client.Login(context.Background(), cfg.Username, password); err != nil {
			return err
		}
		fmt.Printf("Logged in to %s\n", cfg.Endpoint)

		// A fresh login is normally followed by loading the console
		// state; fetch both documents so problems surface now.
		if _, err := client.GetConfiguration(context.Background()); err != nil {
			return fmt.Errorf("fetching configuration after login: %w", err)
		}
		if _, err := client.GetRuntimeInfo(context.Background()); err != nil {
			return fmt.Errorf("fetching runtime info after login: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
