package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sitemaptools/sitemapctl/internal/adminclient"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the admin password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}

		oldPrompt := promptui.Prompt{Label: "Current password", Mask: '*'}
		oldPw, err := oldPrompt.Run()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		newPrompt := promptui.Prompt{
			Label: "New password",
			Mask:  '*',
			Validate: func(s string) error {
				if len(s) < 5 {
					return fmt.Errorf("password must be at least 5 characters")
				}
				return nil
			},
		}
		newPw, err := newPrompt.Run()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		err = client.ChangePassword(context.Background(), oldPw, newPw)
		switch {
		case errors.Is(err, adminclient.ErrOldPasswordWrong):
			return fmt.Errorf("current password is incorrect")
		case errors.Is(err, adminclient.ErrServerFailure):
			return fmt.Errorf("the backend could not apply the change; try again later")
		case err != nil:
			return err
		}
		fmt.Println("Password changed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}
