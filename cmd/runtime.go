package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Show the service's runtime statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := buildClient(cfg)
		if err != nil {
			return err
		}

		res, err := client.GetRuntimeInfo(context.Background())
		if err != nil {
			return err
		}
		if res.Doc == nil {
			if res.StatusCode == http.StatusUnauthorized {
				return errLoginRequired
			}
			return fmt.Errorf("backend returned no runtime info (status %d)", res.StatusCode)
		}

		res.Doc.Indent(2)
		out, err := res.Doc.WriteToString()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runtimeCmd)
}
