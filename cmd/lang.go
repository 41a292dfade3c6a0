package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sitemaptools/sitemapctl/internal/session"
)

var langCmd = &cobra.Command{
	Use:   "lang <tag>",
	Short: "Set the interface language sent with every request",
	Long: `Persists the language tag (e.g. en, de, ja) so it is attached as the
hl parameter on all subsequent requests.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		storePath := ""
		if cfg.StateDir != "" {
			storePath = filepath.Join(cfg.StateDir, "session.json")
		} else {
			storePath, err = session.DefaultPath()
			if err != nil {
				return err
			}
		}
		sess, err := session.NewState(session.NewStore(storePath))
		if err != nil {
			return err
		}
		if err := sess.SetLanguage(args[0]); err != nil {
			return err
		}
		fmt.Printf("Language set to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(langCmd)
}
